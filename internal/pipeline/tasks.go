package pipeline

import (
	"context"

	"github.com/fyerfyer/doc-ingest/internal/metrics"
	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/fyerfyer/doc-ingest/pkg/taskqueue"
)

// RegisterTaskHandlers 在工作者上注册入库任务的处理器
func (p *Pipeline) RegisterTaskHandlers(w taskqueue.Worker) {
	w.RegisterHandler(taskqueue.TaskIngestLink, taskqueue.HandlerFunc(p.handleIngestLink))
	w.RegisterHandler(taskqueue.TaskReprocessDocument, taskqueue.HandlerFunc(p.handleReprocess))
}

func (p *Pipeline) handleIngestLink(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
	payload, err := taskqueue.DecodeIngestLink(task)
	if err != nil {
		p.metrics.TaskOutcome(metrics.OutcomeFailed)
		return nil, err
	}

	user := models.User{ID: payload.UserID, FullName: payload.UserFullName}
	result, err := p.Process(ctx, payload.Link, user)
	if err != nil {
		p.metrics.TaskOutcome(metrics.OutcomeFailed)
		return result, err
	}

	if result.Skipped {
		p.metrics.TaskOutcome(metrics.OutcomeSkipped)
	} else {
		p.metrics.TaskOutcome(metrics.OutcomeCreated)
	}
	return result, nil
}

func (p *Pipeline) handleReprocess(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
	payload, err := taskqueue.DecodeReprocess(task)
	if err != nil {
		p.metrics.TaskOutcome(metrics.OutcomeFailed)
		return nil, err
	}

	result, err := p.Reprocess(ctx, payload.DocumentID)
	if err != nil {
		p.metrics.TaskOutcome(metrics.OutcomeFailed)
		return nil, err
	}
	p.metrics.TaskOutcome(metrics.OutcomeCreated)
	return result, nil
}
