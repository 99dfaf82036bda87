package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// run 执行一次任务并把状态写回任务记录
// 载荷无效或记录丢失时跳过asynq的重试；还有重试机会时任务回到pending
func (q *RedisQueue) run(ctx context.Context, taskID string, h Handler) error {
	log := q.logger.WithField("task_id", taskID)

	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		log.WithError(err).Error("Failed to get task info")
		if errors.Is(err, ErrTaskNotFound) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if err := q.UpdateTaskStatus(ctx, taskID, StatusProcessing, nil, ""); err != nil {
		log.WithError(err).Error("Failed to update task status to processing")
	}

	result, err := h.ProcessTask(ctx, task)
	if err != nil {
		status := StatusFailed
		if !errors.Is(err, ErrInvalidPayload) && retriesLeft(ctx) {
			status = StatusPending
		}

		log.WithFields(logrus.Fields{
			"task_type": task.Type,
			"key":       task.Key,
			"status":    status,
		}).WithError(err).Error("Task failed")

		if updateErr := q.UpdateTaskStatus(ctx, taskID, status, result, err.Error()); updateErr != nil {
			log.WithError(updateErr).Error("Failed to update task status after failure")
		}
		if status == StatusFailed && errors.Is(err, ErrInvalidPayload) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if err := q.UpdateTaskStatus(ctx, taskID, StatusCompleted, result, ""); err != nil {
		log.WithError(err).Error("Failed to update task status after completion")
	}
	return nil
}

// retriesLeft asynq是否还会重试当前任务
func retriesLeft(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return false
	}
	return retried < maxRetry
}

// DecodeIngestLink 解析链接入库任务的载荷
func DecodeIngestLink(task *Task) (*IngestLinkPayload, error) {
	var payload IngestLinkPayload
	if err := UnmarshalPayload(task.Payload, &payload); err != nil {
		return nil, err
	}
	if payload.Link == "" {
		return nil, fmt.Errorf("%w: empty link", ErrInvalidPayload)
	}
	return &payload, nil
}

// DecodeReprocess 解析重新处理任务的载荷
func DecodeReprocess(task *Task) (*ReprocessPayload, error) {
	var payload ReprocessPayload
	if err := UnmarshalPayload(task.Payload, &payload); err != nil {
		return nil, err
	}
	if payload.DocumentID == "" {
		return nil, fmt.Errorf("%w: empty document id", ErrInvalidPayload)
	}
	return &payload, nil
}

func sortTasks(tasks []*Task) {
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}
