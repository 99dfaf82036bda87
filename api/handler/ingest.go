package handler

import (
	"net/http"

	"github.com/fyerfyer/doc-ingest/api/middleware"
	"github.com/fyerfyer/doc-ingest/api/model"
	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/fyerfyer/doc-ingest/internal/pipeline"
	"github.com/fyerfyer/doc-ingest/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 同步处理的默认并发数
const defaultIngestConcurrency = 4

// IngestHandler 处理链接入库请求
type IngestHandler struct {
	pipeline *pipeline.Pipeline // 入库流水线
	queue    taskqueue.Queue    // 任务队列，为nil时不支持异步入库
	logger   *logrus.Logger
}

// NewIngestHandler 创建入库处理器
func NewIngestHandler(p *pipeline.Pipeline, queue taskqueue.Queue) *IngestHandler {
	return &IngestHandler{
		pipeline: p,
		queue:    queue,
		logger:   middleware.GetLogger(),
	}
}

// Ingest 抓取并处理一批链接
// POST /api/ingest
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req model.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid ingest request", err.Error()))
		return
	}

	user := models.User{ID: req.UserID, FullName: req.UserFullName}

	if req.Async {
		h.enqueue(c, req.Links, user)
		return
	}

	concurrency := req.Concurrency
	if concurrency == 0 {
		concurrency = defaultIngestConcurrency
	}

	// 单个链接的失败记录在结果中，不影响整个请求
	results, err := h.pipeline.ProcessBatch(c.Request.Context(), req.Links, user, concurrency)
	resp := model.IngestResponse{Results: results}
	for _, r := range results {
		if r.Error != "" {
			resp.Failed++
		}
	}
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"links":  len(req.Links),
			"failed": resp.Failed,
		}).Warn("Some links failed to ingest")
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

func (h *IngestHandler) enqueue(c *gin.Context, links []string, user models.User) {
	if h.queue == nil {
		middleware.HandleError(c, middleware.NewUnavailableError("task queue is not configured"))
		return
	}

	// 单个链接投递失败时继续投递其余链接，已创建的任务全部返回，客户端只需重试失败的链接
	resp := model.IngestResponse{Tasks: make([]model.TaskRef, 0, len(links))}
	var lastErr error
	for _, link := range links {
		payload := &taskqueue.IngestLinkPayload{
			Link:         link,
			UserID:       user.ID,
			UserFullName: user.FullName,
		}
		taskID, err := h.queue.Enqueue(c.Request.Context(), taskqueue.TaskIngestLink, link, payload)
		if err != nil {
			h.logger.WithError(err).WithField("link", link).Error("Failed to enqueue link")
			resp.Tasks = append(resp.Tasks, model.TaskRef{Key: link, Error: err.Error()})
			resp.Failed++
			lastErr = err
			continue
		}
		resp.Tasks = append(resp.Tasks, model.TaskRef{Key: link, TaskID: taskID})
	}

	if resp.Failed == len(links) {
		middleware.HandleError(c, middleware.NewInternalError("failed to enqueue links", lastErr.Error()))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"links":  len(links),
		"failed": resp.Failed,
	}).Info("Links enqueued for ingestion")
	c.JSON(http.StatusAccepted, model.NewSuccessResponse(resp))
}
