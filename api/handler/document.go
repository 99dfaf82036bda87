package handler

import (
	"errors"
	"net/http"

	"github.com/fyerfyer/doc-ingest/api/middleware"
	"github.com/fyerfyer/doc-ingest/api/model"
	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/fyerfyer/doc-ingest/internal/pipeline"
	"github.com/fyerfyer/doc-ingest/internal/repository"
	"github.com/fyerfyer/doc-ingest/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DocumentHandler 处理文档相关的API请求
type DocumentHandler struct {
	documents repository.DocumentRepository        // 原始文档
	cleaned   repository.CleanedDocumentRepository // 清洗文档
	chunks    repository.ChunkRepository           // 分块
	pipeline  *pipeline.Pipeline                   // 用于重新处理
	queue     taskqueue.Queue                      // 可选，异步重新处理
	logger    *logrus.Logger
}

// NewDocumentHandler 创建新的文档处理器
func NewDocumentHandler(
	documents repository.DocumentRepository,
	cleaned repository.CleanedDocumentRepository,
	chunks repository.ChunkRepository,
	p *pipeline.Pipeline,
	queue taskqueue.Queue,
) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		cleaned:   cleaned,
		chunks:    chunks,
		pipeline:  p,
		queue:     queue,
		logger:    middleware.GetLogger(),
	}
}

// ListDocuments 获取文档列表
// GET /api/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	var req model.DocumentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid query parameters", err.Error()))
		return
	}

	filter := repository.ListFilter{
		Category: models.Category(req.Category),
		Platform: req.Platform,
	}
	docs, total, err := h.documents.List(c.Request.Context(), req.Offset(), req.GetPageSize(), filter)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	resp := model.DocumentListResponse{
		Total:     total,
		Page:      req.GetPage(),
		PageSize:  req.GetPageSize(),
		Documents: make([]model.DocumentInfo, 0, len(docs)),
	}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, model.NewDocumentInfo(doc, false))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// GetDocument 获取文档详情，包括有序字段和清洗后的文本
// GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, ok := h.loadDocument(c)
	if !ok {
		return
	}

	resp := model.DocumentDetailResponse{DocumentInfo: model.NewDocumentInfo(doc, true)}

	cleaned, err := h.cleaned.GetByID(c.Request.Context(), doc.ID)
	switch {
	case err == nil:
		resp.Cleaned = cleaned.Content
		resp.CleanedAt = &cleaned.UpdatedAt
	case errors.Is(err, models.ErrDocumentNotFound):
		// 尚未清洗
	default:
		h.logger.WithError(err).WithField("document_id", doc.ID).Warn("Failed to load cleaned document")
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// ListChunks 按位置顺序列出文档的分块
// GET /api/documents/:id/chunks
func (h *DocumentHandler) ListChunks(c *gin.Context) {
	doc, ok := h.loadDocument(c)
	if !ok {
		return
	}

	chunks, err := h.chunks.ListByDocument(c.Request.Context(), doc.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewChunkListResponse(doc, chunks)))
}

// Reprocess 重新清洗和分块已入库的文档
// POST /api/documents/:id/reprocess
func (h *DocumentHandler) Reprocess(c *gin.Context) {
	doc, ok := h.loadDocument(c)
	if !ok {
		return
	}

	var req model.ReprocessRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleError(c, middleware.NewValidationError("invalid reprocess request", err.Error()))
			return
		}
	}

	if req.Async {
		if h.queue == nil {
			middleware.HandleError(c, middleware.NewUnavailableError("task queue is not configured"))
			return
		}
		taskID, err := h.queue.Enqueue(c.Request.Context(), taskqueue.TaskReprocessDocument, doc.ID,
			&taskqueue.ReprocessPayload{DocumentID: doc.ID})
		if err != nil {
			middleware.HandleError(c, middleware.NewInternalError("failed to enqueue reprocess task", err.Error()))
			return
		}
		c.JSON(http.StatusAccepted, model.NewSuccessResponse(model.IngestResponse{
			Tasks: []model.TaskRef{{Key: doc.ID, TaskID: taskID}},
		}))
		return
	}

	result, err := h.pipeline.Reprocess(c.Request.Context(), doc.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}

// loadDocument 解析路径参数并加载文档，失败时已写入错误
func (h *DocumentHandler) loadDocument(c *gin.Context) (*models.Document, bool) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid document id", err.Error()))
		return nil, false
	}

	doc, err := h.documents.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return nil, false
	}
	return doc, true
}
