package model

import (
	"encoding/json"
	"time"

	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/fyerfyer/doc-ingest/internal/pipeline"
	"github.com/fyerfyer/doc-ingest/pkg/taskqueue"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// IngestResponse 入库响应
// 同步处理时返回Results，异步处理时返回Tasks
type IngestResponse struct {
	Results []*pipeline.Result `json:"results,omitempty"`
	Tasks   []TaskRef          `json:"tasks,omitempty"`
	Failed  int                `json:"failed"` // 处理失败的链接数
}

// TaskRef 已投递的任务
type TaskRef struct {
	Key    string `json:"key"` // 链接或文档ID
	TaskID string `json:"task_id,omitempty"`
	Error  string `json:"error,omitempty"` // 投递失败原因
}

// DocumentInfo 文档信息
type DocumentInfo struct {
	ID             string          `json:"id"`
	Category       models.Category `json:"category"`
	Link           string          `json:"link"`
	Platform       string          `json:"platform"`
	AuthorID       string          `json:"author_id,omitempty"`
	AuthorFullName string          `json:"author_full_name,omitempty"`
	Fields         models.FieldMap `json:"fields,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewDocumentInfo 从文档模型构建响应
func NewDocumentInfo(doc *models.Document, withFields bool) DocumentInfo {
	info := DocumentInfo{
		ID:             doc.ID,
		Category:       doc.Category,
		Link:           doc.Link,
		Platform:       doc.Platform,
		AuthorID:       doc.AuthorID,
		AuthorFullName: doc.AuthorFullName,
		CreatedAt:      doc.CreatedAt,
	}
	if withFields {
		info.Fields = doc.Fields()
	}
	return info
}

// DocumentDetailResponse 文档详情响应
type DocumentDetailResponse struct {
	DocumentInfo
	Cleaned   string     `json:"cleaned,omitempty"`    // 清洗后的文本，尚未清洗时为空
	CleanedAt *time.Time `json:"cleaned_at,omitempty"` // 最后一次清洗时间
}

// DocumentListResponse 文档列表响应
type DocumentListResponse struct {
	Total     int64          `json:"total"`     // 总数量
	Page      int            `json:"page"`      // 当前页码
	PageSize  int            `json:"page_size"` // 每页大小
	Documents []DocumentInfo `json:"documents"` // 文档列表
}

// ChunkInfo 分块信息
type ChunkInfo struct {
	ID       string                 `json:"id"`
	Position int                    `json:"position"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ChunkListResponse 文档分块列表响应
type ChunkListResponse struct {
	DocumentID string          `json:"document_id"`
	Category   models.Category `json:"category"`
	Chunks     []ChunkInfo     `json:"chunks"`
}

// NewChunkListResponse 构建分块列表响应
func NewChunkListResponse(doc *models.Document, chunks []*models.Chunk) ChunkListResponse {
	resp := ChunkListResponse{
		DocumentID: doc.ID,
		Category:   doc.Category,
		Chunks:     make([]ChunkInfo, 0, len(chunks)),
	}
	for _, c := range chunks {
		resp.Chunks = append(resp.Chunks, ChunkInfo{
			ID:       c.ID,
			Position: c.Position,
			Content:  c.Content,
			Metadata: c.Metadata,
		})
	}
	return resp
}

// TaskInfo 任务信息
type TaskInfo struct {
	ID          string               `json:"id"`
	Type        taskqueue.TaskType   `json:"type"`
	Key         string               `json:"key"`
	Status      taskqueue.TaskStatus `json:"status"`
	Error       string               `json:"error,omitempty"`
	Result      json.RawMessage      `json:"result,omitempty"`
	Attempts    int                  `json:"attempts"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

// NewTaskInfo 从任务记录构建响应
func NewTaskInfo(task *taskqueue.Task) TaskInfo {
	info := TaskInfo{
		ID:          task.ID,
		Type:        task.Type,
		Key:         task.Key,
		Status:      task.Status,
		Error:       task.Error,
		Attempts:    task.Attempts,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		CompletedAt: task.CompletedAt,
	}
	if len(task.Result) > 0 && string(task.Result) != "null" {
		info.Result = task.Result
	}
	return info
}
