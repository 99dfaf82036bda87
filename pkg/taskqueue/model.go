package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型
type TaskType string

const (
	// TaskIngestLink 抓取并处理单个链接
	TaskIngestLink TaskType = "ingest:link"
	// TaskReprocessDocument 对已入库的文档重新清洗和分块
	TaskReprocessDocument TaskType = "ingest:reprocess"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// Done 任务是否已结束
func (s TaskStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task 任务记录
type Task struct {
	ID          string          `json:"id"`           // 任务唯一标识符
	Type        TaskType        `json:"type"`         // 任务类型
	Key         string          `json:"key"`          // 任务关联的对象，链接或文档ID
	Status      TaskStatus      `json:"status"`       // 任务状态
	Payload     json.RawMessage `json:"payload"`      // 任务载荷
	Result      json.RawMessage `json:"result"`       // 任务结果
	Error       string          `json:"error"`        // 错误信息（如果处理失败）
	CreatedAt   time.Time       `json:"created_at"`   // 创建时间
	UpdatedAt   time.Time       `json:"updated_at"`   // 更新时间
	StartedAt   *time.Time      `json:"started_at"`   // 开始处理时间
	CompletedAt *time.Time      `json:"completed_at"` // 完成时间
	Attempts    int             `json:"attempts"`     // 尝试次数
	MaxRetries  int             `json:"max_retries"`  // 最大重试次数
}

// IngestLinkPayload 链接入库任务载荷
type IngestLinkPayload struct {
	Link         string `json:"link"`           // 来源链接
	UserID       string `json:"user_id"`        // 作者ID
	UserFullName string `json:"user_full_name"` // 作者全名
}

// ReprocessPayload 重新处理任务载荷
type ReprocessPayload struct {
	DocumentID string `json:"document_id"` // 文档ID
}
