package model

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// Offset 当前页的起始偏移
func (p *PaginationRequest) Offset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// IngestRequest 链接入库请求
type IngestRequest struct {
	Links        []string `json:"links" binding:"required,min=1,max=100,dive,url"` // 待入库的链接
	UserID       string   `json:"user_id" binding:"omitempty,max=64"`              // 作者ID
	UserFullName string   `json:"user_full_name" binding:"omitempty,max=255"`      // 作者全名
	Async        bool     `json:"async"`                                           // 为true时投递到任务队列
	Concurrency  int      `json:"concurrency" binding:"omitempty,min=1,max=32"`    // 同步处理的并发数
}

// DocumentListRequest 文档列表请求
type DocumentListRequest struct {
	PaginationRequest
	Category string `form:"category" binding:"omitempty,oneof=articles pdf"` // 类别过滤
	Platform string `form:"platform" binding:"omitempty"`                    // 来源域名过滤
}

// DocumentIDRequest 以文档ID为路径参数的请求
type DocumentIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"` // 文档ID
}

// ReprocessRequest 文档重新处理请求
type ReprocessRequest struct {
	Async bool `json:"async"` // 为true时投递到任务队列
}
