// Package repository 文档、清洗文档和分块的存储
package repository

import (
	"context"

	"github.com/fyerfyer/doc-ingest/internal/models"
)

// ListFilter 文档列表的筛选条件
type ListFilter struct {
	Category models.Category // 按类别筛选，空表示全部
	Platform string          // 按来源域名筛选，空表示全部
}

// DocumentRepository 原始文档仓储接口
type DocumentRepository interface {
	// Create 创建文档记录，link已存在时返回models.ErrDuplicateLink
	Create(ctx context.Context, doc *models.Document) error

	// GetByID 根据ID获取文档
	GetByID(ctx context.Context, id string) (*models.Document, error)

	// FindByLink 根据link查找文档，不存在时返回models.ErrDocumentNotFound
	FindByLink(ctx context.Context, link string) (*models.Document, error)

	// List 列出文档列表，支持分页和筛选
	List(ctx context.Context, offset, limit int, filter ListFilter) ([]*models.Document, int64, error)
}

// CleanedDocumentRepository 清洗文档仓储接口
type CleanedDocumentRepository interface {
	// Save 按ID插入或覆盖
	Save(ctx context.Context, doc *models.CleanedDocument) error

	// GetByID 根据ID获取清洗文档
	GetByID(ctx context.Context, id string) (*models.CleanedDocument, error)

	// FindByLink 根据link查找清洗文档
	FindByLink(ctx context.Context, link string) (*models.CleanedDocument, error)
}

// ChunkRepository 分块仓储接口
type ChunkRepository interface {
	// SaveAll 按ID批量插入或覆盖
	SaveAll(ctx context.Context, chunks []*models.Chunk) error

	// ListByDocument 按位置顺序列出文档的分块
	ListByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error)

	// GetByID 根据ID获取分块
	GetByID(ctx context.Context, id string) (*models.Chunk, error)
}
