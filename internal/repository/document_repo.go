package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyerfyer/doc-ingest/internal/database"
	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// docRepository 文档仓储实现
type docRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 使用全局数据库连接创建文档仓储
func NewDocumentRepository() DocumentRepository {
	return &docRepository{db: database.MustDB()}
}

// NewDocumentRepositoryWithDB 使用指定的数据库连接创建文档仓储
func NewDocumentRepositoryWithDB(db *gorm.DB) DocumentRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &docRepository{db: db}
}

// Create 创建文档记录，ID为空时生成uuid
func (r *docRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.Link == "" {
		return errors.New("document link cannot be empty")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", models.ErrDuplicateLink, doc.Link)
		}
		return err
	}
	return nil
}

// GetByID 根据ID获取文档
func (r *docRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByLink 根据link查找文档
func (r *docRepository) FindByLink(ctx context.Context, link string) (*models.Document, error) {
	return r.first(ctx, "link = ?", link)
}

func (r *docRepository) first(ctx context.Context, query string, arg string) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).Where(query, arg).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// List 列出文档列表，按创建时间倒序
func (r *docRepository) List(ctx context.Context, offset, limit int, filter ListFilter) ([]*models.Document, int64, error) {
	var docs []*models.Document
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Document{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	if err := query.Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// isUniqueViolation 判断是否为唯一约束冲突
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
