package repository

import (
	"context"
	"errors"

	"github.com/fyerfyer/doc-ingest/internal/database"
	"github.com/fyerfyer/doc-ingest/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// cleanedRepository 清洗文档仓储实现
type cleanedRepository struct {
	db *gorm.DB
}

// NewCleanedDocumentRepository 创建清洗文档仓储
func NewCleanedDocumentRepository(db *gorm.DB) CleanedDocumentRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &cleanedRepository{db: db}
}

// Save 插入或覆盖清洗文档
func (r *cleanedRepository) Save(ctx context.Context, doc *models.CleanedDocument) error {
	if doc.ID == "" {
		return errors.New("cleaned document ID cannot be empty")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(doc).Error
}

// GetByID 根据ID获取清洗文档
func (r *cleanedRepository) GetByID(ctx context.Context, id string) (*models.CleanedDocument, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByLink 根据link查找清洗文档
func (r *cleanedRepository) FindByLink(ctx context.Context, link string) (*models.CleanedDocument, error) {
	return r.first(ctx, "link = ?", link)
}

func (r *cleanedRepository) first(ctx context.Context, query string, arg string) (*models.CleanedDocument, error) {
	var doc models.CleanedDocument
	if err := r.db.WithContext(ctx).Where(query, arg).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}
