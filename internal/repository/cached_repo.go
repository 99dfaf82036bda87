package repository

import (
	"context"
	"errors"

	"github.com/fyerfyer/doc-ingest/internal/cache"
	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/sirupsen/logrus"
)

// 缓存键前缀
const linkCachePrefix = "doc:link"

// cachedDocumentRepository 带link缓存的文档仓储
// 缓存link到文档ID的映射，只缓存命中结果
type cachedDocumentRepository struct {
	DocumentRepository
	cache  cache.Cache
	logger *logrus.Logger
}

// NewCachedDocumentRepository 用缓存包装文档仓储
// 缓存故障只记录日志，查询回退到底层仓储
func NewCachedDocumentRepository(inner DocumentRepository, c cache.Cache, logger *logrus.Logger) DocumentRepository {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &cachedDocumentRepository{DocumentRepository: inner, cache: c, logger: logger}
}

// FindByLink 先查缓存，未命中时查询底层仓储并写回缓存
func (r *cachedDocumentRepository) FindByLink(ctx context.Context, link string) (*models.Document, error) {
	key := cache.GenerateCacheKey(linkCachePrefix, link)

	id, found, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.WithError(err).WithField("link", link).Warn("Link cache lookup failed")
	}
	if found {
		doc, err := r.DocumentRepository.GetByID(ctx, id)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, models.ErrDocumentNotFound) {
			return nil, err
		}
		// 缓存指向已删除的文档
		_ = r.cache.Delete(ctx, key)
	}

	doc, err := r.DocumentRepository.FindByLink(ctx, link)
	if err != nil {
		return nil, err
	}
	r.remember(ctx, key, doc.ID)
	return doc, nil
}

// Create 创建文档并缓存link
func (r *cachedDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if err := r.DocumentRepository.Create(ctx, doc); err != nil {
		return err
	}
	r.remember(ctx, cache.GenerateCacheKey(linkCachePrefix, doc.Link), doc.ID)
	return nil
}

func (r *cachedDocumentRepository) remember(ctx context.Context, key, id string) {
	if err := r.cache.Set(ctx, key, id, 0); err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("Failed to cache document link")
	}
}
