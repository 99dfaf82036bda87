package preprocessing

import (
	"fmt"

	"github.com/fyerfyer/doc-ingest/internal/models"
)

// Handlers 按类别索引的清洗和分块处理器
// 每个类别对应唯一的清洗策略和分块策略
type Handlers struct {
	cleaners map[models.Category]CleaningHandler
	chunkers map[models.Category]ChunkingHandler
}

// NewHandlers 为所有已知类别创建处理器
// configs中缺失的类别使用默认分块配置
func NewHandlers(configs map[models.Category]ChunkingConfig) (*Handlers, error) {
	h := &Handlers{
		cleaners: make(map[models.Category]CleaningHandler),
		chunkers: make(map[models.Category]ChunkingHandler),
	}

	for _, category := range []models.Category{models.CategoryArticles, models.CategoryPDF} {
		cleaner, err := NewCleaningHandler(category)
		if err != nil {
			return nil, err
		}
		chunker, err := NewChunkingHandler(category, configs[category])
		if err != nil {
			return nil, fmt.Errorf("chunking config for %s: %w", category, err)
		}
		h.cleaners[category] = cleaner
		h.chunkers[category] = chunker
	}

	return h, nil
}

// Cleaner 获取类别的清洗处理器
func (h *Handlers) Cleaner(category models.Category) (CleaningHandler, error) {
	if c, ok := h.cleaners[category]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
}

// Chunker 获取类别的分块处理器
func (h *Handlers) Chunker(category models.Category) (ChunkingHandler, error) {
	if c, ok := h.chunkers[category]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
}
