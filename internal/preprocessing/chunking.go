package preprocessing

import (
	"fmt"

	"github.com/fyerfyer/doc-ingest/internal/document"
	"github.com/fyerfyer/doc-ingest/internal/models"
	"gorm.io/datatypes"
)

// Strategy 分块策略
type Strategy string

const (
	// StrategyFixed 固定窗口
	StrategyFixed Strategy = "fixed"
	// StrategySemantic 语义边界
	StrategySemantic Strategy = "semantic"
)

// 通用固定窗口默认值
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// ChunkingConfig 单个类别的分块配置
type ChunkingConfig struct {
	Strategy     Strategy `mapstructure:"strategy" validate:"omitempty,oneof=fixed semantic"`
	ChunkSize    int      `mapstructure:"chunk_size" validate:"gte=0"`
	ChunkOverlap int      `mapstructure:"chunk_overlap" validate:"gte=0"`
	MinLength    int      `mapstructure:"min_length" validate:"gte=0"`
	MaxLength    int      `mapstructure:"max_length" validate:"gte=0"`
}

// DefaultChunkingConfig 返回类别的默认分块配置
// PDF按100字符窗口、25字符重叠切分；文章按1000到2000字符的语义边界切分
func DefaultChunkingConfig(category models.Category) ChunkingConfig {
	switch category {
	case models.CategoryPDF:
		return ChunkingConfig{Strategy: StrategyFixed, ChunkSize: 100, ChunkOverlap: 25}
	case models.CategoryArticles:
		return ChunkingConfig{Strategy: StrategySemantic, MinLength: 1000, MaxLength: 2000}
	default:
		return ChunkingConfig{Strategy: StrategyFixed, ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap}
	}
}

// withDefaults 用类别默认值补齐未设置的字段
func (c ChunkingConfig) withDefaults(category models.Category) ChunkingConfig {
	def := DefaultChunkingConfig(category)
	if c.Strategy == "" {
		c.Strategy = def.Strategy
	}

	switch c.Strategy {
	case StrategyFixed:
		if c.ChunkSize != 0 {
			break
		}
		if def.Strategy == StrategyFixed {
			c.ChunkSize, c.ChunkOverlap = def.ChunkSize, def.ChunkOverlap
		} else {
			c.ChunkSize, c.ChunkOverlap = DefaultChunkSize, DefaultChunkOverlap
		}
	case StrategySemantic:
		if c.MinLength == 0 && c.MaxLength == 0 {
			c.MinLength, c.MaxLength = 1000, 2000
		}
	}
	return c
}

// ChunkingHandler 分块处理器接口
type ChunkingHandler interface {
	// Category 处理器负责的文档类别
	Category() models.Category
	// Chunk 将清洗后的文档切分成分块
	Chunk(doc *models.CleanedDocument) ([]*models.Chunk, error)
	// Metadata 返回分块参数，写入每个分块的Metadata
	Metadata() map[string]any
}

// splitterChunker 基于document.Splitter的分块处理器
type splitterChunker struct {
	category models.Category
	splitter document.Splitter
	metadata map[string]any
}

// NewChunkingHandler 根据类别和配置创建分块处理器
// 配置中未设置的字段取类别默认值
func NewChunkingHandler(category models.Category, cfg ChunkingConfig) (ChunkingHandler, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}
	cfg = cfg.withDefaults(category)

	switch cfg.Strategy {
	case StrategyFixed:
		splitter, err := document.NewFixedWindowSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
		if err != nil {
			return nil, err
		}
		return &splitterChunker{
			category: category,
			splitter: splitter,
			metadata: map[string]any{"chunk_size": cfg.ChunkSize, "chunk_overlap": cfg.ChunkOverlap},
		}, nil
	case StrategySemantic:
		splitter, err := document.NewSemanticSplitter(cfg.MinLength, cfg.MaxLength)
		if err != nil {
			return nil, err
		}
		return &splitterChunker{
			category: category,
			splitter: splitter,
			metadata: map[string]any{"min_length": cfg.MinLength, "max_length": cfg.MaxLength},
		}, nil
	default:
		return nil, fmt.Errorf("unknown chunking strategy %q", cfg.Strategy)
	}
}

// DefaultChunkingHandler 通用的500/50固定窗口分块处理器
func DefaultChunkingHandler(category models.Category) (ChunkingHandler, error) {
	return NewChunkingHandler(category, ChunkingConfig{
		Strategy:     StrategyFixed,
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
	})
}

// Category 实现ChunkingHandler接口
func (c *splitterChunker) Category() models.Category {
	return c.category
}

// Metadata 返回参数的副本
func (c *splitterChunker) Metadata() map[string]any {
	out := make(map[string]any, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}

// Chunk 切分文档，分块ID由内容决定
func (c *splitterChunker) Chunk(doc *models.CleanedDocument) ([]*models.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil cleaned document")
	}
	if doc.Category != c.category {
		return nil, fmt.Errorf("%w: handler %s, document %s", models.ErrCategoryMismatch, c.category, doc.Category)
	}

	texts, err := c.splitter.Split(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to split document %s: %w", doc.ID, err)
	}

	chunks := make([]*models.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, &models.Chunk{
			ID:             ChunkID(text).String(),
			Category:       doc.Category,
			Content:        text,
			DocumentID:     doc.ID,
			Position:       i,
			Link:           doc.Link,
			Platform:       doc.Platform,
			AuthorID:       doc.AuthorID,
			AuthorFullName: doc.AuthorFullName,
			Metadata:       datatypes.JSONMap(c.Metadata()),
		})
	}

	return chunks, nil
}
