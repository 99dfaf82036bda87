// Package handoff 将分块交给下游的向量化服务
package handoff

import (
	"context"
	"fmt"

	"github.com/fyerfyer/doc-ingest/internal/fetch"
	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/sirupsen/logrus"
)

// Sink 分块的下游接收方
type Sink interface {
	// Deliver 投递一个文档的全部分块
	Deliver(ctx context.Context, chunks []*models.Chunk) error
}

// Config 投递配置
type Config struct {
	Type      string `mapstructure:"type" validate:"omitempty,oneof=none http"` // none 或 http
	URL       string `mapstructure:"url" validate:"required_if=Type http"`      // 接收端地址
	BatchSize int    `mapstructure:"batch_size" validate:"gte=0"`               // 每个请求的分块数
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{Type: "none", BatchSize: 64}
}

// New 根据配置创建投递方
func New(cfg Config, fetcher fetch.Fetcher, logger *logrus.Logger) (Sink, error) {
	switch cfg.Type {
	case "", "none":
		return NopSink{}, nil
	case "http":
		if cfg.URL == "" {
			return nil, fmt.Errorf("handoff url is required for http sink")
		}
		return NewHTTPSink(fetcher, cfg.URL, cfg.BatchSize, logger), nil
	default:
		return nil, fmt.Errorf("unsupported handoff type: %s", cfg.Type)
	}
}

// NopSink 丢弃所有分块
type NopSink struct{}

// Deliver 不做任何事
func (NopSink) Deliver(context.Context, []*models.Chunk) error {
	return nil
}

// ChunkPayload 投递给接收端的单个分块
type ChunkPayload struct {
	ID             string                 `json:"id"`
	DocumentID     string                 `json:"document_id"`
	Category       string                 `json:"category"`
	Content        string                 `json:"content"`
	Position       int                    `json:"position"`
	Link           string                 `json:"link"`
	Platform       string                 `json:"platform"`
	AuthorID       string                 `json:"author_id,omitempty"`
	AuthorFullName string                 `json:"author_full_name,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Batch 一次请求的请求体
type Batch struct {
	Chunks []ChunkPayload `json:"chunks"`
}

// HTTPSink 以JSON批量POST分块
type HTTPSink struct {
	fetcher   fetch.Fetcher
	url       string
	batchSize int
	logger    *logrus.Logger
}

// NewHTTPSink 创建HTTP投递方
func NewHTTPSink(fetcher fetch.Fetcher, url string, batchSize int, logger *logrus.Logger) *HTTPSink {
	if batchSize <= 0 {
		batchSize = DefaultConfig().BatchSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HTTPSink{fetcher: fetcher, url: url, batchSize: batchSize, logger: logger}
}

// Deliver 按批次顺序投递，任一批失败即返回
func (s *HTTPSink) Deliver(ctx context.Context, chunks []*models.Chunk) error {
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := Batch{Chunks: make([]ChunkPayload, 0, end-start)}
		for _, c := range chunks[start:end] {
			batch.Chunks = append(batch.Chunks, toPayload(c))
		}

		if err := s.fetcher.PostJSON(ctx, s.url, batch, nil); err != nil {
			return fmt.Errorf("failed to deliver chunks %d-%d: %w", start, end-1, err)
		}

		s.logger.WithFields(logrus.Fields{
			"url":    s.url,
			"chunks": end - start,
		}).Debug("Delivered chunk batch")
	}
	return nil
}

func toPayload(c *models.Chunk) ChunkPayload {
	return ChunkPayload{
		ID:             c.ID,
		DocumentID:     c.DocumentID,
		Category:       string(c.Category),
		Content:        c.Content,
		Position:       c.Position,
		Link:           c.Link,
		Platform:       c.Platform,
		AuthorID:       c.AuthorID,
		AuthorFullName: c.AuthorFullName,
		Metadata:       c.Metadata,
	}
}
