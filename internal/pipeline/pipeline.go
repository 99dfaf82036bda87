// Package pipeline 串联抓取、清洗、分块和投递
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyerfyer/doc-ingest/internal/crawler"
	"github.com/fyerfyer/doc-ingest/internal/handoff"
	"github.com/fyerfyer/doc-ingest/internal/metrics"
	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/fyerfyer/doc-ingest/internal/preprocessing"
	"github.com/fyerfyer/doc-ingest/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// 处理阶段名称，用于指标和错误信息
const (
	StageExtract = "extract"
	StageClean   = "clean"
	StageChunk   = "chunk"
	StageHandoff = "handoff"
)

// Result 单个链接的处理结果
type Result struct {
	Link       string          `json:"link"`
	Crawler    string          `json:"crawler"`
	DocumentID string          `json:"document_id,omitempty"`
	Category   models.Category `json:"category,omitempty"`
	Chunks     int             `json:"chunks"`
	Skipped    bool            `json:"skipped"` // 抓取没有产生文档，例如链接中没有可识别的标识符
	Error      string          `json:"error,omitempty"`
}

// Pipeline 入库流水线
// 每个链接是独立的工作单元，Process可以并发调用
type Pipeline struct {
	dispatcher *crawler.Dispatcher                  // 爬虫分发器
	documents  repository.DocumentRepository        // 原始文档存储
	cleaned    repository.CleanedDocumentRepository // 清洗文档存储
	chunks     repository.ChunkRepository           // 分块存储
	handlers   *preprocessing.Handlers              // 按类别的清洗和分块处理器
	sink       handoff.Sink                         // 分块下游
	timeout    time.Duration                        // 单个链接的处理超时
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

// Option 流水线配置选项
type Option func(*Pipeline)

// WithSink 设置分块下游
func WithSink(sink handoff.Sink) Option {
	return func(p *Pipeline) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithTimeout 设置单个链接的处理超时，0表示不限制
func WithTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = timeout
	}
}

// New 创建流水线
func New(
	dispatcher *crawler.Dispatcher,
	documents repository.DocumentRepository,
	cleaned repository.CleanedDocumentRepository,
	chunks repository.ChunkRepository,
	handlers *preprocessing.Handlers,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		dispatcher: dispatcher,
		documents:  documents,
		cleaned:    cleaned,
		chunks:     chunks,
		handlers:   handlers,
		sink:       handoff.NopSink{},
		timeout:    5 * time.Minute,
		logger:     logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Process 处理单个链接
// 链接已入库时仍会重新清洗和分块，分块按ID覆盖写入
func (p *Pipeline) Process(ctx context.Context, link string, user models.User) (*Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	c := p.dispatcher.GetCrawler(link)
	result := &Result{Link: link, Crawler: c.Name()}
	log := p.logger.WithFields(logrus.Fields{
		"link":    link,
		"crawler": c.Name(),
	})

	start := time.Now()
	if err := c.Extract(ctx, link, user); err != nil {
		return result, fmt.Errorf("%s %s: %w", StageExtract, link, err)
	}
	p.metrics.ObserveStage(StageExtract, start)

	doc, err := p.documents.FindByLink(ctx, link)
	if errors.Is(err, models.ErrDocumentNotFound) {
		log.Warn("Crawler stored no document for link")
		result.Skipped = true
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("%s %s: load document: %w", StageExtract, link, err)
	}

	result.DocumentID = doc.ID
	result.Category = doc.Category
	log = log.WithField("document_id", doc.ID)

	chunks, err := p.cleanAndChunk(ctx, doc)
	if err != nil {
		return result, err
	}
	result.Chunks = len(chunks)

	start = time.Now()
	if err := p.sink.Deliver(ctx, chunks); err != nil {
		return result, fmt.Errorf("%s %s: %w", StageHandoff, link, err)
	}
	p.metrics.ObserveStage(StageHandoff, start)

	log.WithField("chunks", len(chunks)).Info("Link processed")
	return result, nil
}

// cleanAndChunk 按文档类别清洗、分块并保存
func (p *Pipeline) cleanAndChunk(ctx context.Context, doc *models.Document) ([]*models.Chunk, error) {
	start := time.Now()
	cleaner, err := p.handlers.Cleaner(doc.Category)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", StageClean, doc.Link, err)
	}
	cleanedDoc, err := cleaner.Clean(doc)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", StageClean, doc.Link, err)
	}
	if err := p.cleaned.Save(ctx, cleanedDoc); err != nil {
		return nil, fmt.Errorf("%s %s: save cleaned document: %w", StageClean, doc.Link, err)
	}
	p.metrics.ObserveStage(StageClean, start)

	start = time.Now()
	chunker, err := p.handlers.Chunker(doc.Category)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", StageChunk, doc.Link, err)
	}
	chunks, err := chunker.Chunk(cleanedDoc)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", StageChunk, doc.Link, err)
	}
	if err := p.chunks.SaveAll(ctx, chunks); err != nil {
		return nil, fmt.Errorf("%s %s: save chunks: %w", StageChunk, doc.Link, err)
	}
	p.metrics.ObserveStage(StageChunk, start)
	p.metrics.ChunksStored(string(doc.Category), len(chunks))

	return chunks, nil
}

// Reprocess 对已入库的文档重新清洗和分块，不会重新抓取
func (p *Pipeline) Reprocess(ctx context.Context, documentID string) (*Result, error) {
	doc, err := p.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	chunks, err := p.cleanAndChunk(ctx, doc)
	if err != nil {
		return nil, err
	}
	if err := p.sink.Deliver(ctx, chunks); err != nil {
		return nil, fmt.Errorf("%s %s: %w", StageHandoff, doc.Link, err)
	}

	return &Result{
		Link:       doc.Link,
		DocumentID: doc.ID,
		Category:   doc.Category,
		Chunks:     len(chunks),
	}, nil
}

// ProcessBatch 以最多concurrency个并发处理一批链接
// 单个链接失败不影响其他链接，所有失败合并后返回
func (p *Pipeline) ProcessBatch(ctx context.Context, links []string, user models.User, concurrency int) ([]*Result, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*Result, len(links))
	errs := make([]error, len(links))

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, link := range links {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = &Result{Link: link, Error: err.Error()}
				errs[i] = err
				return nil
			}

			res, err := p.Process(ctx, link, user)
			if res == nil {
				res = &Result{Link: link}
			}
			if err != nil {
				res.Error = err.Error()
				errs[i] = err
				p.logger.WithError(err).WithField("link", link).Error("Failed to process link")
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}
