// Package crawler 按来源抓取文档并持久化为原始Document
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/fyerfyer/doc-ingest/internal/document"
	"github.com/fyerfyer/doc-ingest/internal/fetch"
	"github.com/fyerfyer/doc-ingest/internal/metrics"
	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/fyerfyer/doc-ingest/internal/redact"
	"github.com/fyerfyer/doc-ingest/internal/repository"
	"github.com/fyerfyer/doc-ingest/pkg/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ErrIdentifierNotFound 无法从链接中解析出来源标识符
var ErrIdentifierNotFound = errors.New("identifier not found in link")

// Crawler 来源爬虫接口
// 同一个link多次调用Extract最多产生一个Document
type Crawler interface {
	// Name 爬虫名称，用于日志和指标
	Name() string

	// Extract 抓取link并保存原始文档
	// link已存在或标识符无法解析时返回nil，传输和解析错误原样返回
	Extract(ctx context.Context, link string, user models.User) error
}

// Deps 爬虫依赖的协作者
type Deps struct {
	Fetcher        fetch.Fetcher                 // HTTP抓取
	Documents      repository.DocumentRepository // 原始文档仓储
	Redactor       *redact.Redactor              // 敏感信息遮蔽，nil时只使用内置规则
	PDFParser      *document.PDFParser           // PDF解析器，nil时使用默认配置
	Archive        storage.Storage               // 原始PDF归档，可选
	EUtils         EUtilsConfig                  // E-utilities配置
	RedactArticles bool                          // 是否遮蔽文章类正文
	Logger         *logrus.Logger
	Metrics        *metrics.Metrics
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.PDFParser == nil {
		d.PDFParser = document.NewPDFParser()
	}
	if d.EUtils.BaseURL == "" {
		d.EUtils.BaseURL = DefaultEUtilsConfig().BaseURL
	}
	return d
}

// Factory 爬虫工厂函数，每次调用返回新的爬虫实例
type Factory func(deps Deps) Crawler

// 按名称注册的爬虫，供配置使用
var factories = map[string]Factory{
	"article": NewArticleCrawler,
	"pdf":     NewPDFCrawler,
	"pubmed":  NewPubMedCrawler,
	"pmc":     NewPMCCrawler,
}

// FactoryByName 根据名称获取爬虫工厂
func FactoryByName(name string) (Factory, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown crawler %q", name)
	}
	return factory, nil
}

// SourceConfig 配置文件中的来源定义
type SourceConfig struct {
	Domain  string `mapstructure:"domain" validate:"required"`                               // 例如 https://arxiv.org
	Crawler string `mapstructure:"crawler" validate:"required,oneof=article pdf pubmed pmc"` // 爬虫名称
}

// base 各爬虫共用的去重和持久化逻辑
type base struct {
	name     string
	category models.Category
	deps     Deps
}

func newBase(name string, category models.Category, deps Deps) base {
	return base{name: name, category: category, deps: deps.withDefaults()}
}

// Name 返回爬虫名称
func (b *base) Name() string {
	return b.name
}

func (b *base) log(link string) *logrus.Entry {
	return b.deps.Logger.WithFields(logrus.Fields{
		"crawler": b.name,
		"link":    link,
	})
}

// exists 检查link是否已入库
func (b *base) exists(ctx context.Context, link string) (bool, error) {
	if _, err := b.deps.Documents.FindByLink(ctx, link); err != nil {
		if errors.Is(err, models.ErrDocumentNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existing document: %w", err)
	}
	return true, nil
}

// skipExisting 已入库时记录日志并返回true
func (b *base) skipExisting(ctx context.Context, link string) (bool, error) {
	found, err := b.exists(ctx, link)
	if err != nil {
		b.deps.Metrics.DocumentOutcome(b.name, metrics.OutcomeFailed)
		return false, err
	}
	if found {
		b.log(link).Info("Document already exists, skipping")
		b.deps.Metrics.DocumentOutcome(b.name, metrics.OutcomeSkipped)
	}
	return found, nil
}

// newDocument 根据字段构造待保存的文档
func (b *base) newDocument(link string, user models.User, fields models.FieldMap) (*models.Document, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("invalid link %q: %w", link, err)
	}

	return &models.Document{
		ID:             uuid.NewString(),
		Category:       b.category,
		Content:        datatypes.NewJSONType(fields),
		Link:           link,
		Platform:       u.Host,
		AuthorID:       user.ID,
		AuthorFullName: user.FullName,
	}, nil
}

// redactFields 遮蔽所有非空字段
// PDF中的标题等元数据与正文一样可能含有敏感信息
func (b *base) redactFields(fields models.FieldMap) models.FieldMap {
	redacted := make(models.FieldMap, 0, len(fields))
	for _, f := range fields {
		if f.Value != "" {
			f.Value = b.deps.Redactor.Redact(f.Value)
		}
		redacted = append(redacted, f)
	}
	return redacted
}

// save 保存文档，返回是否真正写入
// 并发写入同一link触发唯一约束时视为重复输入，不返回错误
func (b *base) save(ctx context.Context, doc *models.Document) (bool, error) {
	if err := b.deps.Documents.Create(ctx, doc); err != nil {
		if errors.Is(err, models.ErrDuplicateLink) {
			b.log(doc.Link).Info("Document was stored concurrently, treating as duplicate")
			b.deps.Metrics.DocumentOutcome(b.name, metrics.OutcomeDuplicate)
			return false, nil
		}
		b.deps.Metrics.DocumentOutcome(b.name, metrics.OutcomeFailed)
		return false, err
	}

	b.deps.Metrics.DocumentOutcome(b.name, metrics.OutcomeCreated)
	b.log(doc.Link).WithField("document_id", doc.ID).Info("Finished scraping document")
	return true, nil
}

// fail 记录失败指标并原样返回错误
func (b *base) fail(err error) error {
	b.deps.Metrics.DocumentOutcome(b.name, metrics.OutcomeFailed)
	return err
}
