package crawler

import (
	"bytes"
	"context"
	"fmt"

	"github.com/fyerfyer/doc-ingest/internal/document"
	"github.com/fyerfyer/doc-ingest/internal/models"
)

// ArticleCrawler 通用网页文章爬虫，也是未注册域名的兜底爬虫
// 根据响应的内容类型选择解析器，HTML正文转换为markdown
type ArticleCrawler struct {
	base
}

// NewArticleCrawler 创建通用文章爬虫
func NewArticleCrawler(deps Deps) Crawler {
	return &ArticleCrawler{base: newBase("article", models.CategoryArticles, deps)}
}

// Extract 抓取网页并保存为文章
func (c *ArticleCrawler) Extract(ctx context.Context, link string, user models.User) error {
	if found, err := c.skipExisting(ctx, link); err != nil || found {
		return err
	}

	log := c.log(link)
	log.Info("Starting scraping article")

	resp, err := c.deps.Fetcher.Get(ctx, link, nil)
	if err != nil {
		return c.fail(err)
	}

	contentType := document.DetectContentType(resp.ContentType(), link)

	var parser document.Parser
	if contentType == document.PDF {
		parser = c.deps.PDFParser
	} else {
		parser, err = document.ParserFactory(contentType)
		if err != nil {
			return c.fail(fmt.Errorf("%w: %s", err, resp.ContentType()))
		}
	}

	parsed, err := parser.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return c.fail(err)
	}
	if parsed.Text == "" {
		log.WithField("content_type", contentType).Warn("Article has no main content")
	}

	fields := models.NewFieldMap(
		"Title", parsed.Title,
		"Subtitle", parsed.Description,
		"Content", parsed.Text,
		"language", parsed.Language,
	)
	switch {
	case contentType == document.PDF:
		// PDF来源的所有字段都要遮蔽
		fields = c.redactFields(fields)
	case c.deps.RedactArticles:
		fields = fields.Set("Content", c.deps.Redactor.Redact(parsed.Text))
	}

	doc, err := c.newDocument(link, user, fields)
	if err != nil {
		return c.fail(err)
	}

	_, err = c.save(ctx, doc)
	return err
}
