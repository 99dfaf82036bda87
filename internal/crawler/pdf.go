package crawler

import (
	"bytes"
	"context"

	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/sirupsen/logrus"
)

// PDFCrawler 对象存储中PDF报告的爬虫
// 标题和正文总是经过敏感信息遮蔽
type PDFCrawler struct {
	base
}

// NewPDFCrawler 创建PDF爬虫
func NewPDFCrawler(deps Deps) Crawler {
	return &PDFCrawler{base: newBase("pdf", models.CategoryPDF, deps)}
}

// Extract 下载PDF，提取文本并保存
func (c *PDFCrawler) Extract(ctx context.Context, link string, user models.User) error {
	if found, err := c.skipExisting(ctx, link); err != nil || found {
		return err
	}

	log := c.log(link)
	log.Info("Starting scraping PDF")

	resp, err := c.deps.Fetcher.Get(ctx, link, nil)
	if err != nil {
		return c.fail(err)
	}

	parsed, err := c.deps.PDFParser.ParseBytes(resp.Body)
	if err != nil {
		return c.fail(err)
	}
	if parsed.Text == "" {
		log.WithField("pages", len(parsed.Pages)).Warn("PDF has no extractable text")
	}

	doc, err := c.newDocument(link, user, c.redactFields(models.NewFieldMap(
		"Title", parsed.Title,
		"Content", parsed.Text,
	)))
	if err != nil {
		return c.fail(err)
	}

	created, err := c.save(ctx, doc)
	if err != nil || !created {
		return err
	}

	c.archive(ctx, doc.ID, resp.Body)
	return nil
}

// archive 将原始PDF写入归档，失败只记录警告
func (c *PDFCrawler) archive(ctx context.Context, documentID string, body []byte) {
	if c.deps.Archive == nil {
		return
	}

	key := ArchiveKey(documentID)
	if _, err := c.deps.Archive.Put(ctx, key, bytes.NewReader(body), "application/pdf"); err != nil {
		c.deps.Logger.WithFields(logrus.Fields{
			"document_id": documentID,
			"key":         key,
			"error":       err,
		}).Warn("Failed to archive raw PDF")
	}
}

// ArchiveKey 原始PDF在归档中的键
func ArchiveKey(documentID string) string {
	return "pdf/" + documentID + ".pdf"
}
