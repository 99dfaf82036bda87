package crawler

import (
	"context"
	"regexp"

	"github.com/fyerfyer/doc-ingest/internal/metrics"
	"github.com/fyerfyer/doc-ingest/internal/models"
)

var pubmedIDPattern = regexp.MustCompile(`pubmed\.ncbi\.nlm\.nih\.gov/(\d+)`)

// ParsePubMedID 从链接中解析PubMed ID
func ParsePubMedID(link string) (string, error) {
	m := pubmedIDPattern.FindStringSubmatch(link)
	if m == nil {
		return "", ErrIdentifierNotFound
	}
	return m[1], nil
}

// PubMedCrawler PubMed摘要爬虫
type PubMedCrawler struct {
	base
	eutils *EUtilsClient
}

// NewPubMedCrawler 创建PubMed爬虫
func NewPubMedCrawler(deps Deps) Crawler {
	b := newBase("pubmed", models.CategoryArticles, deps)
	return &PubMedCrawler{
		base:   b,
		eutils: NewEUtilsClient(b.deps.Fetcher, b.deps.EUtils),
	}
}

// Extract 通过efetch获取摘要并保存
func (c *PubMedCrawler) Extract(ctx context.Context, link string, user models.User) error {
	if found, err := c.skipExisting(ctx, link); err != nil || found {
		return err
	}

	log := c.log(link)
	log.Info("Starting scraping PubMed article")

	pmid, err := ParsePubMedID(link)
	if err != nil {
		log.WithError(err).Error("Could not extract PubMed ID from link")
		c.deps.Metrics.DocumentOutcome(c.name, metrics.OutcomeSkipped)
		return nil
	}

	record, err := c.eutils.FetchPubMed(ctx, pmid)
	if err != nil {
		return c.fail(err)
	}
	if record.Abstract == "" {
		log.WithField("pmid", pmid).Warn("PubMed record has no abstract")
	}

	abstract := record.Abstract
	if c.deps.RedactArticles {
		abstract = c.deps.Redactor.Redact(abstract)
	}

	doc, err := c.newDocument(link, user, models.NewFieldMap(
		"Title", record.Title,
		"Journal", record.Journal,
		"Content", abstract,
		"language", record.Language,
	))
	if err != nil {
		return c.fail(err)
	}

	_, err = c.save(ctx, doc)
	return err
}
