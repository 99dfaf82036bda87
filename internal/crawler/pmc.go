package crawler

import (
	"context"
	"regexp"
	"strings"

	"github.com/fyerfyer/doc-ingest/internal/metrics"
	"github.com/fyerfyer/doc-ingest/internal/models"
)

var pmcIDPattern = regexp.MustCompile(`/articles/(PMC\d+)`)

// ParsePMCID 从链接中解析PMC ID，例如 https://pmc.ncbi.nlm.nih.gov/articles/PMC9574204/
func ParsePMCID(link string) (string, error) {
	m := pmcIDPattern.FindStringSubmatch(link)
	if m == nil {
		return "", ErrIdentifierNotFound
	}
	return m[1], nil
}

// PMCCrawler PMC全文爬虫
type PMCCrawler struct {
	base
	eutils *EUtilsClient
}

// NewPMCCrawler 创建PMC爬虫
func NewPMCCrawler(deps Deps) Crawler {
	b := newBase("pmc", models.CategoryArticles, deps)
	return &PMCCrawler{
		base:   b,
		eutils: NewEUtilsClient(b.deps.Fetcher, b.deps.EUtils),
	}
}

// Extract 通过efetch获取全文并保存
func (c *PMCCrawler) Extract(ctx context.Context, link string, user models.User) error {
	if found, err := c.skipExisting(ctx, link); err != nil || found {
		return err
	}

	log := c.log(link)
	log.Info("Starting scraping PMC article")

	pmcid, err := ParsePMCID(link)
	if err != nil {
		log.WithError(err).Error("Could not extract PMC ID from link")
		c.deps.Metrics.DocumentOutcome(c.name, metrics.OutcomeSkipped)
		return nil
	}

	record, err := c.eutils.FetchPMC(ctx, pmcid)
	if err != nil {
		return c.fail(err)
	}

	fullText := strings.Join(record.Paragraphs, "\n\n")
	if fullText == "" {
		log.WithField("pmcid", pmcid).Warn("PMC record has no body paragraphs")
	}
	if c.deps.RedactArticles {
		fullText = c.deps.Redactor.Redact(fullText)
	}

	doc, err := c.newDocument(link, user, models.NewFieldMap(
		"Title", record.Title,
		"Journal", record.Journal,
		"Content", fullText,
	))
	if err != nil {
		return c.fail(err)
	}

	_, err = c.save(ctx, doc)
	return err
}
