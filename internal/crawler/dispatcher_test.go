package crawler

import (
	"context"
	"testing"

	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher() *Dispatcher {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewDispatcher(Deps{Documents: newMemoryDocuments(), Logger: logger})
}

func TestDispatcher_BuiltinSources(t *testing.T) {
	d := newTestDispatcher().RegisterPDF().RegisterPubMed().RegisterPMC()

	tests := []struct {
		name string
		link string
		want interface{}
	}{
		{"pubmed bare", "https://pubmed.ncbi.nlm.nih.gov/12345/", &PubMedCrawler{}},
		{"pubmed www", "https://www.pubmed.ncbi.nlm.nih.gov/12345/", &PubMedCrawler{}},
		{"pmc bare", "https://pmc.ncbi.nlm.nih.gov/articles/PMC1/", &PMCCrawler{}},
		{"pmc www", "https://www.pmc.ncbi.nlm.nih.gov/articles/PMC1/", &PMCCrawler{}},
		{"s3 bare", "https://amazonaws.com/reports/a.pdf", &PDFCrawler{}},
		{"s3 www", "https://www.amazonaws.com/reports/a.pdf", &PDFCrawler{}},
		{"s3 bucket", "https://my-bucket.s3.us-east-1.amazonaws.com/reports/a.pdf", &PDFCrawler{}},
		{"s3 dotted bucket", "https://reports.2024.s3.eu-west-2.amazonaws.com/a.pdf", &PDFCrawler{}},
		{"unregistered", "https://example.org/foo", &ArticleCrawler{}},
		{"wrong scheme", "http://pubmed.ncbi.nlm.nih.gov/1", &ArticleCrawler{}},
		{"host suffix", "https://pubmed.ncbi.nlm.nih.gov.evil.com/1", &ArticleCrawler{}},
		{"legacy bucket host", "https://bucket.s3.amazonaws.com/a.pdf", &ArticleCrawler{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.IsType(t, tt.want, d.GetCrawler(tt.link))
		})
	}
}

func TestDispatcher_SameVariantForHostForms(t *testing.T) {
	d := newTestDispatcher().RegisterPDF().RegisterPubMed().RegisterPMC()

	for _, domain := range []string{"amazonaws.com", "pubmed.ncbi.nlm.nih.gov", "pmc.ncbi.nlm.nih.gov"} {
		bare := d.GetCrawler("https://" + domain + "/path")
		www := d.GetCrawler("https://www." + domain + "/path")
		assert.Equal(t, bare.Name(), www.Name(), domain)
		assert.NotEqual(t, "article", bare.Name(), domain)
	}

	bucket := d.GetCrawler("https://data.s3.us-west-2.amazonaws.com/x.pdf")
	assert.Equal(t, "pdf", bucket.Name())
}

func TestDispatcher_FreshInstances(t *testing.T) {
	d := newTestDispatcher().RegisterPubMed()

	a := d.GetCrawler("https://pubmed.ncbi.nlm.nih.gov/1")
	b := d.GetCrawler("https://pubmed.ncbi.nlm.nih.gov/1")
	assert.NotSame(t, a, b)

	fa := d.GetCrawler("https://example.org/a")
	fb := d.GetCrawler("https://example.org/a")
	assert.NotSame(t, fa, fb)
}

// 重叠的规则按注册顺序匹配
func TestDispatcher_RegistrationOrder(t *testing.T) {
	d := newTestDispatcher()
	require.NoError(t, d.Register("https://ncbi.nlm.nih.gov", NewPMCCrawler))
	require.NoError(t, d.Register("https://www.ncbi.nlm.nih.gov", NewPubMedCrawler))

	// 第一条规则也匹配 www. 前缀，因此第二条永远不会命中
	assert.Equal(t, "pmc", d.GetCrawler("https://www.ncbi.nlm.nih.gov/x").Name())

	d = newTestDispatcher()
	require.NoError(t, d.Register("https://www.ncbi.nlm.nih.gov", NewPubMedCrawler))
	require.NoError(t, d.Register("https://ncbi.nlm.nih.gov", NewPMCCrawler))
	assert.Equal(t, "pubmed", d.GetCrawler("https://www.ncbi.nlm.nih.gov/x").Name())
	assert.Equal(t, "pmc", d.GetCrawler("https://ncbi.nlm.nih.gov/x").Name())
}

func TestDispatcher_ReRegisterReplacesInPlace(t *testing.T) {
	d := newTestDispatcher().RegisterPubMed().RegisterPMC()
	require.NoError(t, d.Register("https://pubmed.ncbi.nlm.nih.gov", NewArticleCrawler))

	assert.Equal(t, []string{PubMedDomain, PMCDomain}, d.Domains())
	assert.Equal(t, "article", d.GetCrawler("https://pubmed.ncbi.nlm.nih.gov/1").Name())
}

func TestDispatcher_Register(t *testing.T) {
	d := newTestDispatcher()

	require.NoError(t, d.Register("arxiv.org", NewArticleCrawler))
	assert.Equal(t, []string{"https://arxiv.org"}, d.Domains())
	assert.Equal(t, "article", d.GetCrawler("https://arxiv.org/abs/1").Name())

	assert.Error(t, d.Register("https://", NewArticleCrawler))
	assert.Error(t, d.Register("https://ok.org", nil))
	assert.Error(t, d.Register("http://[::1", NewArticleCrawler))
}

func TestDispatcher_RegisterSources(t *testing.T) {
	d := newTestDispatcher()
	err := d.RegisterSources([]SourceConfig{
		{Domain: "https://reports.example.com", Crawler: "pdf"},
		{Domain: "https://pubmed.ncbi.nlm.nih.gov", Crawler: "pubmed"},
	})
	require.NoError(t, err)

	assert.Equal(t, "pdf", d.GetCrawler("https://reports.example.com/q1.pdf").Name())
	assert.Equal(t, "pubmed", d.GetCrawler("https://pubmed.ncbi.nlm.nih.gov/5").Name())

	err = d.RegisterSources([]SourceConfig{{Domain: "https://x.org", Crawler: "ftp"}})
	assert.Error(t, err)
}

func TestDispatcher_DispatchedCrawlerExtracts(t *testing.T) {
	repo := newMemoryDocuments()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	d := NewDispatcher(Deps{Documents: repo, Logger: logger}).RegisterPubMed()

	link := "https://pubmed.ncbi.nlm.nih.gov/7"
	repo.byLink[link] = &models.Document{ID: "existing", Link: link}

	require.NoError(t, d.GetCrawler(link).Extract(context.Background(), link, testUser))
	assert.Equal(t, 0, repo.creates)
}
