package crawler

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/fyerfyer/doc-ingest/internal/fetch"
)

// EUtilsConfig NCBI E-utilities配置
type EUtilsConfig struct {
	BaseURL string `mapstructure:"base_url"` // efetch地址
	APIKey  string `mapstructure:"api_key"`  // 可选，提高速率上限
	Email   string `mapstructure:"email"`    // 可选，NCBI建议提供
	Tool    string `mapstructure:"tool"`     // 可选，调用方工具名
}

// DefaultEUtilsConfig 返回默认配置
func DefaultEUtilsConfig() EUtilsConfig {
	return EUtilsConfig{
		BaseURL: "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi",
		Tool:    "doc-ingest",
	}
}

// EUtilsClient efetch客户端
type EUtilsClient struct {
	fetcher fetch.Fetcher
	config  EUtilsConfig
}

// NewEUtilsClient 创建efetch客户端
func NewEUtilsClient(fetcher fetch.Fetcher, config EUtilsConfig) *EUtilsClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultEUtilsConfig().BaseURL
	}
	return &EUtilsClient{fetcher: fetcher, config: config}
}

// Fetch 按数据库和标识符获取XML记录
func (c *EUtilsClient) Fetch(ctx context.Context, db, id string) ([]byte, error) {
	params := url.Values{}
	params.Set("db", db)
	params.Set("id", id)
	params.Set("retmode", "xml")
	if c.config.APIKey != "" {
		params.Set("api_key", c.config.APIKey)
	}
	if c.config.Email != "" {
		params.Set("email", c.config.Email)
	}
	if c.config.Tool != "" {
		params.Set("tool", c.config.Tool)
	}

	resp, err := c.fetcher.Get(ctx, c.config.BaseURL, params)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// PubMedRecord PubMed记录中提取的字段
type PubMedRecord struct {
	Title    string
	Journal  string
	Abstract string
	Language string
}

// FetchPubMed 获取并解析PubMed记录
func (c *EUtilsClient) FetchPubMed(ctx context.Context, pmid string) (*PubMedRecord, error) {
	data, err := c.Fetch(ctx, "pubmed", pmid)
	if err != nil {
		return nil, err
	}
	return ParsePubMed(data)
}

// PMCRecord PMC全文记录中提取的字段
type PMCRecord struct {
	Title      string
	Journal    string
	Paragraphs []string
}

// FetchPMC 获取并解析PMC全文
func (c *EUtilsClient) FetchPMC(ctx context.Context, pmcid string) (*PMCRecord, error) {
	data, err := c.Fetch(ctx, "pmc", pmcid)
	if err != nil {
		return nil, err
	}
	return ParsePMC(data)
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Article struct {
		Journal struct {
			Title xmlText `xml:"Title"`
		} `xml:"Journal"`
		ArticleTitle xmlText `xml:"ArticleTitle"`
		Abstract     struct {
			Sections []abstractText `xml:"AbstractText"`
		} `xml:"Abstract"`
		Language []string `xml:"Language"`
	} `xml:"MedlineCitation>Article"`
}

// ParsePubMed 解析efetch返回的PubmedArticleSet，只取第一篇
// 结构化摘要的各个部分以空行连接，带标签的部分加上"标签: "前缀
func ParsePubMed(data []byte) (*PubMedRecord, error) {
	var set pubmedArticleSet
	if err := newXMLDecoder(data).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to parse pubmed xml: %w", err)
	}

	record := &PubMedRecord{}
	if len(set.Articles) == 0 {
		return record, nil
	}

	article := set.Articles[0].Article
	record.Title = string(article.ArticleTitle)
	record.Journal = string(article.Journal.Title)
	if len(article.Language) > 0 {
		record.Language = strings.TrimSpace(article.Language[0])
	}

	var sections []string
	for _, s := range article.Abstract.Sections {
		if s.Text == "" {
			continue
		}
		if s.Label != "" {
			sections = append(sections, s.Label+": "+s.Text)
		} else {
			sections = append(sections, s.Text)
		}
	}
	record.Abstract = strings.Join(sections, "\n\n")

	return record, nil
}

// ParsePMC 解析efetch返回的JATS全文，只取第一个<article>
// 标题和期刊名取第一次出现的值，正文为<body>下所有<p>的完整文本
func ParsePMC(data []byte) (*PMCRecord, error) {
	d := newXMLDecoder(data)
	record := &PMCRecord{}

	inArticle := false
	bodyDepth := 0

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse pmc xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if !inArticle {
				inArticle = el.Name.Local == "article"
				continue
			}

			switch el.Name.Local {
			case "body":
				bodyDepth++
			case "article-title", "journal-title":
				text, err := collectText(d)
				if err != nil {
					return nil, fmt.Errorf("failed to parse pmc xml: %w", err)
				}
				if el.Name.Local == "article-title" && record.Title == "" {
					record.Title = text
				} else if el.Name.Local == "journal-title" && record.Journal == "" {
					record.Journal = text
				}
			case "p":
				if bodyDepth == 0 {
					continue
				}
				// 嵌套的<p>合并进外层段落
				text, err := collectText(d)
				if err != nil {
					return nil, fmt.Errorf("failed to parse pmc xml: %w", err)
				}
				if text != "" {
					record.Paragraphs = append(record.Paragraphs, text)
				}
			}

		case xml.EndElement:
			if !inArticle {
				continue
			}
			switch el.Name.Local {
			case "body":
				bodyDepth--
			case "article":
				return record, nil
			}
		}
	}

	return record, nil
}

func newXMLDecoder(data []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false
	d.Entity = xml.HTMLEntity
	return d
}

// collectText 读取当前元素的全部文本直到对应的结束标签，空白折叠为单个空格
func collectText(d *xml.Decoder) (string, error) {
	var b strings.Builder
	for depth := 1; depth > 0; {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch v := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(v)
		}
	}
	return strings.Join(strings.Fields(b.String()), " "), nil
}

// xmlText 元素内的全部文本，包括<i>、<sup>等内联标签中的文本
type xmlText string

func (t *xmlText) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	text, err := collectText(d)
	if err != nil {
		return err
	}
	*t = xmlText(text)
	return nil
}

// abstractText 摘要的一个部分
type abstractText struct {
	Label string
	Text  string
}

func (a *abstractText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "Label" {
			a.Label = attr.Value
		}
	}
	text, err := collectText(d)
	if err != nil {
		return err
	}
	a.Text = text
	return nil
}
