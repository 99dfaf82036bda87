package document

import (
	"fmt"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
)

// 正文之外的噪声元素
const noiseSelector = "script, style, noscript, nav, header, footer, aside, form, iframe"

// 依次尝试的正文容器
var mainContentSelectors = []string{"article", "main", "[role=main]", "#content", "body"}

// HTMLParser 网页解析器
// 提取标题、描述和正文，正文转为Markdown以保留段落结构
type HTMLParser struct {
	converter *md.Converter
}

// NewHTMLParser 创建网页解析器
func NewHTMLParser() Parser {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &HTMLParser{converter: converter}
}

// Parse 解析HTML文档
func (p *HTMLParser) Parse(r io.Reader) (*Parsed, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	parsed := &Parsed{
		Title:       firstNonEmpty(metaContent(doc, "og:title"), doc.Find("title").First().Text(), doc.Find("h1").First().Text()),
		Description: firstNonEmpty(metaContent(doc, "description"), metaContent(doc, "og:description")),
		Language:    strings.TrimSpace(doc.Find("html").AttrOr("lang", "")),
	}

	doc.Find(noiseSelector).Remove()

	var main *goquery.Selection
	for _, selector := range mainContentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			main = sel
			break
		}
	}
	if main == nil {
		return parsed, nil
	}

	fragment, err := goquery.OuterHtml(main)
	if err != nil {
		return nil, fmt.Errorf("failed to render main content: %w", err)
	}

	text, err := p.converter.ConvertString(fragment)
	if err != nil {
		return nil, fmt.Errorf("failed to convert html to markdown: %w", err)
	}
	parsed.Text = strings.TrimSpace(text)

	return parsed, nil
}

// metaContent 读取name或property匹配的meta标签
func metaContent(doc *goquery.Document, key string) string {
	selector := fmt.Sprintf(`meta[name="%s"], meta[property="%s"]`, key, key)
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
