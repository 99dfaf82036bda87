package document

import (
	"errors"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
)

// Parser 文档解析器接口
// 负责将抓取到的原始字节解析为带标题的纯文本
type Parser interface {
	// Parse 从Reader解析文档
	Parse(r io.Reader) (*Parsed, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// HTML 网页类型
	HTML ContentType = "html"
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// ErrUnsupportedType 不支持的文档类型
var ErrUnsupportedType = errors.New("unsupported document type")

// Parsed 解析后的文档结构
type Parsed struct {
	Title       string   // 文档标题（可选）
	Description string   // 摘要或meta描述（可选）
	Language    string   // 语言代码（可选）
	Text        string   // 正文文本
	Pages       []string // 按页的文本，仅PDF
}

// ParserFactory 解析器工厂函数，根据内容类型创建对应的解析器
func ParserFactory(contentType ContentType) (Parser, error) {
	switch contentType {
	case PDF:
		return NewPDFParser(), nil
	case HTML:
		return NewHTMLParser(), nil
	case Markdown:
		return NewMarkdownParser(), nil
	case PlainText:
		return NewPlainTextParser(), nil
	default:
		return nil, ErrUnsupportedType
	}
}

// DetectContentType 根据响应的Content-Type头检测内容类型
// 头缺失或为通用二进制类型时，退回到链接路径的扩展名
func DetectContentType(header, link string) ContentType {
	if mediaType, _, err := mime.ParseMediaType(header); err == nil {
		switch {
		case mediaType == "application/pdf":
			return PDF
		case mediaType == "text/html" || mediaType == "application/xhtml+xml":
			return HTML
		case mediaType == "text/markdown" || mediaType == "text/x-markdown":
			return Markdown
		case mediaType == "text/plain":
			// 很多静态服务器把.md当作text/plain返回
			if ct := contentTypeFromLink(link); ct == Markdown {
				return ct
			}
			return PlainText
		}
	}

	return contentTypeFromLink(link)
}

// contentTypeFromLink 根据链接扩展名检测内容类型
func contentTypeFromLink(link string) ContentType {
	p := link
	if u, err := url.Parse(link); err == nil {
		p = u.Path
	}

	switch strings.ToLower(path.Ext(p)) {
	case ".pdf":
		return PDF
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return PlainText
	case ".html", ".htm", "":
		return HTML
	default:
		return Unknown
	}
}
