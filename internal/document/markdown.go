package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"golang.org/x/net/html"
)

// MarkdownParser Markdown文档解析器
type MarkdownParser struct{}

// NewMarkdownParser 创建新的Markdown解析器
func NewMarkdownParser() Parser {
	return &MarkdownParser{}
}

// Parse 解析Markdown内容，第一个标题作为文档标题
func (p *MarkdownParser) Parse(r io.Reader) (*Parsed, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown content: %w", err)
	}

	doc := newMarkdownParser().Parse(content)

	parsed := &Parsed{Text: renderPlainText(doc)}
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if heading, ok := node.(*ast.Heading); ok && entering {
			parsed.Title = strings.TrimSpace(nodeText(heading))
			return ast.Terminate
		}
		return ast.GoToNext
	})

	return parsed, nil
}

// StripMarkdown 去除Markdown标记，保留可读文本
// 块级元素之间以换行分隔
func StripMarkdown(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return renderPlainText(newMarkdownParser().Parse([]byte(text)))
}

func newMarkdownParser() *parser.Parser {
	return parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
}

// renderPlainText 将Markdown语法树渲染为HTML后提取文本
func renderPlainText(doc ast.Node) string {
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.FlagsNone})
	rendered := markdown.Render(doc, renderer)
	return extractTextFromHTML(rendered)
}

// nodeText 收集节点下所有叶子节点的文本
func nodeText(node ast.Node) string {
	var sb strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if leaf := n.AsLeaf(); leaf != nil {
			sb.Write(leaf.Literal)
		}
		return ast.GoToNext
	})
	return sb.String()
}

// 渲染为独立一行的块级元素
var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true, "br": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "blockquote": true, "table": true, "ul": true, "ol": true,
	"section": true, "article": true, "figcaption": true, "dd": true, "dt": true,
}

// extractTextFromHTML 从HTML中提取纯文本
func extractTextFromHTML(content []byte) string {
	root, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return string(content)
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			sb.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteString("\n")
		}
	}
	walk(root)

	return normalizeLines(sb.String())
}

// normalizeLines 压缩每行内的空白并去掉空行
func normalizeLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
