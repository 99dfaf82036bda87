package document

import (
	"fmt"
	"io"
	"strings"
)

// PlainTextParser 纯文本解析器
type PlainTextParser struct{}

// NewPlainTextParser 创建一个新的纯文本解析器
func NewPlainTextParser() Parser {
	return &PlainTextParser{}
}

// Parse 读取纯文本，首个非空行作为标题
func (p *PlainTextParser) Parse(r io.Reader) (*Parsed, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read text content: %w", err)
	}

	text := string(content)
	parsed := &Parsed{Text: text}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parsed.Title = line
			break
		}
	}

	return parsed, nil
}
