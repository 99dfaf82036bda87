package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFParser PDF文档解析器
type PDFParser struct {
	validate bool // 解析前是否先做结构校验
}

// PDFOption PDF解析器配置选项
type PDFOption func(*PDFParser)

// WithValidation 设置是否在提取文本前校验PDF结构
func WithValidation(enabled bool) PDFOption {
	return func(p *PDFParser) {
		p.validate = enabled
	}
}

// NewPDFParser 创建一个新的PDF解析器
func NewPDFParser(opts ...PDFOption) *PDFParser {
	p := &PDFParser{validate: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse 读取全部内容后解析
func (p *PDFParser) Parse(r io.Reader) (*Parsed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf content: %w", err)
	}
	return p.ParseBytes(data)
}

// ParseBytes 解析PDF字节，按页提取文本
// 页文本以换行连接，标题取自文档信息字典
func (p *PDFParser) ParseBytes(data []byte) (parsed *Parsed, err error) {
	if p.validate {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		if err := api.Validate(bytes.NewReader(data), conf); err != nil {
			return nil, fmt.Errorf("invalid pdf: %w", err)
		}
	}

	// 底层库遇到损坏的对象流会panic
	defer func() {
		if r := recover(); r != nil {
			parsed = nil
			err = fmt.Errorf("failed to extract text from PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	// 扫描件没有文本层，Text为空由调用方处理
	return &Parsed{
		Title: strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text()),
		Text:  strings.Join(pages, "\n"),
		Pages: pages,
	}, nil
}
