// Package preprocessing 按文档类别清洗和分块
package preprocessing

import (
	"fmt"
	"strings"

	"github.com/fyerfyer/doc-ingest/internal/document"
	"github.com/fyerfyer/doc-ingest/internal/models"
)

// FieldDelimiter 连接字段值的分隔符
const FieldDelimiter = " #### "

// CleaningHandler 清洗处理器接口
type CleaningHandler interface {
	// Category 处理器负责的文档类别
	Category() models.Category
	// Clean 将原始文档转为清洗后的文档
	Clean(doc *models.Document) (*models.CleanedDocument, error)
}

// fieldCleaner 拼接非空字段并规范化
type fieldCleaner struct {
	category   models.Category
	normalizer document.Normalizer
}

// NewCleaningHandler 根据类别创建清洗处理器
func NewCleaningHandler(category models.Category) (CleaningHandler, error) {
	switch category {
	case models.CategoryPDF:
		return &fieldCleaner{category: category, normalizer: document.TextNormalizer}, nil
	case models.CategoryArticles:
		// 文章正文来自HTML转Markdown，先去掉标记
		return &fieldCleaner{category: category, normalizer: document.MarkdownNormalizer}, nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}
}

// Category 实现CleaningHandler接口
func (c *fieldCleaner) Category() models.Category {
	return c.category
}

// Clean 按字段顺序规范化非空字段值，并用FieldDelimiter连接
func (c *fieldCleaner) Clean(doc *models.Document) (*models.CleanedDocument, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}
	if doc.Category != c.category {
		return nil, fmt.Errorf("%w: handler %s, document %s", models.ErrCategoryMismatch, c.category, doc.Category)
	}

	values := doc.Fields().NonEmptyValues()
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if normalized := c.normalizer.Normalize(v); normalized != "" {
			parts = append(parts, normalized)
		}
	}

	return &models.CleanedDocument{
		ID:             doc.ID,
		Category:       doc.Category,
		Content:        strings.Join(parts, FieldDelimiter),
		Link:           doc.Link,
		Platform:       doc.Platform,
		AuthorID:       doc.AuthorID,
		AuthorFullName: doc.AuthorFullName,
	}, nil
}
