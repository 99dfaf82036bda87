package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Category 文档来源类别
// 决定清洗和分块使用哪一种处理策略
type Category string

const (
	// CategoryArticles 文章类（网页文章、PubMed摘要、PMC全文）
	CategoryArticles Category = "articles"
	// CategoryPDF PDF报告
	CategoryPDF Category = "pdf"
)

// Valid 检查类别是否已知
func (c Category) Valid() bool {
	switch c {
	case CategoryArticles, CategoryPDF:
		return true
	default:
		return false
	}
}

// Field 有序字段映射中的一个字段
type Field struct {
	Name  string `json:"name"`  // 字段名，例如Title、Journal、Content
	Value string `json:"value"` // 字段值，空字符串表示字段缺失
}

// FieldMap 有序的命名文本字段集合
// 以JSON数组的形式持久化，以保留字段顺序
type FieldMap []Field

// NewFieldMap 按给定顺序构建字段映射
// pairs依次为 name, value, name, value...
func NewFieldMap(pairs ...string) FieldMap {
	fm := make(FieldMap, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fm = fm.Set(pairs[i], pairs[i+1])
	}
	return fm
}

// Set 设置字段值，已存在的字段保持原有位置
func (fm FieldMap) Set(name, value string) FieldMap {
	for i := range fm {
		if fm[i].Name == name {
			fm[i].Value = value
			return fm
		}
	}
	return append(fm, Field{Name: name, Value: value})
}

// Get 获取字段值
func (fm FieldMap) Get(name string) (string, bool) {
	for _, f := range fm {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Names 按顺序返回字段名
func (fm FieldMap) Names() []string {
	names := make([]string, 0, len(fm))
	for _, f := range fm {
		names = append(names, f.Name)
	}
	return names
}

// NonEmptyValues 按字段顺序返回所有非空字段值
func (fm FieldMap) NonEmptyValues() []string {
	values := make([]string, 0, len(fm))
	for _, f := range fm {
		if f.Value != "" {
			values = append(values, f.Value)
		}
	}
	return values
}

// User 调用方提供的用户上下文，用于作者归属
type User struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

// Document 爬虫产出的原始文档
// 每个link最多对应一个文档
type Document struct {
	ID             string                       `gorm:"primaryKey;size:36"`      // 文档ID (uuid v4)
	Category       Category                     `gorm:"size:20;not null;index"`  // 来源类别
	Content        datatypes.JSONType[FieldMap] `gorm:"type:json"`               // 有序命名字段
	Link           string                       `gorm:"not null;uniqueIndex"`    // 规范化的来源URL
	Platform       string                       `gorm:"size:255;not null;index"` // 来源域名
	AuthorID       string                       `gorm:"size:64;index"`           // 作者ID
	AuthorFullName string                       `gorm:"size:255"`                // 作者全名
	CreatedAt      time.Time                    `gorm:"not null;index"`          // 创建时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (d *Document) BeforeCreate(tx *gorm.DB) (err error) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	return nil
}

// TableName 明确指定表名
func (Document) TableName() string {
	return "documents"
}

// Fields 返回文档的有序字段
func (d *Document) Fields() FieldMap {
	return d.Content.Data()
}

// CleanedDocument 清洗后的文档
// 与Document一一对应，ID与原始文档相同
type CleanedDocument struct {
	ID             string    `gorm:"primaryKey;size:36"`     // 与原始文档相同的ID
	Category       Category  `gorm:"size:20;not null;index"` // 来源类别
	Content        string    `gorm:"type:text;not null"`     // 拼接并规范化后的文本
	Link           string    `gorm:"not null;index"`         // 来源URL
	Platform       string    `gorm:"size:255;not null"`      // 来源域名
	AuthorID       string    `gorm:"size:64;index"`          // 作者ID
	AuthorFullName string    `gorm:"size:255"`               // 作者全名
	UpdatedAt      time.Time `gorm:"not null"`               // 最后写入时间
}

// TableName 明确指定表名
func (CleanedDocument) TableName() string {
	return "cleaned_documents"
}

// Chunk 文本分块
// ID由内容哈希得出，相同文本总是得到相同ID
type Chunk struct {
	ID             string            `gorm:"primaryKey;size:36"`     // 内容寻址ID
	Category       Category          `gorm:"size:20;not null;index"` // 来源类别
	Content        string            `gorm:"type:text;not null"`     // 分块文本
	DocumentID     string            `gorm:"size:36;not null;index"` // 所属文档ID（非拥有引用）
	Position       int               `gorm:"not null;default:0"`     // 在文档中的位置
	Link           string            `gorm:"not null;index"`         // 来源URL
	Platform       string            `gorm:"size:255;not null"`      // 来源域名
	AuthorID       string            `gorm:"size:64"`                // 作者ID
	AuthorFullName string            `gorm:"size:255"`               // 作者全名
	Metadata       datatypes.JSONMap `gorm:"type:json"`              // 分块参数
	UpdatedAt      time.Time         `gorm:"not null"`               // 最后写入时间
}

// TableName 明确指定表名
func (Chunk) TableName() string {
	return "chunks"
}

// DocumentChunk 文档与分块的归属关系
// 相同文本的分块在chunks表中只有一行，每个文档仍保留自己完整的分块列表
type DocumentChunk struct {
	DocumentID string `gorm:"primaryKey;size:36"`
	ChunkID    string `gorm:"primaryKey;size:36;index"`
	Position   int    `gorm:"not null;default:0"` // 分块在该文档中的位置
}

// TableName 明确指定表名
func (DocumentChunk) TableName() string {
	return "document_chunks"
}
