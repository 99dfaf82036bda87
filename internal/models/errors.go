package models

import "errors"

var (
	// ErrDocumentNotFound 文档不存在错误
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDuplicateLink 同一link的文档已存在
	ErrDuplicateLink = errors.New("document with this link already exists")

	// ErrCategoryMismatch 处理器与文档类别不匹配
	ErrCategoryMismatch = errors.New("document category does not match handler")

	// ErrUnknownCategory 未知的文档类别
	ErrUnknownCategory = errors.New("unknown document category")
)
