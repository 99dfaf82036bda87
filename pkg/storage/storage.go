// Package storage 原始抓取内容的对象存储
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("object not found")

// FileInfo 对象元数据
type FileInfo struct {
	Key      string // 对象键，例如 pdf/<document-id>.pdf
	Size     int64  // 大小(字节)
	MimeType string // MIME类型
}

// Storage 对象存储接口
// 键由调用方决定，同一个键重复写入会覆盖
type Storage interface {
	// Put 写入对象
	Put(ctx context.Context, key string, reader io.Reader, contentType string) (FileInfo, error)

	// Get 读取对象内容，不存在时返回ErrNotFound
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete 删除对象
	Delete(ctx context.Context, key string) error

	// List 列出指定前缀下的对象
	List(ctx context.Context, prefix string) ([]FileInfo, error)

	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)
}

// Config 存储配置
type Config struct {
	Type  string      `mapstructure:"type" validate:"omitempty,oneof=local minio none"` // local, minio, none
	Local LocalConfig `mapstructure:"local"`
	Minio MinioConfig `mapstructure:"minio"`
}

// Factory 存储实现的工厂函数
type Factory func(cfg Config) (Storage, error)

var factories = map[string]Factory{
	"local": func(cfg Config) (Storage, error) { return NewLocalStorage(cfg.Local) },
	"minio": func(cfg Config) (Storage, error) { return NewMinioStorage(cfg.Minio) },
}

// New 根据配置创建存储，Type为none或空时返回nil
func New(cfg Config) (Storage, error) {
	if cfg.Type == "" || cfg.Type == "none" {
		return nil, nil
	}
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
	return factory(cfg)
}

// cleanKey 规范化对象键，拒绝逃逸出根目录的键
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}

// getMimeType 简单根据扩展名判断MIME类型
func getMimeType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".html", ".htm":
		return "text/html"
	case ".xml":
		return "application/xml"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
