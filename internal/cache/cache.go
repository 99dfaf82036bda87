// Package cache 键值缓存，用于记住已经入库的链接
package cache

import (
	"context"
	"strings"
	"time"
)

// Cache 缓存接口
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Factory 缓存工厂函数类型
type Factory func(config Config) (Cache, error)

// 注册的缓存实现
var registry = make(map[string]Factory)

// RegisterCache 注册缓存实现
func RegisterCache(name string, factory Factory) {
	registry[name] = factory
}

// NewCache 创建缓存实例
func NewCache(config Config) (Cache, error) {
	if factory, ok := registry[config.Type]; ok {
		return factory(config)
	}
	// 默认使用内存缓存
	return NewMemoryCache(config)
}

// Config 缓存配置
type Config struct {
	// 缓存类型: "memory", "redis"
	Type string `mapstructure:"type" validate:"omitempty,oneof=memory redis"`
	// Redis连接地址 (仅Redis缓存使用)
	RedisAddr string `mapstructure:"redis_addr"`
	// Redis密码 (仅Redis缓存使用)
	RedisPassword string `mapstructure:"redis_password"`
	// Redis数据库编号 (仅Redis缓存使用)
	RedisDB int `mapstructure:"redis_db"`
	// 键前缀，Clear只删除带该前缀的键 (仅Redis缓存使用)
	KeyPrefix string `mapstructure:"key_prefix"`
	// 默认缓存过期时间
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	// 自动清理间隔时间 (仅内存缓存使用)
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		KeyPrefix:       "docingest",
		DefaultTTL:      time.Hour * 24,
		CleanupInterval: time.Minute * 10,
	}
}

// GenerateCacheKey 生成标准化的缓存键
func GenerateCacheKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}
