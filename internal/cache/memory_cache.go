package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache 基于go-cache的进程内缓存
// 键前缀的语义与RedisCache一致，Clear只删除带前缀的键
type MemoryCache struct {
	items  *gocache.Cache
	prefix string
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache(config Config) (Cache, error) {
	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cleanup := config.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}

	return &MemoryCache{
		items:  gocache.New(ttl, cleanup),
		prefix: config.KeyPrefix,
	}, nil
}

func (m *MemoryCache) key(key string) string {
	if m.prefix == "" {
		return key
	}
	return GenerateCacheKey(m.prefix, key)
}

// Get 读取缓存，值类型不是字符串时视为未命中
func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	value, found := m.items.Get(m.key(key))
	if !found {
		return "", false, nil
	}
	str, ok := value.(string)
	return str, ok, nil
}

// Set ttl为0时使用默认过期时间
func (m *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	m.items.Set(m.key(key), value, ttl)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.items.Delete(m.key(key))
	return nil
}

// Clear 删除本实例前缀下的所有键
func (m *MemoryCache) Clear(_ context.Context) error {
	if m.prefix == "" {
		m.items.Flush()
		return nil
	}
	for k := range m.items.Items() {
		if strings.HasPrefix(k, m.prefix+":") {
			m.items.Delete(k)
		}
	}
	return nil
}

// Len 当前未过期的条目数
func (m *MemoryCache) Len() int {
	return m.items.ItemCount()
}

func init() {
	RegisterCache("memory", NewMemoryCache)
}
