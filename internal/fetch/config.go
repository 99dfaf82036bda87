package fetch

import (
	"time"
)

// Config HTTP抓取客户端配置
type Config struct {
	Timeout           time.Duration `mapstructure:"timeout"`             // 单次请求超时时间
	MaxRetries        int           `mapstructure:"max_retries"`         // 传输错误的最大重试次数
	RetryDelay        time.Duration `mapstructure:"retry_delay"`         // 重试间隔，按次数线性增加
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // 每秒请求数上限，0表示不限速
	Burst             int           `mapstructure:"burst"`               // 限速器的突发容量
	UserAgent         string        `mapstructure:"user_agent"`          // User-Agent请求头
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`      // 响应体大小上限，0表示不限制
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		MaxRetries:   2,
		RetryDelay:   time.Second,
		Burst:        1,
		UserAgent:    "doc-ingest/1.0",
		MaxBodyBytes: 50 << 20,
	}
}

// WithTimeout 设置请求超时时间
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithRetry 设置重试参数
func (c *Config) WithRetry(maxRetries int, retryDelay time.Duration) *Config {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
	return c
}

// WithRateLimit 设置限速参数
func (c *Config) WithRateLimit(rps float64, burst int) *Config {
	c.RequestsPerSecond = rps
	c.Burst = burst
	return c
}
