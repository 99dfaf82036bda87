// Package fetch 抓取外部资源的HTTP客户端
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrBodyTooLarge 响应体超过配置的上限
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Fetcher 抓取接口
// 非2xx响应返回*StatusError，传输错误按配置重试后原样返回
type Fetcher interface {
	// Get 发送GET请求，params附加到查询串
	Get(ctx context.Context, rawURL string, params url.Values) (*Response, error)
	// PostJSON 以JSON发送payload，result非nil时解析JSON响应
	PostJSON(ctx context.Context, rawURL string, payload interface{}, result interface{}) error
}

// Response 完整读取后的HTTP响应
type Response struct {
	URL        string      // 最终请求的URL
	StatusCode int         // 状态码
	Header     http.Header // 响应头
	Body       []byte      // 响应体
}

// ContentType 返回Content-Type响应头
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// StatusError 表示非2xx的响应
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// HTTPClient 实现Fetcher接口
type HTTPClient struct {
	client  *http.Client
	config  *Config
	limiter *rate.Limiter
	headers map[string]string
	logger  *logrus.Logger
}

// Option 客户端配置选项
type Option func(*HTTPClient)

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// WithHTTPClient 替换底层http.Client
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithHeader 添加自定义请求头
func WithHeader(key, value string) Option {
	return func(c *HTTPClient) {
		c.headers[key] = value
	}
}

// NewClient 创建抓取客户端
func NewClient(config *Config, opts ...Option) *HTTPClient {
	if config == nil {
		config = DefaultConfig()
	}

	c := &HTTPClient{
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		config:  config,
		headers: map[string]string{"User-Agent": config.UserAgent},
		logger:  logrus.StandardLogger(),
	}

	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get 发送GET请求
func (c *HTTPClient) Get(ctx context.Context, rawURL string, params url.Values) (*Response, error) {
	target, err := withQuery(rawURL, params)
	if err != nil {
		return nil, err
	}

	return c.doWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
}

// PostJSON 发送JSON请求
func (c *HTTPClient) PostJSON(ctx context.Context, rawURL string, payload interface{}, result interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request data: %w", err)
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}

	if result != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response JSON: %w", err)
		}
	}
	return nil
}

// doWithRetry 执行请求，只重试传输错误
// 每次尝试前等待限速器
func (c *HTTPClient) doWithRetry(ctx context.Context, newRequest func() (*http.Request, error)) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := newRequest()
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for key, value := range c.headers {
			if req.Header.Get(key) == "" {
				req.Header.Set(key, value)
			}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			c.logger.WithFields(logrus.Fields{
				"url":     req.URL.String(),
				"attempt": attempt + 1,
				"error":   err,
			}).Warn("Request attempt failed")
			continue
		}

		return c.readResponse(req, resp)
	}

	return nil, lastErr
}

// readResponse 读取响应体并检查状态码
func (c *HTTPClient) readResponse(req *http.Request, resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if c.config.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, c.config.MaxBodyBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if c.config.MaxBodyBytes > 0 && int64(len(data)) > c.config.MaxBodyBytes {
		return nil, fmt.Errorf("%w: %s", ErrBodyTooLarge, req.URL)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := data
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	return &Response{
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// withQuery 合并查询参数
func withQuery(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
