package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/fyerfyer/doc-ingest/internal/cache"
	"github.com/fyerfyer/doc-ingest/internal/crawler"
	"github.com/fyerfyer/doc-ingest/internal/database"
	"github.com/fyerfyer/doc-ingest/internal/fetch"
	"github.com/fyerfyer/doc-ingest/internal/handoff"
	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/fyerfyer/doc-ingest/internal/preprocessing"
	"github.com/fyerfyer/doc-ingest/internal/redact"
	"github.com/fyerfyer/doc-ingest/pkg/storage"
	"github.com/fyerfyer/doc-ingest/pkg/taskqueue"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server    ServerConfig                            `mapstructure:"server"`
	Log       LogConfig                               `mapstructure:"log"`
	Database  database.Config                         `mapstructure:"database"`
	Cache     CacheConfig                             `mapstructure:"cache"`
	Fetch     fetch.Config                            `mapstructure:"fetch"`
	EUtils    crawler.EUtilsConfig                    `mapstructure:"eutils"`
	Crawler   CrawlerConfig                           `mapstructure:"crawler"`
	Chunking  map[string]preprocessing.ChunkingConfig `mapstructure:"chunking" validate:"dive"` // 按类别的分块配置
	Redaction RedactionConfig                         `mapstructure:"redaction"`
	Storage   storage.Config                          `mapstructure:"storage"`
	Queue     QueueConfig                             `mapstructure:"queue"`
	Handoff   handoff.Config                          `mapstructure:"handoff"`
	Worker    WorkerConfig                            `mapstructure:"worker"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`                                               // 监听地址
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`                    // 监听端口
	Mode            string        `mapstructure:"mode" validate:"omitempty,oneof=debug release test"` // gin运行模式
	CORS            bool          `mapstructure:"cors"`                                               // 是否允许跨域请求
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`                                   // 优雅退出等待时间
}

// Addr 返回监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`         // 日志文件，为空时只输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // 单个日志文件的大小上限
	MaxBackups int    `mapstructure:"max_backups"`  // 保留的旧日志文件数
	MaxAgeDays int    `mapstructure:"max_age_days"` // 旧日志文件的保留天数
}

// CacheConfig 缓存配置
type CacheConfig struct {
	// 是否启用link缓存
	Enable       bool `mapstructure:"enable"`
	cache.Config `mapstructure:",squash"`
}

// CrawlerConfig 爬虫配置
type CrawlerConfig struct {
	Sources        []crawler.SourceConfig `mapstructure:"sources" validate:"dive"`      // 额外注册的来源
	RedactArticles bool                   `mapstructure:"redact_articles"`              // 是否对文章内容也做遮蔽
	ValidatePDF    bool                   `mapstructure:"validate_pdf"`                 // 提取文本前是否校验PDF结构
	Timeout        time.Duration          `mapstructure:"timeout"`                      // 单个链接的处理超时
	Concurrency    int                    `mapstructure:"concurrency" validate:"min=1"` // 批量入库的默认并发数
}

// RedactionConfig 遮蔽规则配置
type RedactionConfig struct {
	Rules []redact.RuleConfig `mapstructure:"rules" validate:"dive"` // 追加在内置规则之后
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	// 是否启用任务队列，未启用时不校验队列配置
	Enable           bool `mapstructure:"enable"`
	taskqueue.Config `mapstructure:",squash" validate:"-"`
}

// WorkerConfig 队列工作者配置
type WorkerConfig struct {
	Concurrency int            `mapstructure:"concurrency" validate:"gte=0"` // 覆盖queue.concurrency，0表示不覆盖
	Queues      map[string]int `mapstructure:"queues"`                       // 覆盖queue.queues
	MetricsAddr string         `mapstructure:"metrics_addr"`                 // 工作者暴露/metrics的地址，为空时不暴露
}

// WorkerQueueConfig 返回合并了worker覆盖项的队列配置
func (c *Config) WorkerQueueConfig() *taskqueue.Config {
	cfg := c.Queue.Config
	if c.Worker.Concurrency > 0 {
		cfg.Concurrency = c.Worker.Concurrency
	}
	if len(c.Worker.Queues) > 0 {
		cfg.Queues = c.Worker.Queues
	}
	return &cfg
}

// ChunkingConfigs 返回按类别的分块配置
func (c *Config) ChunkingConfigs() map[models.Category]preprocessing.ChunkingConfig {
	configs := make(map[models.Category]preprocessing.ChunkingConfig, len(c.Chunking))
	for name, cfg := range c.Chunking {
		configs[models.Category(name)] = cfg
	}
	return configs
}

// LogLevel 解析日志级别
func (c *Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// Load 从.env、配置文件和环境变量加载配置
// configPath为空时使用当前目录下的config.yaml，文件不存在时使用默认值
func Load(configPath string) (*Config, error) {
	// .env不存在不是错误
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	expandEnvironmentVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// 形如${VAR}的环境变量引用
var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvironmentVariables 替换所有字符串配置项中的${VAR}
// 环境变量未设置时保留原文
func expandEnvironmentVariables(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		value, ok := v.Get(key).(string)
		if !ok || !strings.Contains(value, "${") {
			continue
		}
		v.Set(key, expandEnv(value))
	}
}

func expandEnv(value string) string {
	return envRefPattern.ReplaceAllStringFunc(value, func(ref string) string {
		name := envRefPattern.FindStringSubmatch(ref)[1]
		if env, ok := os.LookupEnv(name); ok {
			return env
		}
		return ref
	})
}

var validate = validator.New()

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	for name, chunking := range c.Chunking {
		category := models.Category(name)
		if !category.Valid() {
			return fmt.Errorf("invalid config: chunking.%s: %w", name, models.ErrUnknownCategory)
		}
		if _, err := preprocessing.NewChunkingHandler(category, chunking); err != nil {
			return fmt.Errorf("invalid config: chunking.%s: %w", name, err)
		}
	}

	if _, err := redact.ParseRules(c.Redaction.Rules); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Queue.Enable {
		if err := validate.Struct(c.Queue.Config); err != nil {
			return fmt.Errorf("invalid config: queue: %w", err)
		}
	}
	return nil
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors", false)
	v.SetDefault("server.shutdown_timeout", "10s")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	// 数据库默认配置
	db := database.DefaultConfig()
	v.SetDefault("database.type", db.Type)
	v.SetDefault("database.dsn", db.DSN)
	v.SetDefault("database.max_open_conns", db.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", db.MaxIdleConns)
	v.SetDefault("database.max_lifetime", db.MaxLifetime)

	// 缓存默认配置
	c := cache.DefaultConfig()
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", c.Type)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.key_prefix", c.KeyPrefix)
	v.SetDefault("cache.default_ttl", c.DefaultTTL)
	v.SetDefault("cache.cleanup_interval", c.CleanupInterval)

	// 抓取默认配置
	f := fetch.DefaultConfig()
	v.SetDefault("fetch.timeout", f.Timeout)
	v.SetDefault("fetch.max_retries", f.MaxRetries)
	v.SetDefault("fetch.retry_delay", f.RetryDelay)
	v.SetDefault("fetch.requests_per_second", f.RequestsPerSecond)
	v.SetDefault("fetch.burst", f.Burst)
	v.SetDefault("fetch.user_agent", f.UserAgent)
	v.SetDefault("fetch.max_body_bytes", f.MaxBodyBytes)

	// NCBI E-utilities默认配置
	e := crawler.DefaultEUtilsConfig()
	v.SetDefault("eutils.base_url", e.BaseURL)
	v.SetDefault("eutils.api_key", "")
	v.SetDefault("eutils.email", "")
	v.SetDefault("eutils.tool", e.Tool)

	// 爬虫默认配置
	v.SetDefault("crawler.redact_articles", false)
	v.SetDefault("crawler.validate_pdf", true)
	v.SetDefault("crawler.timeout", "5m")
	v.SetDefault("crawler.concurrency", 4)

	// 分块默认配置
	for _, category := range []models.Category{models.CategoryArticles, models.CategoryPDF} {
		cc := preprocessing.DefaultChunkingConfig(category)
		prefix := "chunking." + string(category)
		v.SetDefault(prefix+".strategy", string(cc.Strategy))
		v.SetDefault(prefix+".chunk_size", cc.ChunkSize)
		v.SetDefault(prefix+".chunk_overlap", cc.ChunkOverlap)
		v.SetDefault(prefix+".min_length", cc.MinLength)
		v.SetDefault(prefix+".max_length", cc.MaxLength)
	}

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local.path", "./data/archive")
	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.access_key", "")
	v.SetDefault("storage.minio.secret_key", "")
	v.SetDefault("storage.minio.use_ssl", false)
	v.SetDefault("storage.minio.bucket", "docingest")

	// 队列默认配置
	q := taskqueue.DefaultConfig()
	v.SetDefault("queue.enable", false)
	v.SetDefault("queue.redis_addr", q.RedisAddr)
	v.SetDefault("queue.redis_password", "")
	v.SetDefault("queue.redis_db", q.RedisDB)
	v.SetDefault("queue.queue", q.Queue)
	v.SetDefault("queue.concurrency", q.Concurrency)
	v.SetDefault("queue.retry_limit", q.RetryLimit)
	v.SetDefault("queue.retry_delay", q.RetryDelay)
	v.SetDefault("queue.queues", q.Queues)

	// 分块下游默认配置
	h := handoff.DefaultConfig()
	v.SetDefault("handoff.type", h.Type)
	v.SetDefault("handoff.url", "")
	v.SetDefault("handoff.batch_size", h.BatchSize)

	// 工作者默认配置
	v.SetDefault("worker.concurrency", 0)
	v.SetDefault("worker.metrics_addr", "")
}
