package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/fyerfyer/doc-ingest/internal/preprocessing"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig 在临时目录中写入配置文件
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel())
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.True(t, cfg.Cache.Enable)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.False(t, cfg.Queue.Enable)
	assert.Equal(t, "none", cfg.Handoff.Type)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, 5*time.Minute, cfg.Crawler.Timeout)
	assert.Contains(t, cfg.EUtils.BaseURL, "efetch")

	chunking := cfg.ChunkingConfigs()
	assert.Equal(t, preprocessing.DefaultChunkingConfig(models.CategoryPDF), chunking[models.CategoryPDF])
	assert.Equal(t, preprocessing.DefaultChunkingConfig(models.CategoryArticles), chunking[models.CategoryArticles])
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	t.Setenv("TEST_MINIO_SECRET", "s3cr3t")
	t.Setenv("SERVER_PORT", "9090")

	path := writeConfig(t, `
server:
  port: 8081
  cors: true
log:
  level: debug
  format: text
crawler:
  redact_articles: true
  sources:
    - domain: https://arxiv.org
      crawler: pdf
chunking:
  articles:
    min_length: 200
    max_length: 400
redaction:
  rules:
    - pattern: '(?i)patient\s+\w+'
      replacement: '[PATIENT]'
storage:
  type: minio
  minio:
    access_key: admin
    secret_key: ${TEST_MINIO_SECRET}
    bucket: raw
queue:
  enable: true
  redis_addr: redis:6379
worker:
  concurrency: 12
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// 环境变量优先于配置文件
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.CORS)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel())

	assert.True(t, cfg.Crawler.RedactArticles)
	require.Len(t, cfg.Crawler.Sources, 1)
	assert.Equal(t, "https://arxiv.org", cfg.Crawler.Sources[0].Domain)
	assert.Equal(t, "pdf", cfg.Crawler.Sources[0].Crawler)

	articles := cfg.ChunkingConfigs()[models.CategoryArticles]
	assert.Equal(t, preprocessing.StrategySemantic, articles.Strategy)
	assert.Equal(t, 200, articles.MinLength)
	assert.Equal(t, 400, articles.MaxLength)

	require.Len(t, cfg.Redaction.Rules, 1)
	assert.Equal(t, "[PATIENT]", cfg.Redaction.Rules[0].Replacement)

	assert.Equal(t, "s3cr3t", cfg.Storage.Minio.SecretKey)
	assert.Equal(t, "raw", cfg.Storage.Minio.Bucket)

	assert.True(t, cfg.Queue.Enable)
	assert.Equal(t, "redis:6379", cfg.Queue.RedisAddr)
	workerCfg := cfg.WorkerQueueConfig()
	assert.Equal(t, 12, workerCfg.Concurrency)
	assert.Equal(t, "redis:6379", workerCfg.RedisAddr)
	assert.Equal(t, 4, cfg.Queue.Concurrency, "queue config is not modified")
}

func TestLoad_UnsetVariableIsKept(t *testing.T) {
	path := writeConfig(t, `
eutils:
  api_key: ${DOCINGEST_TEST_UNSET_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${DOCINGEST_TEST_UNSET_KEY}", cfg.EUtils.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown chunking category", "chunking:\n  video:\n    strategy: fixed\n"},
		{"bad chunk bounds", "chunking:\n  articles:\n    min_length: 500\n    max_length: 100\n"},
		{"bad redaction pattern", "redaction:\n  rules:\n    - pattern: '(unclosed'\n      replacement: x\n"},
		{"unknown crawler", "crawler:\n  sources:\n    - domain: https://example.org\n      crawler: video\n"},
		{"queue without redis", "queue:\n  enable: true\n  redis_addr: ''\n"},
		{"http handoff without url", "handoff:\n  type: http\n"},
		{"bad log format", "log:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_QueueDisabledSkipsQueueValidation(t *testing.T) {
	cfg, err := Load(writeConfig(t, "queue:\n  enable: false\n  redis_addr: ''\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Queue.Enable)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("DOCINGEST_HOST", "db.internal")

	assert.Equal(t, "postgres://db.internal:5432", expandEnv("postgres://${DOCINGEST_HOST}:5432"))
	assert.Equal(t, "plain", expandEnv("plain"))
	assert.Equal(t, "${NOT_SET_ANYWHERE_123}", expandEnv("${NOT_SET_ANYWHERE_123}"))
}
