package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fyerfyer/doc-ingest/config"
	"github.com/fyerfyer/doc-ingest/internal/cache"
	"github.com/fyerfyer/doc-ingest/internal/crawler"
	"github.com/fyerfyer/doc-ingest/internal/database"
	"github.com/fyerfyer/doc-ingest/internal/document"
	"github.com/fyerfyer/doc-ingest/internal/fetch"
	"github.com/fyerfyer/doc-ingest/internal/handoff"
	"github.com/fyerfyer/doc-ingest/internal/metrics"
	"github.com/fyerfyer/doc-ingest/internal/pipeline"
	"github.com/fyerfyer/doc-ingest/internal/preprocessing"
	"github.com/fyerfyer/doc-ingest/internal/redact"
	"github.com/fyerfyer/doc-ingest/internal/repository"
	"github.com/fyerfyer/doc-ingest/pkg/storage"
	"github.com/fyerfyer/doc-ingest/pkg/taskqueue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

// app 命令共用的组件
type app struct {
	cfg        *config.Config
	logger     *logrus.Logger
	metrics    *metrics.Metrics
	db         *gorm.DB
	documents  repository.DocumentRepository
	cleaned    repository.CleanedDocumentRepository
	chunks     repository.ChunkRepository
	dispatcher *crawler.Dispatcher
	pipeline   *pipeline.Pipeline
	queue      *taskqueue.RedisQueue // 未启用队列时为nil
	closers    []func() error
}

// newApp 加载配置并初始化所有组件
// requireQueue为true时队列必须启用并可连接
func newApp(configPath string, requireQueue bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: setupLogger(cfg.Log, cfg.LogLevel())}

	if err := a.setup(requireQueue); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) setup(requireQueue bool) error {
	a.metrics = setupMetrics()

	db, err := database.Setup(&a.cfg.Database, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, database.Close)

	if err := a.setupRepositories(); err != nil {
		return err
	}

	archive, err := storage.New(a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	rules, err := redact.ParseRules(a.cfg.Redaction.Rules)
	if err != nil {
		return err
	}

	fetcher := fetch.NewClient(&a.cfg.Fetch, fetch.WithLogger(a.logger))

	a.dispatcher = crawler.NewDispatcher(crawler.Deps{
		Fetcher:        fetcher,
		Documents:      a.documents,
		Redactor:       redact.NewRedactor(rules...),
		PDFParser:      document.NewPDFParser(document.WithValidation(a.cfg.Crawler.ValidatePDF)),
		Archive:        archive,
		EUtils:         a.cfg.EUtils,
		RedactArticles: a.cfg.Crawler.RedactArticles,
		Logger:         a.logger,
		Metrics:        a.metrics,
	}).RegisterPDF().RegisterPubMed().RegisterPMC()

	if err := a.dispatcher.RegisterSources(a.cfg.Crawler.Sources); err != nil {
		return fmt.Errorf("failed to register crawler sources: %w", err)
	}
	a.logger.WithField("domains", a.dispatcher.Domains()).Info("Crawler dispatcher ready")

	handlers, err := preprocessing.NewHandlers(a.cfg.ChunkingConfigs())
	if err != nil {
		return fmt.Errorf("failed to initialize handlers: %w", err)
	}

	sink, err := handoff.New(a.cfg.Handoff, fetcher, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize handoff: %w", err)
	}

	a.pipeline = pipeline.New(a.dispatcher, a.documents, a.cleaned, a.chunks, handlers,
		pipeline.WithSink(sink),
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithTimeout(a.cfg.Crawler.Timeout),
	)

	if !a.cfg.Queue.Enable {
		if requireQueue {
			return fmt.Errorf("task queue is disabled, set queue.enable to use this command")
		}
		return nil
	}
	return a.setupQueue()
}

// setupRepositories 创建仓储，启用缓存时用缓存包装文档仓储
func (a *app) setupRepositories() error {
	a.documents = repository.NewDocumentRepositoryWithDB(a.db)
	a.cleaned = repository.NewCleanedDocumentRepository(a.db)
	a.chunks = repository.NewChunkRepository(a.db)

	if !a.cfg.Cache.Enable {
		return nil
	}

	c, err := cache.NewCache(a.cfg.Cache.Config)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	if closer, ok := c.(io.Closer); ok {
		a.closers = append(a.closers, closer.Close)
	}
	a.documents = repository.NewCachedDocumentRepository(a.documents, c, a.logger)

	a.logger.WithField("type", a.cfg.Cache.Type).Info("Document link cache enabled")
	return nil
}

func (a *app) setupQueue() error {
	queueCfg := a.cfg.Queue.Config
	a.logger.WithFields(logrus.Fields{
		"redis_addr":  queueCfg.RedisAddr,
		"queue":       queueCfg.Queue,
		"retry_limit": queueCfg.RetryLimit,
	}).Info("Setting up task queue")

	q, err := taskqueue.NewRedisQueue(&queueCfg, taskqueue.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("failed to initialize task queue: %w", err)
	}
	a.queue = q
	a.closers = append(a.closers, q.Close)
	return nil
}

// Close 按相反顺序释放资源
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.WithError(err).Warn("Failed to release resource")
		}
	}
	a.closers = nil
}

// setupLogger 按配置创建日志记录器，配置了文件时同时写入滚动日志文件
func setupLogger(cfg config.LogConfig, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}
	logger.SetOutput(out)

	return logger
}

// setupMetrics 创建带Go运行时和进程指标的注册表
func setupMetrics() *metrics.Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.New(reg)
}
