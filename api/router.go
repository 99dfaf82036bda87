package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fyerfyer/doc-ingest/api/handler"
	"github.com/fyerfyer/doc-ingest/api/middleware"
	"github.com/fyerfyer/doc-ingest/internal/metrics"
	"github.com/gin-gonic/gin"
)

// HealthCheck 依赖健康检查，返回nil表示正常
type HealthCheck func(ctx context.Context) error

// Handlers 路由使用的处理器集合
type Handlers struct {
	Ingest    *handler.IngestHandler
	Documents *handler.DocumentHandler
	Tasks     *handler.TaskHandler   // 未配置任务队列时为nil
	Metrics   *metrics.Metrics       // 为nil时使用默认注册表
	Health    map[string]HealthCheck // 按名称的依赖检查
	CORS      bool                   // 是否允许跨域请求
}

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(h Handlers) *gin.Engine {
	router := gin.New()

	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())
	if h.CORS {
		router.Use(Cors())
	}

	// 在调试模式下记录请求体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
	}

	router.GET("/metrics", gin.WrapH(h.Metrics.Handler()))

	api := router.Group("/api")
	{
		// 链接入库 - POST /api/ingest
		api.POST("/ingest", h.Ingest.Ingest)

		docGroup := api.Group("/documents")
		{
			docGroup.GET("", h.Documents.ListDocuments)
			docGroup.GET("/:id", h.Documents.GetDocument)
			docGroup.GET("/:id/chunks", h.Documents.ListChunks)
			docGroup.POST("/:id/reprocess", h.Documents.Reprocess)
		}

		if h.Tasks != nil {
			taskGroup := api.Group("/tasks")
			{
				taskGroup.GET("", h.Tasks.GetTasksByKey)
				taskGroup.GET("/:id", h.Tasks.GetTaskStatus)
			}
		}

		api.GET("/health", healthHandler(h.Health))
	}

	return router
}

// healthHandler 依次执行依赖检查，任一失败时返回503
func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{
			"status":     overall,
			"components": components,
		})
	}
}

// Cors 跨域资源共享中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
