package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyerfyer/doc-ingest/api"
	"github.com/fyerfyer/doc-ingest/api/handler"
	"github.com/fyerfyer/doc-ingest/api/middleware"
	"github.com/fyerfyer/doc-ingest/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the ingestion HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root.configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			gin.SetMode(a.cfg.Server.Mode)
			middleware.SetLogger(a.logger)

			srv := &http.Server{
				Addr:              a.cfg.Server.Addr(),
				Handler:           api.SetupRouter(a.handlers()),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.WithField("addr", srv.Addr).Info("Server is running")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-quit:
			}
			a.logger.Info("Shutting down server...")

			ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}

			a.logger.Info("Server exited")
			return nil
		},
	}
}

// handlers 创建API处理器，未启用队列时不注册任务接口
func (a *app) handlers() api.Handlers {
	var queue taskqueue.Queue
	h := api.Handlers{
		Metrics: a.metrics,
		CORS:    a.cfg.Server.CORS,
		Health: map[string]api.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := a.db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
	}

	if a.queue != nil {
		queue = a.queue
		h.Tasks = handler.NewTaskHandler(a.queue)
		h.Health["queue"] = a.queue.Ping
	}

	h.Ingest = handler.NewIngestHandler(a.pipeline, queue)
	h.Documents = handler.NewDocumentHandler(a.documents, a.cleaned, a.chunks, a.pipeline, queue)
	return h
}
