package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyerfyer/doc-ingest/pkg/taskqueue"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newWorkerCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run queue workers that execute the ingestion pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root.configPath, true)
			if err != nil {
				return err
			}
			defer a.Close()

			workerCfg := a.cfg.WorkerQueueConfig()
			worker := taskqueue.NewRedisWorker(a.queue, workerCfg)
			a.pipeline.RegisterTaskHandlers(worker)

			if err := worker.Start(); err != nil {
				return err
			}
			a.logger.WithFields(logrus.Fields{
				"concurrency": workerCfg.Concurrency,
				"queues":      workerCfg.Queues,
			}).Info("Worker started")

			var metricsSrv *http.Server
			if addr := a.cfg.Worker.MetricsAddr; addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", a.metrics.Handler())
				metricsSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.WithError(err).Error("Metrics server stopped")
					}
				}()
				a.logger.WithField("addr", addr).Info("Worker metrics listening")
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			a.logger.Info("Shutting down worker...")

			worker.Stop()
			if metricsSrv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = metricsSrv.Shutdown(ctx)
			}

			a.logger.Info("Worker exited")
			return nil
		},
	}
}
