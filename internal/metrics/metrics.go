// Package metrics 入库流程的Prometheus指标
// 所有方法对nil接收者安全，未启用指标时可直接传nil
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docingest"

// 文档抓取结果
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Metrics 指标集合
type Metrics struct {
	documents     *prometheus.CounterVec
	chunks        *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	tasks         *prometheus.CounterVec
	gatherer      prometheus.Gatherer
}

// New 在reg上注册指标，reg为nil时使用新的独立注册表
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		documents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents handled by crawlers, by crawler and outcome.",
		}, []string{"crawler", "outcome"}),
		chunks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Chunks written, by document category.",
		}, []string{"category"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		tasks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Queued ingest tasks processed, by outcome.",
		}, []string{"outcome"}),
		gatherer: reg,
	}
}

// DocumentOutcome 记录一次抓取结果
func (m *Metrics) DocumentOutcome(crawler, outcome string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(crawler, outcome).Inc()
}

// ChunksStored 记录写入的分块数
func (m *Metrics) ChunksStored(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.chunks.WithLabelValues(category).Add(float64(n))
}

// ObserveStage 记录从start开始的阶段耗时
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// TaskOutcome 记录队列任务结果
func (m *Metrics) TaskOutcome(outcome string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(outcome).Inc()
}

// Handler 返回/metrics的HTTP处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
