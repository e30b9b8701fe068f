// Package metrics 提供故事书问答服务的 Prometheus 业务指标。
//
// 所有记录方法在 nil 接收者上是空操作，业务层可以不注入指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storybook_rag"

// 检索信号状态。
const (
	SignalOK       = "ok"
	SignalEmpty    = "empty"
	SignalDegraded = "degraded"
	SignalSkipped  = "skipped"
)

// Metrics 业务指标集合。
type Metrics struct {
	QueriesTotal        *prometheus.CounterVec
	RetrievalSignals    *prometheus.CounterVec
	RetrievalDuration   prometheus.Histogram
	LLMCallDuration     *prometheus.HistogramVec
	LLMCallTotal        *prometheus.CounterVec
	DocumentsIndexed    *prometheus.CounterVec
	ChunksIndexed       prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New 创建指标并注册到 reg。
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "queries_total",
			Help:      "Total number of answered chat turns by outcome",
		}, []string{"outcome"}),
		RetrievalSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "signals_total",
			Help:      "Retrieval signal results by signal and status",
		}, []string{"signal", "status"}),
		RetrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Hybrid retrieval duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5},
		}),
		LLMCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Generation call duration in seconds",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"purpose"}),
		LLMCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_total",
			Help:      "Total number of generation calls",
		}, []string{"purpose", "status"}),
		DocumentsIndexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Uploaded documents by ingestion status",
		}, []string{"status"}),
		ChunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Total number of chunks written to vector collections",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "path"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.QueriesTotal,
			m.RetrievalSignals,
			m.RetrievalDuration,
			m.LLMCallDuration,
			m.LLMCallTotal,
			m.DocumentsIndexed,
			m.ChunksIndexed,
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
		)
	}
	return m
}

// RecordQuery 记录一次聊天回合的结果。
func (m *Metrics) RecordQuery(outcome string) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
}

// RecordSignal 记录检索信号状态。
func (m *Metrics) RecordSignal(signal, status string) {
	if m == nil {
		return
	}
	m.RetrievalSignals.WithLabelValues(signal, status).Inc()
}

// RecordRetrieval 记录检索耗时。
func (m *Metrics) RecordRetrieval(d time.Duration) {
	if m == nil {
		return
	}
	m.RetrievalDuration.Observe(d.Seconds())
}

// RecordLLMCall 记录一次生成调用。
func (m *Metrics) RecordLLMCall(purpose string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.LLMCallTotal.WithLabelValues(purpose, status).Inc()
	m.LLMCallDuration.WithLabelValues(purpose).Observe(d.Seconds())
}

// RecordDocument 记录一次上传。
func (m *Metrics) RecordDocument(status string, chunks int) {
	if m == nil {
		return
	}
	m.DocumentsIndexed.WithLabelValues(status).Inc()
	if chunks > 0 {
		m.ChunksIndexed.Add(float64(chunks))
	}
}

// RecordHTTP 记录一次 HTTP 请求。
func (m *Metrics) RecordHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
