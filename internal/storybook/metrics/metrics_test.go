package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordQuery("answered")
	m.RecordQuery("answered")
	m.RecordSignal("filter", SignalDegraded)
	m.RecordLLMCall("answer", time.Second, nil)
	m.RecordLLMCall("answer", time.Second, errors.New("x"))
	m.RecordDocument("new", 12)
	m.RecordDocument("exists", 0)
	m.RecordHTTP("POST", "/v1/chat", "200", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalSignals.WithLabelValues("filter", SignalDegraded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMCallTotal.WithLabelValues("answer", "error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.ChunksIndexed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsIndexed.WithLabelValues("exists")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/v1/chat", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordQuery("answered")
		m.RecordSignal("vector", SignalOK)
		m.RecordRetrieval(time.Millisecond)
		m.RecordLLMCall("summary", time.Millisecond, nil)
		m.RecordDocument("new", 3)
		m.RecordHTTP("GET", "/healthz", "200", time.Millisecond)
	})
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
