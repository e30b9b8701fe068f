package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/storybook-rag/pkg/errors"
	"github.com/kart-io/storybook-rag/pkg/utils/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordedRequest struct {
	method, path, status string
}

type fakeRecorder struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (f *fakeRecorder) RecordHTTP(method, path, status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, recordedRequest{method, path, status})
}

func newEngine(rec HTTPRecorder) *gin.Engine {
	e := gin.New()
	e.Use(RequestIDWithGenerator(func() string { return "generated-id" }), Logger(DefaultLoggerConfig), Metrics(rec), Recovery())
	e.GET("/v1/sessions/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":         c.Param("id"),
			"request_id": GetRequestID(c.Request.Context()),
		})
	})
	e.GET("/panic", func(*gin.Context) { panic("boom") })
	return e
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"生成新 ID", "", "generated-id"},
		{"沿用调用方 ID", "caller-id", "caller-id"},
		{"超长 ID 被替换", strings.Repeat("x", maxRequestIDLen+1), "generated-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/sessions/s1", nil)
			if tt.header != "" {
				req.Header.Set(HeaderXRequestID, tt.header)
			}
			w := httptest.NewRecorder()
			newEngine(nil).ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Header().Get(HeaderXRequestID))

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body["request_id"])
		})
	}
}

func TestRequestIDDefaultGenerator(t *testing.T) {
	e := gin.New()
	e.Use(RequestID())
	e.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, w.Header().Get(HeaderXRequestID), 26)
}

func TestRecovery(t *testing.T) {
	w := httptest.NewRecorder()
	newEngine(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errors.ErrInternal.Code, body.Code)
	assert.Equal(t, "generated-id", body.RequestID)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestMetrics(t *testing.T) {
	rec := &fakeRecorder{}
	e := newEngine(rec)

	for _, path := range []string{"/v1/sessions/a", "/v1/sessions/b", "/missing", "/panic"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []recordedRequest{
		{http.MethodGet, "/v1/sessions/:id", "200"},
		{http.MethodGet, "/v1/sessions/:id", "200"},
		{http.MethodGet, "unmatched", "404"},
		{http.MethodGet, "/panic", "500"},
	}, rec.reqs)
}
