package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder records one finished HTTP request.
type HTTPRecorder interface {
	RecordHTTP(method, path, status string, d time.Duration)
}

// Metrics returns a middleware that reports every request to rec. Routes are
// labelled by their registered pattern (e.g. /v1/sessions/:id) so ids do not
// explode label cardinality; unmatched routes use "unmatched".
func Metrics(rec HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rec == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		rec.RecordHTTP(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
