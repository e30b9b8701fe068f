package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/kart-io/storybook-rag/pkg/utils/response"
)

// HeaderXRequestID is the header carrying the request id.
const HeaderXRequestID = "X-Request-ID"

// maxRequestIDLen bounds request ids accepted from callers.
const maxRequestIDLen = 64

type requestIDKey struct{}

// RequestID returns a middleware that reuses the caller's X-Request-ID or
// generates a new ULID. The id is echoed in the response header, stored in
// the gin context under response.RequestIDKey and in the request context.
func RequestID() gin.HandlerFunc {
	return RequestIDWithGenerator(func() string { return ulid.Make().String() })
}

// RequestIDWithGenerator is RequestID with a custom id generator.
func RequestIDWithGenerator(gen func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderXRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = gen()
		}

		c.Header(HeaderXRequestID, id)
		c.Set(response.RequestIDKey, id)
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), id))

		c.Next()
	}
}

// WithRequestID stores the request id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the request id from ctx, or "" when absent.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
