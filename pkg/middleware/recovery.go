package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/storybook-rag/pkg/errors"
	"github.com/kart-io/storybook-rag/pkg/utils/response"
)

// Recovery returns a middleware that recovers from panics, logs the stack
// and answers with ErrInternal. The stack is never returned to the client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("Panic recovered",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"request_id", GetRequestID(c.Request.Context()),
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				response.Fail(c, errors.ErrInternal)
			}
		}()
		c.Next()
	}
}
