// Package response writes JSON responses and structured errors for gin handlers.
//
// Success bodies are written as-is. Errors are rendered as
//
//	{"code": 2001001, "message": "Invalid request parameters", "request_id": "..."}
//
// with the HTTP status carried by the *errors.Errno.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/storybook-rag/pkg/errors"
)

// RequestIDKey gin 上下文中保存请求 ID 的键。
const RequestIDKey = "request_id"

// ErrorBody 错误响应体。
type ErrorBody struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// MessageBody 仅包含提示信息的响应体。
type MessageBody struct {
	Message string `json:"message"`
}

// OK 以 200 写出 data。
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Message 以 200 写出提示信息。
func Message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, MessageBody{Message: msg})
}

// Fail 将任意错误转换为 Errno 并写出。未携带 Errno 的错误按内部错误处理，
// 原始错误信息不会返回给调用方。
func Fail(c *gin.Context, err error) {
	e := errors.FromError(err)
	if e == nil {
		e = errors.ErrInternal
	}
	c.AbortWithStatusJSON(e.HTTPStatus(), Error(c, e))
}

// Error 构造错误响应体。
func Error(c *gin.Context, e *errors.Errno) ErrorBody {
	return ErrorBody{
		Code:      e.Code,
		Message:   e.Message,
		RequestID: c.GetString(RequestIDKey),
	}
}
