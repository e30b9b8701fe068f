// Package router provides storybook service routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/storybook-rag/internal/storybook/handler"
)

// Register registers the storybook service routes. metrics may be nil.
func Register(router gin.IRouter, h *handler.StorybookHandler, health *handler.HealthHandler, metrics http.Handler) {
	logger.Info("Registering storybook routes...")

	if health != nil {
		router.GET("/healthz", health.Healthz)
	}
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/documents", h.Upload)
		v1.POST("/chat", h.Chat)

		sessions := v1.Group("/sessions")
		{
			sessions.GET("", h.ListSessions)
			sessions.GET("/:id", h.GetSession)
			sessions.GET("/:id/messages", h.Messages)
			sessions.DELETE("/:id", h.DeleteSession)
		}
	}

	logger.Info("HTTP routes registered")
}
