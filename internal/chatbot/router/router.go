// Package router provides chatbot service routing.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/logger"
	"github.com/kart-io/providentia/internal/chatbot/handler"
)

// Middleware bundles the cross-cutting handlers applied to the API routes.
type Middleware struct {
	Auth      gin.HandlerFunc
	ChatLimit gin.HandlerFunc
	StatLimit gin.HandlerFunc
}

// Register registers the chatbot service routes.
func Register(engine *gin.Engine, chatHandler *handler.ChatHandler, healthHandler *handler.HealthHandler, mw Middleware) {
	logger.Info("Registering chatbot routes...")

	engine.GET("/healthz", healthHandler.Health)

	v1 := engine.Group("/v1")
	v1.Use(mw.Auth)
	{
		chat := v1.Group("", mw.ChatLimit)
		{
			chat.POST("/chat", chatHandler.Chat)
			chat.GET("/chat/history", chatHandler.History)
		}

		v1.GET("/stats", mw.StatLimit, chatHandler.Stats)
	}

	logger.Info("HTTP routes registered")
}
