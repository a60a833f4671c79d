// Package router 配置 HTTP 路由
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/dpatinod/BataBot/internal/handler"
	"github.com/dpatinod/BataBot/internal/middleware"
)

// SetupRouter 设置路由
// 端点保持根路径，前端和 WhatsApp 网关都按这些路径对接
func SetupRouter(h *handler.Handlers) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 会话
	r.POST("/message", h.Chat.Message)
	r.POST("/attachment", h.Chat.Attachment)
	r.POST("/vote", h.Chat.Vote)
	r.POST("/sessions", h.Chat.Sessions)
	r.POST("/get_one_session", h.Chat.GetOneSession)

	// 厨房看板
	r.POST("/orders", h.Order.Orders)
	r.POST("/update_state", h.Order.UpdateState)

	return r
}
