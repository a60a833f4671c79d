// Package handler 提供 HTTP 处理器
package handler

import "github.com/dpatinod/BataBot/internal/service"

// Handlers 处理器集合
type Handlers struct {
	Chat  *ChatHandler
	Order *OrderHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Chat:  NewChatHandler(svc),
		Order: NewOrderHandler(svc),
	}
}
