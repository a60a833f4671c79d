package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/dpatinod/BataBot/internal/service"
)

// OrderHandler 订单处理器
type OrderHandler struct {
	svc *service.Services
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(svc *service.Services) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Orders 今天未结账的订单看板
func (h *OrderHandler) Orders(c *gin.Context) {
	orders, err := h.svc.Order.Board(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, orders)
}

// UpdateStateRequest /update_state 请求体
type UpdateStateRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	TableID string `json:"table_id"`
	State   string `json:"state" binding:"required"`
}

// UpdateState 推进一个订单的状态
func (h *OrderHandler) UpdateState(c *gin.Context) {
	var req UpdateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	order, err := h.svc.Order.UpdateState(c.Request.Context(), req.OrderID, req.TableID, req.State)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, order)
}
