package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dpatinod/BataBot/pkg/logger"
)

// Response 统一响应
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// success 成功响应
func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// badRequest 参数错误响应
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: -1, Message: msg})
}

// errorResponse 按错误类型返回响应
// 后端细节（DSN、ES、模型错误）只进日志，客户端只看到固定文案
func errorResponse(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, Response{Code: -1, Message: "record not found"})
		return
	}

	logger.Error().
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Err(err).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, Response{Code: -1, Message: "internal server error"})
}
