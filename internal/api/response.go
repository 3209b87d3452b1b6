package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taoyao-code/z21-gateway/internal/outbound"
	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

// StandardResponse 标准响应格式
type StandardResponse struct {
	Code      int    `json:"code"`           // 0=成功, >0=错误码
	Message   string `json:"message"`        // 消息
	Data      any    `json:"data,omitempty"` // 业务数据
	RequestID string `json:"request_id"`     // 请求追踪ID
	Timestamp int64  `json:"timestamp"`      // 时间戳
}

func respondOK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, StandardResponse{
		Code:      0,
		Message:   message,
		Data:      data,
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now().Unix(),
	})
}

func respondWithError(c *gin.Context, status int, message string) {
	c.JSON(status, StandardResponse{
		Code:      status,
		Message:   message,
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now().Unix(),
	})
}

// classifyError 下行错误 → HTTP 状态码
func classifyError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, z21.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, outbound.ErrQueueFull), errors.Is(err, outbound.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		// 数据报未能发往指令站
		return http.StatusBadGateway
	}
}
