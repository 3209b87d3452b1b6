package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/z21-gateway/internal/api/middleware"
	"github.com/taoyao-code/z21-gateway/internal/logging"
)

// RegisterRoutes 注册控制接口路由
func RegisterRoutes(r gin.IRouter, h *ControlHandler, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if r == nil || h == nil {
		return
	}
	logger = logging.OrNop(logger)

	api := r.Group("/api/v1")
	if authCfg.Enabled {
		api.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	// 轨道与指令站
	api.POST("/track/on", h.TrackOn)
	api.POST("/track/off", h.TrackOff)
	api.POST("/track/stop", h.EmergencyStop)
	api.GET("/state", h.Snapshot)
	api.GET("/station", h.Station)
	api.POST("/station/refresh", h.RefreshStation)
	api.POST("/station/subscribe", h.Subscribe)

	// 机车
	api.GET("/locos/:addr", h.Loco)
	api.POST("/locos/:addr/drive", h.Drive)
	api.POST("/locos/:addr/functions/:fn", h.Function)
	api.POST("/locos/:addr/refresh", h.RefreshLoco)

	// 道岔
	api.GET("/turnouts/:addr", h.Turnout)
	api.POST("/turnouts/:addr", h.SetTurnout)
	api.POST("/turnouts/:addr/refresh", h.RefreshTurnout)

	// 反馈
	api.GET("/feedback/:group", h.Feedback)
	api.POST("/feedback/:group/refresh", h.RefreshFeedback)

	logger.Info("control routes registered", zap.Int("endpoints", 16))
}
