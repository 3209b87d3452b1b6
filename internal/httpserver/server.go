package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/z21-gateway/internal/api/middleware"
	cfgpkg "github.com/taoyao-code/z21-gateway/internal/config"
	"github.com/taoyao-code/z21-gateway/internal/health"
	"github.com/taoyao-code/z21-gateway/internal/logging"
)

// Server HTTP 服务封装
type Server struct {
	srv    *http.Server
	engine *gin.Engine
	logger *zap.Logger
}

// New 创建并配置 Gin + HTTP Server，注册健康检查与指标路由；
// 业务路由通过 Engine() 由调用方注册
func New(cfg cfgpkg.HTTPConfig, metrics cfgpkg.MetricsConfig, metricsHandler http.Handler, agg *health.Aggregator, logger *zap.Logger) *Server {
	logger = logging.OrNop(logger)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestTracing(), middleware.AccessLog(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if agg == nil || agg.Ready(c.Request.Context()) {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	if agg != nil {
		health.RegisterHTTPRoutes(r, agg)
	}

	path := metrics.Path
	if path == "" {
		path = "/metrics"
	}
	if metrics.Enable && metricsHandler != nil {
		r.GET(path, gin.WrapH(metricsHandler))
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{srv: srv, engine: r, logger: logger}
}

// Engine 返回 gin 引擎以注册业务路由
func (s *Server) Engine() *gin.Engine { return s.engine }

// Start 启动 HTTP 服务（阻塞）；正常关闭时返回 nil
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve 在给定监听器上服务（测试用随机端口）
func (s *Server) Serve(ln net.Listener) error {
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
