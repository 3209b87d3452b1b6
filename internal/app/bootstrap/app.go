package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/z21-gateway/internal/api"
	"github.com/taoyao-code/z21-gateway/internal/api/middleware"
	cfgpkg "github.com/taoyao-code/z21-gateway/internal/config"
	"github.com/taoyao-code/z21-gateway/internal/gateway"
	"github.com/taoyao-code/z21-gateway/internal/health"
	"github.com/taoyao-code/z21-gateway/internal/httpserver"
	"github.com/taoyao-code/z21-gateway/internal/metrics"
	"github.com/taoyao-code/z21-gateway/internal/outbound"
	"github.com/taoyao-code/z21-gateway/internal/state"
	redisstorage "github.com/taoyao-code/z21-gateway/internal/storage/redis"
	"github.com/taoyao-code/z21-gateway/internal/transport"
)

// Run 统一启动流程，阻塞直到收到 SIGINT/SIGTERM
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, cfg, log)
}

// RunContext 启动网关与 HTTP 服务，ctx 取消后优雅关闭
func RunContext(ctx context.Context, cfg *cfgpkg.Config, log *zap.Logger) error {
	log.Info("starting z21 gateway",
		zap.String("name", cfg.App.Name),
		zap.String("device", cfg.Z21.DeviceAddr))

	// ========== 阶段1: 基础组件 ==========
	reg := metrics.NewRegistry()
	appm := metrics.NewAppMetrics(reg)
	store := state.New(2 * cfg.Z21.KeepaliveInterval)

	// ========== 阶段2: UDP 链路 ==========
	link, err := transport.Dial(cfg.Z21, log, appm)
	if err != nil {
		return fmt.Errorf("dial command station: %w", err)
	}

	// ========== 阶段3: 下行队列与上行处理 ==========
	worker := outbound.New(link, cfg.Z21.QueueSize, log, appm)
	handler := gateway.NewHandler(store, log, appm)
	keepalive := gateway.NewKeepalive(worker, cfg.Z21.KeepaliveInterval, cfg.Z21.SubscribeOnStart, log)

	healthAgg := health.NewAggregator(
		health.NewLinkChecker(link, worker, cfg.Z21.KeepaliveInterval, cfg.Z21.QueueSize),
		health.NewStationChecker(store),
	)
	control := api.NewControlHandler(worker, store, cfg.Z21.WriteTimeout+time.Second, log)

	// ========== 阶段4: Redis（可选）==========
	if cfg.Redis.Enabled {
		redisClient, err := redisstorage.NewClient(cfg.Redis)
		if err != nil {
			_ = link.Close()
			log.Error("redis initialization failed", zap.Error(err))
			return err
		}
		defer redisClient.Close()

		host, _ := os.Hostname()
		pub := redisClient.NewPublisher(host)
		handler.AddSink(pub)
		control.SetMirror(pub)
		healthAgg.AddChecker(health.NewRedisChecker(redisClient))
		log.Info("redis publisher enabled",
			zap.String("addr", cfg.Redis.Addr),
			zap.String("channel", pub.Channel()))
	}

	// ========== 阶段5: HTTP 服务 ==========
	httpSrv := httpserver.New(cfg.HTTP, cfg.Metrics, metrics.Handler(reg), healthAgg, log)
	api.RegisterRoutes(httpSrv.Engine(), control, middleware.AuthConfig{
		APIKeys: cfg.API.Auth.APIKeys,
		Enabled: cfg.API.Auth.Enabled,
	}, log)

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpSrv.Start()
	}()

	// ========== 阶段6: 网关主循环 ==========
	gw := gateway.New(link, worker, handler, keepalive, log)
	gwCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	gwErr := make(chan error, 1)
	go func() {
		gwErr <- gw.Run(gwCtx)
	}()
	log.Info("z21 gateway running",
		zap.String("local", link.LocalAddr().String()),
		zap.String("http", cfg.HTTP.Addr))

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-httpErr:
		if err != nil {
			log.Error("http server error", zap.Error(err))
			runErr = err
		}
	case err := <-gwErr:
		if err != nil {
			log.Error("gateway stopped", zap.Error(err))
			runErr = err
		}
		gwErr = nil
	}

	// ========== 优雅关闭 ==========
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown error", zap.Error(err))
	}
	cancel()
	if gwErr != nil {
		select {
		case err := <-gwErr:
			if err != nil && runErr == nil {
				runErr = err
			}
		case <-shutdownCtx.Done():
			log.Warn("gateway shutdown timed out")
		}
	}
	log.Info("z21 gateway stopped")
	return runErr
}
