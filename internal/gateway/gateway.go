package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/z21-gateway/internal/logging"
	"github.com/taoyao-code/z21-gateway/internal/outbound"
	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
	"github.com/taoyao-code/z21-gateway/internal/transport"
)

// Gateway 组合 UDP 链路、下行队列、上行处理与保活
type Gateway struct {
	link      *transport.Link
	worker    *outbound.Worker
	handler   *Handler
	keepalive *Keepalive
	logger    *zap.Logger
}

func New(link *transport.Link, worker *outbound.Worker, handler *Handler, keepalive *Keepalive, logger *zap.Logger) *Gateway {
	return &Gateway{link: link, worker: worker, handler: handler, keepalive: keepalive, logger: logging.OrNop(logger)}
}

// Run 阻塞运行直至 ctx 取消；退出前向指令站发送 LAN_LOGOFF 并关闭链路
func (g *Gateway) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		g.worker.Run(ctx)
	}()
	if g.keepalive != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.keepalive.Run(ctx)
		}()
	}

	err := g.link.Run(ctx, func(d transport.Datagram) {
		g.handler.HandleDatagram(ctx, d)
	})
	wg.Wait()

	g.logoff()
	_ = g.link.Close()

	if errors.Is(err, context.Canceled) || errors.Is(err, transport.ErrClosed) {
		return nil
	}
	return err
}

// logoff 直接经链路发送，不经已停止的队列
func (g *Gateway) logoff() {
	frame, _ := z21.Logoff{}.Encode()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.link.Send(ctx, frame); err != nil {
		g.logger.Warn("logoff failed", zap.Error(err))
		return
	}
	g.logger.Info("logged off from command station")
}
