package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/z21-gateway/internal/logging"
	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

// Submitter 下行入队能力
type Submitter interface {
	Submit(cmd z21.Command) (string, error)
}

// Keepalive 启动时订阅广播并拉取指令站信息，之后定期查询状态
// 指令站约 60 秒未收到客户端报文即将其注销
type Keepalive struct {
	out       Submitter
	interval  time.Duration
	subscribe bool
	logger    *zap.Logger
}

func NewKeepalive(out Submitter, interval time.Duration, subscribe bool, logger *zap.Logger) *Keepalive {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Keepalive{out: out, interval: interval, subscribe: subscribe, logger: logging.OrNop(logger)}
}

// StartupCommands 启动时依次下发的指令
func (k *Keepalive) StartupCommands() []z21.Command {
	var cmds []z21.Command
	if k.subscribe {
		cmds = append(cmds, z21.SetBroadcastFlags{})
	}
	return append(cmds,
		z21.GetSerialNumber{},
		z21.GetHwInfo{},
		z21.GetCode{},
		z21.GetVersion{},
		z21.GetFirmwareVersion{},
		z21.GetStatus{},
		z21.GetSystemState{},
	)
}

// Run 阻塞直至 ctx 取消
func (k *Keepalive) Run(ctx context.Context) {
	for _, cmd := range k.StartupCommands() {
		k.submit(cmd)
	}

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.submit(z21.GetStatus{})
		}
	}
}

func (k *Keepalive) submit(cmd z21.Command) {
	if _, err := k.out.Submit(cmd); err != nil {
		k.logger.Warn("keepalive submit failed", zap.String("command", cmd.Name()), zap.Error(err))
	}
}
