package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/z21-gateway/internal/config"
	"github.com/taoyao-code/z21-gateway/internal/logging"
	"github.com/taoyao-code/z21-gateway/internal/metrics"
	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

// ErrClosed 链路已关闭
var ErrClosed = errors.New("transport: link closed")

// Datagram 一个来自指令站的数据报
type Datagram struct {
	Payload []byte
	From    *net.UDPAddr
	At      time.Time
}

// Sender 下行发送能力
type Sender interface {
	Send(ctx context.Context, b []byte) error
}

// Link 与指令站之间的 UDP 链路
// 指令站的应答与广播都发往本地端口，因此收发共用一个未连接的 socket
type Link struct {
	cfg     cfgpkg.Z21Config
	conn    *net.UDPConn
	device  *net.UDPAddr
	limiter *RateLimiter
	logger  *zap.Logger
	metrics *metrics.AppMetrics

	writeMu  sync.Mutex
	closed   atomic.Bool
	lastRecv atomic.Int64 // unix nano
	lastSend atomic.Int64
}

// Dial 绑定本地 UDP 端口并解析指令站地址
func Dial(cfg cfgpkg.Z21Config, logger *zap.Logger, m *metrics.AppMetrics) (*Link, error) {
	device, err := net.ResolveUDPAddr("udp4", cfg.DeviceAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve device addr %q: %w", cfg.DeviceAddr, err)
	}
	var local *net.UDPAddr
	if cfg.LocalAddr != "" {
		if local, err = net.ResolveUDPAddr("udp4", cfg.LocalAddr); err != nil {
			return nil, fmt.Errorf("resolve local addr %q: %w", cfg.LocalAddr, err)
		}
	}
	conn, err := net.ListenUDP("udp4", local)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = z21.MaxDatagramSize
	}

	l := &Link{
		cfg:     cfg,
		conn:    conn,
		device:  device,
		limiter: NewRateLimiter(cfg.SendRatePerSec, cfg.SendBurst),
		logger:  logging.OrNop(logger),
		metrics: m,
	}
	l.logger.Info("z21 link ready",
		zap.String("device", device.String()),
		zap.String("local", conn.LocalAddr().String()))
	return l, nil
}

// LocalAddr 本地绑定地址
func (l *Link) LocalAddr() net.Addr { return l.conn.LocalAddr() }

// LastReceived 最近一次收到指令站数据报的时间；从未收到时为零值
func (l *Link) LastReceived() time.Time { return unixNano(l.lastRecv.Load()) }

// LastSent 最近一次发送成功的时间
func (l *Link) LastSent() time.Time { return unixNano(l.lastSend.Load()) }

// LimiterStats 节流统计
func (l *Link) LimiterStats() RateLimiterStats { return l.limiter.Stats() }

// Send 将一条已编码的指令作为一个数据报发出（受节流与写超时约束）
func (l *Link) Send(ctx context.Context, b []byte) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send throttled: %w", err)
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if l.cfg.WriteTimeout > 0 {
		_ = l.conn.SetWriteDeadline(time.Now().Add(l.cfg.WriteTimeout))
	}
	if _, err := l.conn.WriteToUDP(b, l.device); err != nil {
		return fmt.Errorf("write to %s: %w", l.device, err)
	}
	l.lastSend.Store(time.Now().UnixNano())
	if l.metrics != nil {
		l.metrics.DatagramsSent.Inc()
	}
	l.logger.Debug("datagram sent", zap.Int("bytes", len(b)), zap.String("hex", z21.Record(b).String()))
	return nil
}

// Run 阻塞读取数据报并交给 handler，直至 ctx 取消或链路关闭
// 读超时仅用于周期性检查 ctx；VerifySender 打开时丢弃非指令站来源的数据报
func (l *Link) Run(ctx context.Context, handler func(Datagram)) error {
	buf := make([]byte, l.cfg.ReadBufferSize)
	readTimeout := l.cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = time.Second
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = l.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, from, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if l.closed.Load() || errors.Is(err, net.ErrClosed) {
				return ErrClosed
			}
			l.logger.Warn("udp read failed", zap.Error(err))
			continue
		}

		if l.cfg.VerifySender && !sameEndpoint(from, l.device) {
			if l.metrics != nil {
				l.metrics.ForeignDropped.Inc()
			}
			l.logger.Debug("datagram from unknown sender dropped", zap.String("from", from.String()))
			continue
		}

		now := time.Now()
		l.lastRecv.Store(now.UnixNano())
		if l.metrics != nil {
			l.metrics.DatagramsReceived.Inc()
			l.metrics.BytesReceived.Add(float64(n))
			l.metrics.LastDatagram.Set(float64(now.Unix()))
		}

		// 复制一份，避免 handler 持有复用的缓冲区
		payload := make([]byte, n)
		copy(payload, buf[:n])
		handler(Datagram{Payload: payload, From: from, At: now})
	}
}

// Close 关闭链路，Run 随即返回
func (l *Link) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return l.conn.Close()
}

func sameEndpoint(a, b *net.UDPAddr) bool {
	return a != nil && b != nil && a.IP.Equal(b.IP) && a.Port == b.Port
}

func unixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
