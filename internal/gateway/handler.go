package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/z21-gateway/internal/logging"
	"github.com/taoyao-code/z21-gateway/internal/metrics"
	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
	"github.com/taoyao-code/z21-gateway/internal/state"
	"github.com/taoyao-code/z21-gateway/internal/transport"
)

// Envelope 对外发布的事件
type Envelope struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	At    time.Time `json:"at"`
	From  string    `json:"from,omitempty"`
	Event z21.Event `json:"event"`
}

// EventSink 事件下游（如 Redis 发布器）；失败只记录日志，不影响解码
type EventSink interface {
	Publish(ctx context.Context, env Envelope) error
}

// Handler 上行数据报处理：切分、分发、更新状态、发布事件
type Handler struct {
	store   *state.Store
	sinks   []EventSink
	logger  *zap.Logger
	metrics *metrics.AppMetrics
}

// NewHandler 构建上行处理器；store 可为 nil
func NewHandler(store *state.Store, logger *zap.Logger, m *metrics.AppMetrics, sinks ...EventSink) *Handler {
	return &Handler{store: store, sinks: sinks, logger: logging.OrNop(logger), metrics: m}
}

// AddSink 追加事件下游；须在 HandleDatagram 开始调用前完成
func (h *Handler) AddSink(s EventSink) { h.sinks = append(h.sinks, s) }

// HandleDatagram 处理一个数据报；单条记录失败不影响同一数据报中的其他记录
func (h *Handler) HandleDatagram(ctx context.Context, d transport.Datagram) {
	outcomes, err := z21.DecodeDatagram(d.Payload)
	if err != nil {
		var ee *z21.ExtractionError
		if errors.As(err, &ee) && h.metrics != nil {
			h.metrics.ExtractErrors.Inc()
		}
		h.logger.Warn("datagram framing truncated",
			zap.Error(err),
			zap.Int("records", len(outcomes)),
			zap.String("hex", z21.Record(d.Payload).String()))
	}

	from := ""
	if d.From != nil {
		from = d.From.String()
	}
	for _, o := range outcomes {
		if o.Err != nil {
			h.observe(messageLabel(o.Record), "error")
			h.logger.Warn("record decode failed",
				zap.Error(o.Err),
				zap.String("hex", o.Record.String()))
			continue
		}
		h.handleEvent(ctx, o.Event, d.At, from)
	}
}

func (h *Handler) handleEvent(ctx context.Context, ev z21.Event, at time.Time, from string) {
	switch e := ev.(type) {
	case z21.Empty:
		return
	case z21.UnrecognizedCode:
		h.observe(ev.EventName(), "unrecognized")
		h.logger.Debug("unrecognized record",
			zap.Uint16("header", e.Header),
			zap.Bool("has_x_header", e.HasXHeader),
			zap.Uint8("x_header", e.XHeader))
		return
	case z21.BroadcastStatus:
		if e.Status == z21.StatusUnknownCommand {
			h.logger.Warn("command station rejected a command as unknown")
		}
	}

	h.observe(ev.EventName(), "ok")
	if h.store != nil {
		h.store.Apply(ev, at)
	}
	if len(h.sinks) == 0 {
		return
	}

	env := Envelope{ID: uuid.New().String(), Name: ev.EventName(), At: at, From: from, Event: ev}
	for _, s := range h.sinks {
		if err := s.Publish(ctx, env); err != nil {
			h.logger.Warn("publish event failed", zap.String("event", env.Name), zap.Error(err))
		}
	}
}

func (h *Handler) observe(message, result string) {
	if h.metrics != nil {
		h.metrics.DecodeTotal.WithLabelValues(message, result).Inc()
	}
}

// messageLabel 解码失败的记录按报文头归类，避免指标标签无界
func messageLabel(rec z21.Record) string {
	hdr, ok := rec.Header()
	if !ok {
		return "short"
	}
	switch hdr {
	case z21.HeaderSerialNumber:
		return "LAN_GET_SERIAL_NUMBER"
	case z21.HeaderGetCode:
		return "LAN_GET_CODE"
	case z21.HeaderHwInfo:
		return "LAN_GET_HWINFO"
	case z21.HeaderXBus:
		return "LAN_X"
	case z21.HeaderGetBroadcastFlags:
		return "LAN_GET_BROADCASTFLAGS"
	case z21.HeaderRMBusDataChanged:
		return "LAN_RMBUS_DATACHANGED"
	case z21.HeaderSystemState:
		return "LAN_SYSTEMSTATE_DATACHANGED"
	default:
		return "other"
	}
}
