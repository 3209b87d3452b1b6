package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/z21-gateway/internal/metrics"
	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
	"github.com/taoyao-code/z21-gateway/internal/state"
	"github.com/taoyao-code/z21-gateway/internal/transport"
)

type memorySink struct {
	mu   sync.Mutex
	envs []Envelope
	err  error
}

func (s *memorySink) Publish(_ context.Context, env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envs = append(s.envs, env)
	return s.err
}

func (s *memorySink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.envs))
	for _, e := range s.envs {
		names = append(names, e.Name)
	}
	return names
}

func TestHandler_HandleDatagram(t *testing.T) {
	store := state.New(time.Minute)
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	sink := &memorySink{}
	h := NewHandler(store, nil, m, sink)

	payload := []byte{
		0x07, 0x00, 0x40, 0x00, 0x61, 0x01, 0x60, // 轨道上电
		0x09, 0x00, 0x40, 0x00, 0x43, 0x00, 0x04, 0x02, 0x00, // 校验错误
		0x09, 0x00, 0x40, 0x00, 0x43, 0x00, 0x04, 0x02, 0x45, // 道岔 5 直轨
		0x04, 0x00, 0x99, 0x99, // 未知报文
	}
	now := time.Now()
	h.HandleDatagram(context.Background(), transport.Datagram{Payload: payload, At: now})

	assert.Equal(t, []string{"LAN_X_BC", "LAN_X_TURNOUT_INFO"}, sink.Names())
	assert.Equal(t, state.TrackOn, store.Station().Track)
	tr, ok := store.Turnout(5)
	require.True(t, ok)
	assert.Equal(t, z21.TurnoutStatusStraight, tr.Status)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeTotal.WithLabelValues("LAN_X", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeTotal.WithLabelValues("UNRECOGNIZED", "unrecognized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeTotal.WithLabelValues("LAN_X_TURNOUT_INFO", "ok")))
}

func TestHandler_TruncatedAndSinkErrors(t *testing.T) {
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	sink := &memorySink{err: errors.New("redis down")}
	h := NewHandler(nil, nil, m, sink)

	h.HandleDatagram(context.Background(), transport.Datagram{
		Payload: []byte{0x07, 0x00, 0x40, 0x00, 0x81, 0x00, 0x81, 0x0A, 0x00},
		At:      time.Now(),
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractErrors))
	// 下游失败不影响后续记录
	assert.Equal(t, []string{"LAN_X_BC_STOPPED"}, sink.Names())
}
