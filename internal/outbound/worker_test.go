package outbound

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
)

type recordingSender struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
	gate   chan struct{} // 非 nil 时每次发送前等待
}

func (s *recordingSender) Send(ctx context.Context, b []byte) error {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, append([]byte(nil), b...))
	return nil
}

func (s *recordingSender) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

func TestWorker_SubmitWait(t *testing.T) {
	sender := &recordingSender{}
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	w := New(sender, 8, nil, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	id, err := w.SubmitWait(ctx, z21.SetTurnout{Address: 5, Position: z21.TurnoutStraight})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	frames := sender.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{0x09, 0x00, 0x40, 0x00, 0x53, 0x00, 0x04, 0xA9, 0xFE}, frames[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("LAN_X_SET_TURNOUT", "ok")))
	assert.Equal(t, int64(1), w.Stats().Sent)
}

func TestWorker_InvalidArgumentNotQueued(t *testing.T) {
	w := New(&recordingSender{}, 8, nil, nil)
	_, err := w.Submit(z21.SetTurnout{Address: 0})
	assert.ErrorIs(t, err, z21.ErrInvalidArgument)
	assert.Equal(t, 0, w.Len())
}

func TestWorker_EmergencyFirst(t *testing.T) {
	sender := &recordingSender{gate: make(chan struct{})}
	w := New(sender, 8, nil, nil)

	_, err := w.Submit(z21.GetStatus{})
	require.NoError(t, err)
	_, err = w.Submit(z21.SetLocoDrive{Address: 3, Speed: 20})
	require.NoError(t, err)
	_, err = w.Submit(z21.SetStop{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	for i := 0; i < 3; i++ {
		sender.gate <- struct{}{}
	}
	require.Eventually(t, func() bool { return len(sender.Frames()) == 3 }, 2*time.Second, 10*time.Millisecond)

	frames := sender.Frames()
	stop, _ := z21.SetStop{}.Encode()
	status, _ := z21.GetStatus{}.Encode()
	assert.Equal(t, stop, frames[0])
	assert.Equal(t, byte(0xE4), frames[1][4])
	assert.Equal(t, status, frames[2])
}

func TestWorker_SendError(t *testing.T) {
	sender := &recordingSender{err: errors.New("network unreachable")}
	w := New(sender, 8, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	_, err := w.SubmitWait(ctx, z21.GetVersion{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LAN_X_GET_VERSION")
	assert.Equal(t, int64(1), w.Stats().Failed)
}

func TestWorker_StopDrainsQueue(t *testing.T) {
	sender := &recordingSender{gate: make(chan struct{})}
	w := New(sender, 8, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := w.SubmitWait(context.Background(), z21.GetStatus{})
			results <- err
		}()
	}
	require.Eventually(t, func() bool { return w.Running() }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			assert.Error(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("pending request not finished")
		}
	}
}
