package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

type memorySubmitter struct {
	mu   sync.Mutex
	cmds []string
	err  error
}

func (s *memorySubmitter) Submit(cmd z21.Command) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmds = append(s.cmds, cmd.Name())
	return "id", s.err
}

func (s *memorySubmitter) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cmds...)
}

func TestKeepalive_Run(t *testing.T) {
	sub := &memorySubmitter{}
	k := NewKeepalive(sub, 20*time.Millisecond, true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		k.Run(ctx)
		close(done)
	}()

	startup := len(k.StartupCommands())
	require.Eventually(t, func() bool { return len(sub.Names()) >= startup+2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	names := sub.Names()
	assert.Equal(t, "LAN_SET_BROADCASTFLAGS", names[0])
	for _, n := range names[startup:] {
		assert.Equal(t, "LAN_X_GET_STATUS", n)
	}
}

func TestKeepalive_NoSubscribe(t *testing.T) {
	k := NewKeepalive(&memorySubmitter{err: errors.New("full")}, 0, false, nil)
	for _, c := range k.StartupCommands() {
		assert.NotEqual(t, "LAN_SET_BROADCASTFLAGS", c.Name())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	k.Run(ctx)
}
