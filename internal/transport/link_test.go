package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/z21-gateway/internal/config"
	"github.com/taoyao-code/z21-gateway/internal/metrics"
	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

// fakeStation 本地回环上的模拟指令站
func fakeStation(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newTestLink(t *testing.T, station *net.UDPConn, verify bool) (*Link, *metrics.AppMetrics) {
	t.Helper()
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	l, err := Dial(cfgpkg.Z21Config{
		DeviceAddr:     station.LocalAddr().String(),
		LocalAddr:      "127.0.0.1:0",
		ReadBufferSize: z21.MaxDatagramSize,
		ReadTimeout:    50 * time.Millisecond,
		WriteTimeout:   time.Second,
		VerifySender:   verify,
	}, nil, m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, m
}

func TestLink_SendAndReceive(t *testing.T) {
	station := fakeStation(t)
	link, m := newTestLink(t, station, true)

	got := make(chan Datagram, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- link.Run(ctx, func(d Datagram) { got <- d }) }()

	frame, err := z21.GetSerialNumber{}.Encode()
	require.NoError(t, err)
	require.NoError(t, link.Send(ctx, frame))

	buf := make([]byte, 64)
	_ = station.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, client, err := station.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, frame, buf[:n])

	reply := []byte{0x08, 0x00, 0x10, 0x00, 0x01, 0x02, 0x03, 0x04}
	_, err = station.WriteToUDP(reply, client)
	require.NoError(t, err)

	select {
	case d := <-got:
		assert.Equal(t, reply, d.Payload)
		assert.False(t, d.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("datagram not delivered")
	}

	assert.False(t, link.LastReceived().IsZero())
	assert.False(t, link.LastSent().IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatagramsSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatagramsReceived))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLink_DropsForeignSender(t *testing.T) {
	station := fakeStation(t)
	link, m := newTestLink(t, station, true)

	got := make(chan Datagram, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = link.Run(ctx, func(d Datagram) { got <- d }) }()

	stranger := fakeStation(t)
	_, err := stranger.WriteToUDP([]byte{0x04, 0x00, 0x30, 0x00}, link.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	select {
	case <-got:
		t.Fatal("foreign datagram must be dropped")
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForeignDropped))
	assert.True(t, link.LastReceived().IsZero())
}

func TestLink_CloseStopsRun(t *testing.T) {
	station := fakeStation(t)
	link, _ := newTestLink(t, station, false)

	done := make(chan error, 1)
	go func() { done <- link.Run(context.Background(), func(Datagram) {}) }()

	require.NoError(t, link.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.ErrorIs(t, link.Send(context.Background(), []byte{0x04, 0x00, 0x30, 0x00}), ErrClosed)
}

func TestDial_BadAddr(t *testing.T) {
	_, err := Dial(cfgpkg.Z21Config{DeviceAddr: "not an addr"}, nil, nil)
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(0, 0)
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Equal(t, int64(10), l.Stats().AllowedTotal)
	assert.Equal(t, int64(0), l.Stats().WaitedTotal)

	slow := NewRateLimiter(1, 1)
	require.NoError(t, slow.Wait(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, slow.Wait(ctx))
	assert.Equal(t, int64(1), slow.Stats().WaitedTotal)
}
