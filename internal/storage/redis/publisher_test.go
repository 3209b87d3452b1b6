package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/z21-gateway/internal/gateway"
	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

// 使用测试用 Redis 客户端（需要真实 Redis 实例）
func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // 使用测试专用数据库
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available, skipping test")
	}

	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(ctx)
		_ = client.Close()
	})
	return client
}

func TestPublisher_PublishAndMirror(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	p := NewPublisher(client, "test:z21:", "test:z21:events", "gw-1", time.Minute)

	sub := client.Subscribe(ctx, p.Channel())
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	loco := z21.LocoInfo{Address: 3, Speed: 10, Direction: z21.DirectionForward, SpeedSteps: 128}
	require.NoError(t, p.Publish(ctx, gateway.Envelope{ID: "e1", Name: loco.EventName(), At: time.Now(), Event: loco}))

	select {
	case msg := <-sub.Channel():
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "LAN_X_LOCO_INFO", got["name"])
		assert.Equal(t, "gw-1", got["source"])
	case <-time.After(2 * time.Second):
		t.Fatal("event not published")
	}

	info, ok, err := p.LocoState(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10, info.Speed)
	assert.Equal(t, z21.DirectionForward, info.Direction)

	_, ok, err = p.LocoState(ctx, 4)
	require.NoError(t, err)
	assert.False(t, ok)

	ttl := client.TTL(ctx, "test:z21:locos").Val()
	assert.Greater(t, ttl, time.Duration(0))
}

func TestPublisher_StationAndTurnout(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	p := NewPublisher(client, "test:z21:", "", "", 0)
	assert.Equal(t, "test:z21:events", p.Channel())

	tr := z21.TurnoutInfo{Address: 5, Status: z21.TurnoutStatusStraight}
	require.NoError(t, p.Publish(ctx, gateway.Envelope{Name: tr.EventName(), Event: tr}))
	fw := z21.FirmwareVersion{Major: 1, Minor: 42}
	require.NoError(t, p.Publish(ctx, gateway.Envelope{Name: fw.EventName(), Event: fw}))

	got, ok, err := p.TurnoutState(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tr, got)

	raw, err := client.HGet(ctx, "test:z21:station", "LAN_X_GET_FIRMWARE_VERSION").Result()
	require.NoError(t, err)
	assert.JSONEq(t, `{"major":1,"minor":42}`, raw)
}

func TestPublisher_MirrorKey(t *testing.T) {
	p := NewPublisher(nil, "z21:", "", "x", 0)
	key, field, ok := p.mirrorKey(gateway.Envelope{Event: z21.FeedbackGroup{Group: 2}})
	assert.True(t, ok)
	assert.Equal(t, "z21:feedback", key)
	assert.Equal(t, "2", field)

	_, _, ok = p.mirrorKey(gateway.Envelope{Event: z21.UnrecognizedCode{Header: 0x9999}})
	assert.False(t, ok)
}
