package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/z21-gateway/internal/config"
)

func TestNewClient(t *testing.T) {
	t.Run("未启用", func(t *testing.T) {
		_, err := NewClient(cfgpkg.RedisConfig{Enabled: false})
		assert.Error(t, err)
	})

	t.Run("地址为空", func(t *testing.T) {
		_, err := NewClient(cfgpkg.RedisConfig{Enabled: true})
		assert.Error(t, err)
	})

	t.Run("连接失败", func(t *testing.T) {
		_, err := NewClient(cfgpkg.RedisConfig{
			Enabled:     true,
			Addr:        "127.0.0.1:1",
			DialTimeout: 200 * time.Millisecond,
		})
		assert.ErrorContains(t, err, "redis ping failed")
	})

	t.Run("健康检查与统计", func(t *testing.T) {
		setupTestRedis(t)
		c, err := NewClient(cfgpkg.RedisConfig{Enabled: true, Addr: "localhost:6379", DB: 15, PoolSize: 2})
		require.NoError(t, err)
		defer c.Close()

		require.NoError(t, c.HealthCheck(context.Background()))
		assert.NotNil(t, c.Stats())
	})
}

func TestClientOptions(t *testing.T) {
	opts := clientOptions(cfgpkg.RedisConfig{
		Addr:         "redis:6379",
		Password:     "pw",
		DB:           3,
		PoolSize:     8,
		MinIdleConns: 2,
		DialTimeout:  time.Second,
	})
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 8, opts.PoolSize)
	assert.Equal(t, 2, opts.MinIdleConns)
	assert.Equal(t, time.Second, opts.DialTimeout)
}

func TestClientNewPublisher(t *testing.T) {
	c := &Client{cfg: cfgpkg.RedisConfig{KeyPrefix: "z21:", Channel: "layout"}}
	pub := c.NewPublisher("gw-1")
	assert.Equal(t, "layout", pub.Channel())
}
