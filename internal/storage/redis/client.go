package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	cfgpkg "github.com/taoyao-code/z21-gateway/internal/config"
)

// 未配置超时时的连接探测上限
const defaultPingTimeout = 5 * time.Second

// Client 事件发布与状态镜像使用的 Redis 连接
type Client struct {
	*redis.Client
	cfg cfgpkg.RedisConfig
}

// clientOptions 配置 → go-redis 选项；零值交给 go-redis 的默认值
func clientOptions(cfg cfgpkg.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// NewClient 建立连接并 PING 一次；Redis 是可选下游，未启用时返回错误由调用方跳过
func NewClient(cfg cfgpkg.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, errors.New("redis: not enabled")
	}
	if cfg.Addr == "" {
		return nil, errors.New("redis: empty addr")
	}

	c := &Client{Client: redis.NewClient(clientOptions(cfg)), cfg: cfg}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := c.HealthCheck(ctx); err != nil {
		_ = c.Client.Close()
		return nil, fmt.Errorf("redis ping failed (%s): %w", cfg.Addr, err)
	}
	return c, nil
}

// NewPublisher 按配置的前缀、频道与 TTL 创建事件发布器
func (c *Client) NewPublisher(sourceID string) *Publisher {
	return NewPublisher(c.Client, c.cfg.KeyPrefix, c.cfg.Channel, sourceID, c.cfg.StateTTL)
}

// Close 关闭连接池
func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// HealthCheck PING；供健康检查与启动探测使用
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Stats 连接池统计
func (c *Client) Stats() *redis.PoolStats {
	return c.PoolStats()
}
