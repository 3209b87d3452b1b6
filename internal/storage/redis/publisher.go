package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taoyao-code/z21-gateway/internal/gateway"
	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

// Redis Key 设计（均带 keyPrefix）
const (
	// {prefix}station -> Hash[事件名]事件 JSON
	keyStation = "station"
	// {prefix}locos -> Hash[地址]LAN_X_LOCO_INFO JSON
	keyLocos = "locos"
	// {prefix}turnouts -> Hash[地址]LAN_X_TURNOUT_INFO JSON
	keyTurnouts = "turnouts"
	// {prefix}feedback -> Hash[组号]LAN_RMBUS_DATACHANGED JSON
	keyFeedback = "feedback"
)

// publishedEvent 发布到频道的消息
type publishedEvent struct {
	gateway.Envelope
	Source string `json:"source"`
}

// Publisher 将上行事件发布到 Redis 频道，并把最新状态镜像到 Hash
type Publisher struct {
	client   redis.UniversalClient
	prefix   string
	channel  string
	ttl      time.Duration
	sourceID string
}

// NewPublisher sourceID 为空时生成随机实例 ID
func NewPublisher(client redis.UniversalClient, prefix, channel, sourceID string, ttl time.Duration) *Publisher {
	if sourceID == "" {
		sourceID = uuid.New().String()
	}
	if channel == "" {
		channel = prefix + "events"
	}
	return &Publisher{client: client, prefix: prefix, channel: channel, ttl: ttl, sourceID: sourceID}
}

// Channel 发布频道
func (p *Publisher) Channel() string { return p.channel }

// Publish 实现 gateway.EventSink
func (p *Publisher) Publish(ctx context.Context, env gateway.Envelope) error {
	msg, err := json.Marshal(publishedEvent{Envelope: env, Source: p.sourceID})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", env.Name, err)
	}
	body, err := json.Marshal(env.Event)
	if err != nil {
		return fmt.Errorf("marshal state %s: %w", env.Name, err)
	}

	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, p.channel, msg)
	if key, field, ok := p.mirrorKey(env); ok {
		pipe.HSet(ctx, key, field, body)
		if p.ttl > 0 {
			pipe.Expire(ctx, key, p.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", env.Name, err)
	}
	return nil
}

func (p *Publisher) mirrorKey(env gateway.Envelope) (key, field string, ok bool) {
	switch e := env.Event.(type) {
	case z21.LocoInfo:
		return p.prefix + keyLocos, strconv.Itoa(e.Address), true
	case z21.TurnoutInfo:
		return p.prefix + keyTurnouts, strconv.Itoa(e.Address), true
	case z21.FeedbackGroup:
		return p.prefix + keyFeedback, strconv.Itoa(e.Group), true
	case z21.UnrecognizedCode, z21.Empty:
		return "", "", false
	default:
		return p.prefix + keyStation, env.Name, true
	}
}

// LocoState 读取镜像中的机车状态
func (p *Publisher) LocoState(ctx context.Context, addr int) (z21.LocoInfo, bool, error) {
	var info z21.LocoInfo
	ok, err := p.load(ctx, p.prefix+keyLocos, strconv.Itoa(addr), &info)
	return info, ok, err
}

// TurnoutState 读取镜像中的道岔状态
func (p *Publisher) TurnoutState(ctx context.Context, addr int) (z21.TurnoutInfo, bool, error) {
	var info z21.TurnoutInfo
	ok, err := p.load(ctx, p.prefix+keyTurnouts, strconv.Itoa(addr), &info)
	return info, ok, err
}

func (p *Publisher) load(ctx context.Context, key, field string, v any) (bool, error) {
	b, err := p.client.HGet(ctx, key, field).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("hget %s %s: %w", key, field, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("unmarshal %s %s: %w", key, field, err)
	}
	return true, nil
}
