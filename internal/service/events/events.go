// Package events publishes domain events to the rewards:events Redis stream.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamKey is the stream consumers (admin bot, notifications) read from.
const StreamKey = "rewards:events"

// maxLen caps the stream length (approximate trimming).
const maxLen = 100000

// Type names an event.
type Type string

const (
	AccountRegistered  Type = "account_registered"
	AccountToggled     Type = "account_toggled"
	BalanceAdjusted    Type = "balance_adjusted"
	MiningStarted      Type = "mining_started"
	MiningStopped      Type = "mining_stopped"
	DepositSubmitted   Type = "deposit_submitted"
	DepositApproved    Type = "deposit_approved"
	DepositRejected    Type = "deposit_rejected"
	WithdrawalCreated  Type = "withdrawal_submitted"
	WithdrawalApproved Type = "withdrawal_approved"
	WithdrawalRejected Type = "withdrawal_rejected"
	SwapExecuted       Type = "swap"
	ReferrerLinked     Type = "referrer_linked"
)

// Event is one published message.
type Event struct {
	Type      Type
	AccountID int64
	Payload   interface{}
	At        time.Time
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// RedisPublisher appends events to a Redis stream with XADD.
type RedisPublisher struct {
	rdb    redis.Cmdable
	stream string
}

func NewRedisPublisher(rdb redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, stream: StreamKey}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: maxLen,
		Approx: true,
		Values: []interface{}{
			"type", string(e.Type),
			"account_id", e.AccountID,
			"payload", string(payload),
			"at", e.At.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
}
