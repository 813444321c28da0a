package workers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	go_redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/common/logger"
)

const (
	streamKey     = "rewards:commands"
	consumerGroup = "rewards_backend_consumers"

	batchSize = 10
	// maxClaimPages bounds one reclaim pass over the pending list.
	maxClaimPages = 10
)

// Command types accepted on the stream. The admin bot is the usual producer.
const (
	CmdApproveDeposit    = "approve_deposit"
	CmdRejectDeposit     = "reject_deposit"
	CmdApproveWithdrawal = "approve_withdrawal"
	CmdRejectWithdrawal  = "reject_withdrawal"
	CmdStopMining        = "stop_mining"
	CmdToggleAccount     = "toggle_account"
)

// Commands is the slice of the rewards API the worker drives.
type Commands interface {
	ApproveDeposit(ctx context.Context, requestID, note string) error
	RejectDeposit(ctx context.Context, requestID, note string) error
	ApproveWithdrawal(ctx context.Context, requestID, note string) error
	RejectWithdrawal(ctx context.Context, requestID, note string) error
	StopMining(ctx context.Context, accountID int64) error
	ToggleAccount(ctx context.Context, accountID int64) error
}

// RedisStreamWorker consumes moderation commands from a Redis stream.
type RedisStreamWorker struct {
	rdb      go_redis.Cmdable
	cmds     Commands
	consumer string
	block    time.Duration
	// minIdle is how long a delivered but unacked command waits before it is
	// claimed again.
	minIdle time.Duration
	log     zerolog.Logger
}

func NewRedisStreamWorker(rdb go_redis.Cmdable, cmds Commands, consumer string) *RedisStreamWorker {
	return &RedisStreamWorker{
		rdb:      rdb,
		cmds:     cmds,
		consumer: consumer,
		block:    5 * time.Second,
		minIdle:  30 * time.Second,
		log:      logger.Component("commands"),
	}
}

// Start blocks reading the stream until ctx is cancelled.
func (w *RedisStreamWorker) Start(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, streamKey, consumerGroup, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		w.log.Error().Err(err).Msg("Error creating consumer group")
	}

	w.log.Info().Str("stream", streamKey).Str("consumer", w.consumer).Msg("Starting command worker")

	var lastClaim time.Time
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping command worker")
			return
		default:
			if time.Since(lastClaim) >= w.minIdle {
				lastClaim = time.Now()
				if err := w.reclaim(ctx); err != nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("Error reclaiming pending commands")
				}
			}
			if err := w.poll(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				w.log.Error().Err(err).Msg("Error reading from stream")
				time.Sleep(time.Second)
			}
		}
	}
}

// poll reads one batch and dispatches it. An empty read is not an error.
func (w *RedisStreamWorker) poll(ctx context.Context) error {
	entries, err := w.rdb.XReadGroup(ctx, &go_redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: w.consumer,
		Streams:  []string{streamKey, ">"},
		Count:    batchSize,
		Block:    w.block,
	}).Result()
	if errors.Is(err, go_redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, stream := range entries {
		for _, msg := range stream.Messages {
			w.consume(ctx, msg)
		}
	}
	return nil
}

// reclaim takes over commands that were delivered but never acked, from this or
// a dead consumer, once they have been idle for minIdle, and runs them again.
func (w *RedisStreamWorker) reclaim(ctx context.Context) error {
	start := "0-0"
	for page := 0; page < maxClaimPages; page++ {
		msgs, next, err := w.rdb.XAutoClaim(ctx, &go_redis.XAutoClaimArgs{
			Stream:   streamKey,
			Group:    consumerGroup,
			Consumer: w.consumer,
			MinIdle:  w.minIdle,
			Start:    start,
			Count:    batchSize,
		}).Result()
		if errors.Is(err, go_redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			w.log.Info().Str("message_id", msg.ID).Msg("Retrying pending command")
			w.consume(ctx, msg)
		}
		if next == "" || next == "0-0" {
			return nil
		}
		start = next
	}
	return nil
}

// consume handles one message and acks it unless the failure is transient.
// Unacked messages stay pending until reclaim picks them up again.
func (w *RedisStreamWorker) consume(ctx context.Context, msg go_redis.XMessage) {
	err := w.handle(ctx, msg.Values)
	ev := w.log.Info()
	switch {
	case err == nil:
	case isRetryable(err):
		w.log.Error().Err(err).Str("message_id", msg.ID).Msg("Command failed, leaving pending")
		return
	default:
		ev = w.log.Warn().Err(err)
	}
	ev.Str("message_id", msg.ID).Interface("type", msg.Values["type"]).Msg("Command processed")

	if err := w.rdb.XAck(ctx, streamKey, consumerGroup, msg.ID).Err(); err != nil {
		w.log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to ack command")
	}
}

func (w *RedisStreamWorker) handle(ctx context.Context, values map[string]interface{}) error {
	cmdType, _ := values["type"].(string)
	note, _ := values["note"].(string)

	switch cmdType {
	case CmdApproveDeposit, CmdRejectDeposit, CmdApproveWithdrawal, CmdRejectWithdrawal:
		id, _ := values["request_id"].(string)
		if id == "" {
			return apperrors.NewValidationError("request_id", "is required")
		}
		switch cmdType {
		case CmdApproveDeposit:
			return w.cmds.ApproveDeposit(ctx, id, note)
		case CmdRejectDeposit:
			return w.cmds.RejectDeposit(ctx, id, note)
		case CmdApproveWithdrawal:
			return w.cmds.ApproveWithdrawal(ctx, id, note)
		default:
			return w.cmds.RejectWithdrawal(ctx, id, note)
		}
	case CmdStopMining, CmdToggleAccount:
		raw, _ := values["account_id"].(string)
		accountID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return apperrors.NewValidationError("account_id", fmt.Sprintf("invalid value %q", raw))
		}
		if cmdType == CmdStopMining {
			return w.cmds.StopMining(ctx, accountID)
		}
		return w.cmds.ToggleAccount(ctx, accountID)
	}
	return apperrors.NewValidationError("type", fmt.Sprintf("unknown command %q", cmdType))
}

// isRetryable reports failures of the service itself; business outcomes such as
// NOT_PENDING are final.
func isRetryable(err error) bool {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.IsInternal()
	}
	return true
}
