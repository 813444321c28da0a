package notifications

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tera-rewards-backend/internal/domain/deposit"
	"tera-rewards-backend/internal/domain/withdrawal"
	"tera-rewards-backend/internal/service/events"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.err
}

type recorder struct {
	got []events.Event
	err error
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestAdminNotifier_DepositSubmitted(t *testing.T) {
	bot := &fakeSender{}
	next := &recorder{}
	n := NewAdminNotifier(next, bot, []int64{11, 12})

	d := &deposit.Request{ID: "dep-1", AccountID: 7, Amount: decimal.RequireFromString("100.5"), TxHash: "abc<def"}
	err := n.Publish(context.Background(), events.Event{Type: events.DepositSubmitted, AccountID: 7, Payload: d})
	require.NoError(t, err)

	require.Len(t, next.got, 1)
	require.Len(t, bot.sent, 2)
	assert.Equal(t, int64(11), bot.sent[0].ChatID)
	assert.Equal(t, int64(12), bot.sent[1].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, bot.sent[0].ParseMode)
	assert.Contains(t, bot.sent[0].Text, "100.5 TON")
	assert.Contains(t, bot.sent[0].Text, "abc&lt;def")
	assert.Contains(t, bot.sent[0].Text, "dep-1")
}

func TestAdminNotifier_WithdrawalSubmitted(t *testing.T) {
	bot := &fakeSender{}
	n := NewAdminNotifier(nil, bot, []int64{11})

	w := &withdrawal.Request{
		ID:           "wd-1",
		AccountID:    7,
		Amount:       decimal.NewFromInt(50),
		Fee:          decimal.NewFromInt(1),
		FinalAmount:  decimal.NewFromInt(49),
		WithdrawType: withdrawal.TypeProfit,
	}
	require.NoError(t, n.Publish(context.Background(), events.Event{Type: events.WithdrawalCreated, Payload: w}))
	require.Len(t, bot.sent, 1)
	assert.Contains(t, bot.sent[0].Text, "fee 1, payout 49")
	assert.Contains(t, bot.sent[0].Text, "profit")
}

func TestAdminNotifier_IgnoresOtherEvents(t *testing.T) {
	bot := &fakeSender{}
	n := NewAdminNotifier(&recorder{}, bot, []int64{11})

	ctx := context.Background()
	require.NoError(t, n.Publish(ctx, events.Event{Type: events.DepositApproved, Payload: &deposit.Request{ID: "d"}}))
	require.NoError(t, n.Publish(ctx, events.Event{Type: events.MiningStarted, Payload: map[string]string{"x": "y"}}))
	assert.Empty(t, bot.sent)
}

func TestAdminNotifier_Errors(t *testing.T) {
	boom := errors.New("stream down")
	bot := &fakeSender{err: errors.New("forbidden")}
	n := NewAdminNotifier(&recorder{err: boom}, bot, []int64{11})

	err := n.Publish(context.Background(), events.Event{Type: events.DepositSubmitted, Payload: &deposit.Request{ID: "d"}})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, bot.sent, 1)
}
