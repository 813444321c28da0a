// Package notifications messages operators on Telegram when a request enters
// the moderation queue.
package notifications

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tera-rewards-backend/internal/common/logger"
	"tera-rewards-backend/internal/domain/deposit"
	"tera-rewards-backend/internal/domain/withdrawal"
	"tera-rewards-backend/internal/service/events"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// AdminNotifier wraps a Publisher. Every event is forwarded unchanged; new
// deposit and withdrawal requests are additionally sent to each admin chat.
type AdminNotifier struct {
	next   events.Publisher
	bot    Sender
	admins []int64
	log    zerolog.Logger
}

var _ events.Publisher = (*AdminNotifier)(nil)

func NewAdminNotifier(next events.Publisher, bot Sender, admins []int64) *AdminNotifier {
	if next == nil {
		next = events.Nop{}
	}
	return &AdminNotifier{
		next:   next,
		bot:    bot,
		admins: admins,
		log:    logger.Component("notifications"),
	}
}

// Publish forwards e and notifies admins. Telegram failures are logged only.
func (n *AdminNotifier) Publish(ctx context.Context, e events.Event) error {
	err := n.next.Publish(ctx, e)
	if text, ok := buildMessage(e); ok {
		n.broadcast(ctx, text)
	}
	return err
}

func (n *AdminNotifier) broadcast(ctx context.Context, text string) {
	for _, id := range n.admins {
		if ctx.Err() != nil {
			return
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := n.bot.Send(msg); err != nil {
			n.log.Warn().Err(err).Int64("chat_id", id).Msg("Failed to notify admin")
		}
	}
}

func buildMessage(e events.Event) (string, bool) {
	switch p := e.Payload.(type) {
	case *deposit.Request:
		if e.Type != events.DepositSubmitted || p == nil {
			return "", false
		}
		return buildDepositMessage(p), true
	case *withdrawal.Request:
		if e.Type != events.WithdrawalCreated || p == nil {
			return "", false
		}
		return buildWithdrawalMessage(p), true
	}
	return "", false
}

func buildDepositMessage(d *deposit.Request) string {
	var b strings.Builder
	b.WriteString("<b>New deposit request</b>\n\n")
	fmt.Fprintf(&b, "Account: <code>%d</code>\n", d.AccountID)
	fmt.Fprintf(&b, "Amount: <b>%s TON</b>\n", d.Amount.String())
	fmt.Fprintf(&b, "Tx: <code>%s</code>\n", escapeHTML(d.TxHash))
	fmt.Fprintf(&b, "ID: <code>%s</code>", escapeHTML(d.ID))
	return b.String()
}

func buildWithdrawalMessage(w *withdrawal.Request) string {
	var b strings.Builder
	b.WriteString("<b>New withdrawal request</b>\n\n")
	fmt.Fprintf(&b, "Account: <code>%d</code>\n", w.AccountID)
	fmt.Fprintf(&b, "Type: %s\n", escapeHTML(string(w.WithdrawType)))
	fmt.Fprintf(&b, "Amount: <b>%s</b> (fee %s, payout %s)\n", w.Amount.String(), w.Fee.String(), w.FinalAmount.String())
	fmt.Fprintf(&b, "Wallet: <code>%s</code>\n", escapeHTML(w.WalletAddress))
	fmt.Fprintf(&b, "ID: <code>%s</code>", escapeHTML(w.ID))
	return b.String()
}

func escapeHTML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(s)
}
