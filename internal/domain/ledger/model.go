package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"tera-rewards-backend/internal/domain/account"
)

// Reason tags why a balance moved.
type Reason string

const (
	ReasonAdjust           Reason = "adjust"
	ReasonMiningSettlement Reason = "mining_settlement"
	ReasonDeposit          Reason = "deposit"
	ReasonWithdrawalHold   Reason = "withdrawal_hold"
	ReasonWithdrawalRefund Reason = "withdrawal_refund"
	ReasonSwapDebit        Reason = "swap_debit"
	ReasonSwapCredit       Reason = "swap_credit"
	ReasonReferralBonus    Reason = "referral_bonus"
)

// Entry is an immutable record of one balance mutation.
type Entry struct {
	ID         string              `json:"id"`
	AccountID  int64               `json:"account_id"`
	Kind       account.BalanceKind `json:"kind"`
	Delta      decimal.Decimal     `json:"delta"`
	Balance    decimal.Decimal     `json:"balance"`
	Reason     Reason              `json:"reason"`
	Reference  string              `json:"reference,omitempty"`
	OperatorID *int64              `json:"operator_id,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}
