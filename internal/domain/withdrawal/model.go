package withdrawal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tera-rewards-backend/internal/domain/account"
	"tera-rewards-backend/internal/domain/request"
)

// Type selects the balance a withdrawal is paid from.
type Type string

const (
	TypeProfit   Type = "profit"
	TypeReferral Type = "referral"
	TypeBalance  Type = "balance"
)

// ParseType validates a wire value.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeProfit, TypeReferral, TypeBalance:
		return t, nil
	}
	return "", fmt.Errorf("unknown withdraw type %q", s)
}

// SourceBalance maps the withdraw type to the balance it debits.
func (t Type) SourceBalance() account.BalanceKind {
	switch t {
	case TypeProfit:
		return account.BalanceEarningProfit
	case TypeReferral:
		return account.BalanceEarningReferral
	case TypeBalance:
		return account.BalanceMain
	}
	panic(fmt.Sprintf("withdrawal: unhandled type %q", string(t)))
}

// Request is a payout to an external TON wallet, held against the source balance
// from submission until moderation.
type Request struct {
	ID            string          `json:"id"`
	AccountID     int64           `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
	WalletAddress string          `json:"wallet_address"`
	WithdrawType  Type            `json:"withdraw_type"`
	Status        request.Status  `json:"status"`
	AdminNote     string          `json:"admin_note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
}
