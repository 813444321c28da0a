package swap

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tera-rewards-backend/internal/domain/account"
)

// Currency is one side of the fixed-rate exchange.
type Currency string

const (
	CurrencyTON  Currency = "TON"
	CurrencyTERA Currency = "TERA"
)

// ParseCurrency validates a wire value (case-insensitive).
func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case CurrencyTON, CurrencyTERA:
		return c, nil
	}
	return "", fmt.Errorf("unknown currency %q", s)
}

// Counterpart returns the currency a swap from c produces.
func (c Currency) Counterpart() Currency {
	switch c {
	case CurrencyTON:
		return CurrencyTERA
	case CurrencyTERA:
		return CurrencyTON
	}
	panic(fmt.Sprintf("swap: unhandled currency %q", string(c)))
}

// Balance returns the account balance backing the currency.
func (c Currency) Balance() account.BalanceKind {
	switch c {
	case CurrencyTON:
		return account.BalanceMain
	case CurrencyTERA:
		return account.BalanceTera
	}
	panic(fmt.Sprintf("swap: unhandled currency %q", string(c)))
}

// Transaction is the immutable audit record of one swap.
type Transaction struct {
	ID           string          `json:"id"`
	AccountID    int64           `json:"account_id"`
	FromCurrency Currency        `json:"from_currency"`
	ToCurrency   Currency        `json:"to_currency"`
	Amount       decimal.Decimal `json:"amount"`
	Fee          decimal.Decimal `json:"fee"`
	Rate         decimal.Decimal `json:"rate"`
	NetAmount    decimal.Decimal `json:"net_amount"`
	CreatedAt    time.Time       `json:"created_at"`
}
