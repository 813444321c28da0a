package account

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceKind names one of the balances every account holds.
type BalanceKind string

const (
	BalanceMain            BalanceKind = "main"
	BalanceTera            BalanceKind = "tera"
	BalanceMining          BalanceKind = "mining"
	BalanceEarningProfit   BalanceKind = "earning_profit"
	BalanceEarningReferral BalanceKind = "earning_referral"
)

// AllKinds lists balance kinds in display order.
var AllKinds = []BalanceKind{
	BalanceMain,
	BalanceTera,
	BalanceMining,
	BalanceEarningProfit,
	BalanceEarningReferral,
}

// ParseBalanceKind validates a wire value.
func ParseBalanceKind(s string) (BalanceKind, error) {
	switch k := BalanceKind(s); k {
	case BalanceMain, BalanceTera, BalanceMining, BalanceEarningProfit, BalanceEarningReferral:
		return k, nil
	}
	return "", fmt.Errorf("unknown balance kind %q", s)
}

// Balances maps each kind to a non-negative amount.
type Balances map[BalanceKind]decimal.Decimal

// Get returns the amount for kind, zero when absent.
func (b Balances) Get(kind BalanceKind) decimal.Decimal {
	if v, ok := b[kind]; ok {
		return v
	}
	return decimal.Zero
}

// ZeroBalances returns a map with every kind set to zero.
func ZeroBalances() Balances {
	b := make(Balances, len(AllKinds))
	for _, k := range AllKinds {
		b[k] = decimal.Zero
	}
	return b
}

// Account is a user of the rewards platform; ID is the Telegram user id.
type Account struct {
	ID              int64      `json:"id"`
	Balances        Balances   `json:"balances"`
	WalletAddress   string     `json:"wallet_address,omitempty"`
	IsActive        bool       `json:"is_active"`
	ReferralCode    string     `json:"referral_code"`
	ReferredBy      *int64     `json:"referred_by,omitempty"`
	MiningActive    bool       `json:"mining_active"`
	LastMiningStart *time.Time `json:"last_mining_start,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Clone returns a deep copy so callers can never mutate store state.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Balances = make(Balances, len(a.Balances))
	for k, v := range a.Balances {
		c.Balances[k] = v
	}
	if a.ReferredBy != nil {
		v := *a.ReferredBy
		c.ReferredBy = &v
	}
	if a.LastMiningStart != nil {
		v := *a.LastMiningStart
		c.LastMiningStart = &v
	}
	return &c
}
