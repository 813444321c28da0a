package referral

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxLevels is the depth of the commission cascade.
const MaxLevels = 3

// Edge links a referred account to its single referrer and accumulates the
// commission the referrer earned through it.
type Edge struct {
	ReferrerID  int64           `json:"referrer_id"`
	ReferredID  int64           `json:"referred_id"`
	BonusAmount decimal.Decimal `json:"bonus_amount"`
	IsRewarded  bool            `json:"is_rewarded"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
