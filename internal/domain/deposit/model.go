package deposit

import (
	"time"

	"github.com/shopspring/decimal"

	"tera-rewards-backend/internal/domain/request"
)

// Request is a user's claim that TxHash moved Amount to the platform wallet.
type Request struct {
	ID          string          `json:"id"`
	AccountID   int64           `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	TxHash      string          `json:"tx_hash"`
	Status      request.Status  `json:"status"`
	AdminNote   string          `json:"admin_note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}
