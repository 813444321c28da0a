package request

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotPending is returned by repositories when a compare-and-swap on status fails
// because the request already reached a terminal state.
var ErrNotPending = errors.New("request is not pending")

// ErrNotFound is returned by transitions on an unknown request id.
var ErrNotFound = errors.New("request not found")

// Status is the moderation state shared by deposit and withdrawal requests.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a wire value.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown request status %q", s)
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected:
		return true
	case StatusPending:
		return false
	}
	return false
}

// CanTransition reports whether from→to is a legal moderation step.
func CanTransition(from, to Status) bool {
	return from == StatusPending && to.IsTerminal()
}

// Counts aggregates requests of one kind by status.
type Counts struct {
	Pending     int64           `json:"pending"`
	Approved    int64           `json:"approved"`
	Rejected    int64           `json:"rejected"`
	PendingSum  decimal.Decimal `json:"pending_sum"`
	ApprovedSum decimal.Decimal `json:"approved_sum"`
	RejectedSum decimal.Decimal `json:"rejected_sum"`
}

// Filter narrows listing queries.
type Filter struct {
	Status    *Status
	AccountID *int64
	Limit     int
	Offset    int
}

// Normalize clamps pagination.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
