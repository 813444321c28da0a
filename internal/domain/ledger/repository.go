package ledger

import "context"

// Repository appends and reads ledger entries.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]Entry, error)
}
