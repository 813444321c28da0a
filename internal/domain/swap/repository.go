package swap

import "context"

// Repository persists swap audit records.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]Transaction, error)
	Count(ctx context.Context) (int64, error)
}
