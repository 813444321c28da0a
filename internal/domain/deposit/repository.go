package deposit

import (
	"context"
	"errors"
	"time"

	"tera-rewards-backend/internal/domain/request"
)

// ErrDuplicateTxHash is returned by Create when the hash is already registered.
var ErrDuplicateTxHash = errors.New("tx hash already registered")

// Repository defines persistence operations for deposit requests.
type Repository interface {
	// Create inserts a pending request; the tx hash uniqueness check and the
	// insert are a single atomic operation.
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	// Transition moves a pending request to a terminal status (compare-and-swap).
	Transition(ctx context.Context, id string, to request.Status, note string, at time.Time) (*Request, error)
	List(ctx context.Context, f request.Filter) ([]Request, error)
	Counts(ctx context.Context) (*request.Counts, error)
}
