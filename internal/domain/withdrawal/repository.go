package withdrawal

import (
	"context"
	"time"

	"tera-rewards-backend/internal/domain/request"
)

// Repository defines persistence operations for withdrawal requests.
type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	// Transition moves a pending request to a terminal status (compare-and-swap).
	Transition(ctx context.Context, id string, to request.Status, note string, at time.Time) (*Request, error)
	List(ctx context.Context, f request.Filter) ([]Request, error)
	Counts(ctx context.Context) (*request.Counts, error)
}
