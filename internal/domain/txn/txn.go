package txn

import "context"

// Manager runs fn inside a single store transaction carried by ctx.
// Calls made with a ctx that already carries a transaction join it instead of
// opening a new one, so engines compose into one atomic unit.
type Manager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
