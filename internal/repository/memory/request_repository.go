package memory

import (
	"context"
	"sort"
	"time"

	"tera-rewards-backend/internal/domain/deposit"
	"tera-rewards-backend/internal/domain/request"
	"tera-rewards-backend/internal/domain/withdrawal"
)

// DepositRepository implements deposit.Repository.
type DepositRepository struct {
	s *Store
}

var _ deposit.Repository = (*DepositRepository)(nil)

func (r *DepositRepository) Create(ctx context.Context, req *deposit.Request) error {
	return r.s.view(ctx, func(d *state) error {
		if _, taken := d.txHashes[req.TxHash]; taken {
			return deposit.ErrDuplicateTxHash
		}
		cp := *req
		d.deposits[req.ID] = &cp
		d.txHashes[req.TxHash] = req.ID
		return nil
	})
}

func (r *DepositRepository) GetByID(ctx context.Context, id string) (*deposit.Request, error) {
	var out *deposit.Request
	err := r.s.view(ctx, func(d *state) error {
		if req, ok := d.deposits[id]; ok {
			cp := *req
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *DepositRepository) Transition(ctx context.Context, id string, to request.Status, note string, at time.Time) (*deposit.Request, error) {
	var out *deposit.Request
	err := r.s.view(ctx, func(d *state) error {
		req, ok := d.deposits[id]
		if !ok {
			return request.ErrNotFound
		}
		if !request.CanTransition(req.Status, to) {
			return request.ErrNotPending
		}
		processed := at
		req.Status = to
		req.AdminNote = note
		req.UpdatedAt = at
		req.ProcessedAt = &processed
		cp := *req
		out = &cp
		return nil
	})
	return out, err
}

func (r *DepositRepository) List(ctx context.Context, f request.Filter) ([]deposit.Request, error) {
	f = f.Normalize()
	var out []deposit.Request
	err := r.s.view(ctx, func(d *state) error {
		for _, req := range d.deposits {
			if f.Status != nil && req.Status != *f.Status {
				continue
			}
			if f.AccountID != nil && req.AccountID != *f.AccountID {
				continue
			}
			out = append(out, *req)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), err
}

func (r *DepositRepository) Counts(ctx context.Context) (*request.Counts, error) {
	c := &request.Counts{}
	err := r.s.view(ctx, func(d *state) error {
		for _, req := range d.deposits {
			countInto(c, req.Status, req.Amount)
		}
		return nil
	})
	return c, err
}

// WithdrawalRepository implements withdrawal.Repository.
type WithdrawalRepository struct {
	s *Store
}

var _ withdrawal.Repository = (*WithdrawalRepository)(nil)

func (r *WithdrawalRepository) Create(ctx context.Context, req *withdrawal.Request) error {
	return r.s.view(ctx, func(d *state) error {
		cp := *req
		d.withdrawals[req.ID] = &cp
		return nil
	})
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*withdrawal.Request, error) {
	var out *withdrawal.Request
	err := r.s.view(ctx, func(d *state) error {
		if req, ok := d.withdrawals[id]; ok {
			cp := *req
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *WithdrawalRepository) Transition(ctx context.Context, id string, to request.Status, note string, at time.Time) (*withdrawal.Request, error) {
	var out *withdrawal.Request
	err := r.s.view(ctx, func(d *state) error {
		req, ok := d.withdrawals[id]
		if !ok {
			return request.ErrNotFound
		}
		if !request.CanTransition(req.Status, to) {
			return request.ErrNotPending
		}
		processed := at
		req.Status = to
		req.AdminNote = note
		req.UpdatedAt = at
		req.ProcessedAt = &processed
		cp := *req
		out = &cp
		return nil
	})
	return out, err
}

func (r *WithdrawalRepository) List(ctx context.Context, f request.Filter) ([]withdrawal.Request, error) {
	f = f.Normalize()
	var out []withdrawal.Request
	err := r.s.view(ctx, func(d *state) error {
		for _, req := range d.withdrawals {
			if f.Status != nil && req.Status != *f.Status {
				continue
			}
			if f.AccountID != nil && req.AccountID != *f.AccountID {
				continue
			}
			out = append(out, *req)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), err
}

func (r *WithdrawalRepository) Counts(ctx context.Context) (*request.Counts, error) {
	c := &request.Counts{}
	err := r.s.view(ctx, func(d *state) error {
		for _, req := range d.withdrawals {
			countInto(c, req.Status, req.Amount)
		}
		return nil
	})
	return c, err
}
