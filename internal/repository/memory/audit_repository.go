package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tera-rewards-backend/internal/domain/ledger"
	"tera-rewards-backend/internal/domain/referral"
	"tera-rewards-backend/internal/domain/request"
	"tera-rewards-backend/internal/domain/swap"
)

func countInto(c *request.Counts, st request.Status, amount decimal.Decimal) {
	switch st {
	case request.StatusPending:
		c.Pending++
		c.PendingSum = c.PendingSum.Add(amount)
	case request.StatusApproved:
		c.Approved++
		c.ApprovedSum = c.ApprovedSum.Add(amount)
	case request.StatusRejected:
		c.Rejected++
		c.RejectedSum = c.RejectedSum.Add(amount)
	}
}

// SwapRepository implements swap.Repository.
type SwapRepository struct {
	s *Store
}

var _ swap.Repository = (*SwapRepository)(nil)

func (r *SwapRepository) Create(ctx context.Context, t *swap.Transaction) error {
	return r.s.view(ctx, func(d *state) error {
		d.swaps = append(d.swaps, *t)
		return nil
	})
}

func (r *SwapRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]swap.Transaction, error) {
	var out []swap.Transaction
	err := r.s.view(ctx, func(d *state) error {
		for i := len(d.swaps) - 1; i >= 0; i-- {
			if d.swaps[i].AccountID == accountID {
				out = append(out, d.swaps[i])
			}
		}
		return nil
	})
	return page(out, limit, offset), err
}

func (r *SwapRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.s.view(ctx, func(d *state) error {
		n = int64(len(d.swaps))
		return nil
	})
	return n, err
}

// ReferralRepository implements referral.Repository. Edges are keyed by the
// referred account, which has at most one referrer.
type ReferralRepository struct {
	s *Store
}

var _ referral.Repository = (*ReferralRepository)(nil)

func (r *ReferralRepository) Create(ctx context.Context, e *referral.Edge) error {
	return r.s.view(ctx, func(d *state) error {
		if _, ok := d.edges[e.ReferredID]; ok {
			return referral.ErrAlreadyReferred
		}
		cp := *e
		d.edges[e.ReferredID] = &cp
		return nil
	})
}

func (r *ReferralRepository) GetByReferred(ctx context.Context, referredID int64) (*referral.Edge, error) {
	var out *referral.Edge
	err := r.s.view(ctx, func(d *state) error {
		if e, ok := d.edges[referredID]; ok {
			cp := *e
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *ReferralRepository) AddBonus(ctx context.Context, referredID int64, amount decimal.Decimal) error {
	return r.s.view(ctx, func(d *state) error {
		e, ok := d.edges[referredID]
		if !ok {
			return nil
		}
		e.BonusAmount = e.BonusAmount.Add(amount)
		e.IsRewarded = true
		e.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *ReferralRepository) ListByReferrer(ctx context.Context, referrerID int64) ([]referral.Edge, error) {
	var out []referral.Edge
	err := r.s.view(ctx, func(d *state) error {
		for _, e := range d.edges {
			if e.ReferrerID == referrerID {
				out = append(out, *e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

// LedgerRepository implements ledger.Repository.
type LedgerRepository struct {
	s *Store
}

var _ ledger.Repository = (*LedgerRepository)(nil)

func (r *LedgerRepository) Append(ctx context.Context, e *ledger.Entry) error {
	return r.s.view(ctx, func(d *state) error {
		d.entries = append(d.entries, *e)
		return nil
	})
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]ledger.Entry, error) {
	var out []ledger.Entry
	err := r.s.view(ctx, func(d *state) error {
		for i := len(d.entries) - 1; i >= 0; i-- {
			if d.entries[i].AccountID == accountID {
				out = append(out, d.entries[i])
			}
		}
		return nil
	})
	return page(out, limit, offset), err
}
