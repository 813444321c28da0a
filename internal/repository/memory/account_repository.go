package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tera-rewards-backend/internal/domain/account"
)

// AccountRepository implements account.Repository.
type AccountRepository struct {
	s *Store
}

var _ account.Repository = (*AccountRepository)(nil)

func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	return r.s.view(ctx, func(d *state) error {
		if _, ok := d.accounts[a.ID]; ok {
			return account.ErrAlreadyExists
		}
		if _, ok := d.referralCodes[a.ReferralCode]; ok {
			return account.ErrReferralCodeTaken
		}
		c := a.Clone()
		balances := account.ZeroBalances()
		for k, v := range c.Balances {
			balances[k] = v
		}
		c.Balances = balances
		d.accounts[a.ID] = c
		d.referralCodes[a.ReferralCode] = a.ID
		return nil
	})
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	var out *account.Account
	err := r.s.view(ctx, func(d *state) error {
		out = d.accounts[id].Clone()
		return nil
	})
	return out, err
}

// GetByIDForUpdate is GetByID: the store mutex already serializes transactions.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*account.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *AccountRepository) GetByReferralCode(ctx context.Context, code string) (*account.Account, error) {
	var out *account.Account
	err := r.s.view(ctx, func(d *state) error {
		if id, ok := d.referralCodes[code]; ok {
			out = d.accounts[id].Clone()
		}
		return nil
	})
	return out, err
}

func (r *AccountRepository) AdjustBalance(ctx context.Context, id int64, kind account.BalanceKind, delta decimal.Decimal) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := r.s.view(ctx, func(d *state) error {
		a, ok := d.accounts[id]
		if !ok {
			return account.ErrNotFound
		}
		next := a.Balances.Get(kind).Add(delta)
		if next.IsNegative() {
			return account.ErrNegativeBalance
		}
		a.Balances[kind] = next
		a.UpdatedAt = time.Now().UTC()
		out = next
		return nil
	})
	return out, err
}

func (r *AccountRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.update(ctx, id, func(a *account.Account) { a.IsActive = active })
}

func (r *AccountRepository) SetMiningState(ctx context.Context, id int64, active bool, startedAt *time.Time) error {
	return r.update(ctx, id, func(a *account.Account) {
		a.MiningActive = active
		if startedAt != nil {
			v := *startedAt
			a.LastMiningStart = &v
		} else {
			a.LastMiningStart = nil
		}
	})
}

func (r *AccountRepository) SetReferrer(ctx context.Context, id, referrerID int64) error {
	return r.update(ctx, id, func(a *account.Account) {
		v := referrerID
		a.ReferredBy = &v
	})
}

func (r *AccountRepository) update(ctx context.Context, id int64, fn func(a *account.Account)) error {
	return r.s.view(ctx, func(d *state) error {
		a, ok := d.accounts[id]
		if !ok {
			return account.ErrNotFound
		}
		fn(a)
		a.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *AccountRepository) ListReferred(ctx context.Context, referrerID int64) ([]account.Account, error) {
	var out []account.Account
	err := r.s.view(ctx, func(d *state) error {
		for _, a := range d.accounts {
			if a.ReferredBy != nil && *a.ReferredBy == referrerID {
				out = append(out, *a.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *AccountRepository) Stats(ctx context.Context) (*account.Stats, error) {
	st := &account.Stats{Balances: account.ZeroBalances()}
	err := r.s.view(ctx, func(d *state) error {
		for _, a := range d.accounts {
			st.Total++
			if a.IsActive {
				st.Active++
			}
			if a.MiningActive {
				st.Mining++
			}
			for k, v := range a.Balances {
				st.Balances[k] = st.Balances[k].Add(v)
			}
		}
		return nil
	})
	return st, err
}
