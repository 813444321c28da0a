package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tera-rewards-backend/internal/domain/mining"
)

// MiningRepository implements mining.Repository.
type MiningRepository struct {
	s *Store
}

var _ mining.Repository = (*MiningRepository)(nil)

func (r *MiningRepository) Open(ctx context.Context, sess *mining.Session) error {
	return r.s.view(ctx, func(d *state) error {
		for _, existing := range d.sessions {
			if existing.AccountID == sess.AccountID && existing.IsActive {
				return mining.ErrActiveSessionExists
			}
		}
		cp := *sess
		d.sessions[sess.ID] = &cp
		return nil
	})
}

func (r *MiningRepository) GetActive(ctx context.Context, accountID int64) (*mining.Session, error) {
	var out *mining.Session
	err := r.s.view(ctx, func(d *state) error {
		for _, sess := range d.sessions {
			if sess.AccountID == accountID && sess.IsActive {
				cp := *sess
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *MiningRepository) Close(ctx context.Context, id string, endTime time.Time, earned decimal.Decimal) (bool, error) {
	var closed bool
	err := r.s.view(ctx, func(d *state) error {
		sess, ok := d.sessions[id]
		if !ok || !sess.IsActive {
			return nil
		}
		end := endTime
		sess.EndTime = &end
		sess.EarnedAmount = earned
		sess.IsActive = false
		closed = true
		return nil
	})
	return closed, err
}

func (r *MiningRepository) SetPause(ctx context.Context, id string, pausedAt *time.Time, pausedSeconds int64) error {
	return r.s.view(ctx, func(d *state) error {
		sess, ok := d.sessions[id]
		if !ok {
			return nil
		}
		if pausedAt != nil {
			v := *pausedAt
			sess.PausedAt = &v
		} else {
			sess.PausedAt = nil
		}
		sess.PausedSeconds = pausedSeconds
		return nil
	})
}

func (r *MiningRepository) ListActiveStartedBefore(ctx context.Context, t time.Time, limit int) ([]mining.Session, error) {
	var out []mining.Session
	err := r.s.view(ctx, func(d *state) error {
		for _, sess := range d.sessions {
			if sess.IsActive && sess.StartTime.Before(t) {
				out = append(out, *sess)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *MiningRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]mining.Session, error) {
	var out []mining.Session
	err := r.s.view(ctx, func(d *state) error {
		for _, sess := range d.sessions {
			if sess.AccountID == accountID {
				out = append(out, *sess)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return page(out, limit, offset), err
}
