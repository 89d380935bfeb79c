package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
)

// Plans returns the savings plans of the active source, newest first.
func (t *Tracker) Plans(ctx context.Context) ([]model.Plan, error) {
	if sess := t.Session(); sess != nil {
		return t.remote.ListPlans(ctx, sess)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	plans := clone(t.guestPlans)
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].CreatedAt.After(plans[j].CreatedAt)
	})
	return plans, nil
}

// SavePlan creates a plan when in.ID is empty and updates it otherwise.
func (t *Tracker) SavePlan(ctx context.Context, in model.PlanInput) (model.Plan, error) {
	if m, err := model.ParseMonth(in.Month); err == nil {
		in.Month = m
	}
	if !validAmount(in.Target) {
		return model.Plan{}, ErrInvalidAmount
	}
	if err := model.Validate(in); err != nil {
		return model.Plan{}, err
	}
	p := model.Plan{ID: in.ID, Month: in.Month, Target: in.Target, Notes: in.Notes}

	if sess := t.Session(); sess != nil {
		if p.ID == "" {
			return t.remote.InsertPlan(ctx, sess, p)
		}
		return t.remote.UpdatePlan(ctx, sess, p)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return model.Plan{}, ErrNotLoaded
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = t.now()
	}
	next, err := t.store.UpdateGuestPlans(func(cur []model.Plan) ([]model.Plan, error) {
		next := clone(cur)
		for i := range next {
			if next[i].ID == p.ID {
				p.CreatedAt = next[i].CreatedAt
				next[i] = p
				return next, nil
			}
		}
		if in.ID != "" {
			return nil, fmt.Errorf("%w: plan %s", ErrNotFound, p.ID)
		}
		return append([]model.Plan{p}, next...), nil
	})
	if errors.Is(err, ErrNotFound) {
		return model.Plan{}, err
	}
	if err != nil {
		return model.Plan{}, fmt.Errorf("saving guest plans: %w", err)
	}
	t.guestPlans = next
	return p, nil
}

// DeletePlan removes a plan. Signed in, the backend must confirm first.
func (t *Tracker) DeletePlan(ctx context.Context, id string) error {
	if sess := t.Session(); sess != nil {
		return t.remote.DeletePlan(ctx, sess, id)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return ErrNotLoaded
	}
	next, err := t.store.UpdateGuestPlans(func(cur []model.Plan) ([]model.Plan, error) {
		next := make([]model.Plan, 0, len(cur))
		for _, p := range cur {
			if p.ID != id {
				next = append(next, p)
			}
		}
		if len(next) == len(cur) {
			return nil, fmt.Errorf("%w: plan %s", ErrNotFound, id)
		}
		return next, nil
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("saving guest plans: %w", err)
	}
	t.guestPlans = next
	return nil
}

// PlanProgress measures plan against ledger, which should be the full history.
func (t *Tracker) PlanProgress(plan model.Plan, ledger []model.Transaction) model.PlanProgress {
	return pipeline.PlanProgress(plan, ledger)
}
