package remote

import (
	"context"
	"fmt"

	"github.com/lacag-app/lacag/internal/baas"
	"github.com/lacag-app/lacag/internal/model"
)

// ListPlans returns the user's plans, newest first.
func (a *Adapter) ListPlans(ctx context.Context, sess *model.Session) ([]model.Plan, error) {
	if err := checkSession(sess); err != nil {
		return nil, err
	}
	var rows []planRow
	err := a.client.From(tablePlans).
		Eq("user_id", sess.UserID).
		Order("created_at", true).
		Do(ctx, sess.AccessToken, &rows)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}

	plans := make([]model.Plan, 0, len(rows))
	for _, r := range rows {
		plans = append(plans, r.toModel(a.loc))
	}
	return plans, nil
}

// InsertPlan stores a new plan for the session user.
func (a *Adapter) InsertPlan(ctx context.Context, sess *model.Session, p model.Plan) (model.Plan, error) {
	if err := checkSession(sess); err != nil {
		return model.Plan{}, err
	}
	w := planWrite{UserID: sess.UserID, Month: p.Month, BudgetTarget: p.Target, Notes: p.Notes}

	var rows []planRow
	if err := a.client.Insert(ctx, sess.AccessToken, tablePlans, w, &rows); err != nil {
		return model.Plan{}, fmt.Errorf("inserting plan: %w", err)
	}
	return a.singlePlan(rows)
}

// UpdatePlan overwrites month, target and notes of p.ID.
func (a *Adapter) UpdatePlan(ctx context.Context, sess *model.Session, p model.Plan) (model.Plan, error) {
	if err := checkSession(sess); err != nil {
		return model.Plan{}, err
	}
	w := planWrite{Month: p.Month, BudgetTarget: p.Target, Notes: p.Notes}

	var rows []planRow
	if err := a.client.Update(ctx, sess.AccessToken, tablePlans, p.ID, w, &rows); err != nil {
		return model.Plan{}, fmt.Errorf("updating plan %s: %w", p.ID, err)
	}
	return a.singlePlan(rows)
}

// DeletePlan removes id once the backend confirms it.
func (a *Adapter) DeletePlan(ctx context.Context, sess *model.Session, id string) error {
	if err := checkSession(sess); err != nil {
		return err
	}
	if err := a.client.Delete(ctx, sess.AccessToken, tablePlans, id); err != nil {
		return fmt.Errorf("deleting plan %s: %w", id, err)
	}
	return nil
}

func (a *Adapter) singlePlan(rows []planRow) (model.Plan, error) {
	if len(rows) == 0 {
		return model.Plan{}, fmt.Errorf("backend returned no plan: %w", baas.ErrNotFound)
	}
	return rows[0].toModel(a.loc), nil
}
