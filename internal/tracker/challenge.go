package tracker

import (
	"fmt"
	"time"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
)

// Challenge returns a copy of the challenge board.
func (t *Tracker) Challenge() challenge.Board {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.board
}

// updateBoard runs fn on a copy of the board and persists the result. The
// in-memory board only changes when both succeed.
func (t *Tracker) updateBoard(fn func(*challenge.Board) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return ErrNotLoaded
	}
	next := t.board
	if err := fn(&next); err != nil {
		return err
	}
	if err := t.store.SaveChallenge(next); err != nil {
		return fmt.Errorf("saving challenge: %w", err)
	}
	t.board = next
	return nil
}

// BeginChallenge moves v to the limit-entry step.
func (t *Tracker) BeginChallenge(v challenge.Variant) error {
	return t.updateBoard(func(b *challenge.Board) error { return b.Begin(v) })
}

// ConfirmChallenge activates v with a daily limit (7-day) or total budget (30-day).
func (t *Tracker) ConfirmChallenge(v challenge.Variant, value float64) error {
	return t.updateBoard(func(b *challenge.Board) error { return b.Confirm(v, value) })
}

// CancelChallenge abandons limit entry for v.
func (t *Tracker) CancelChallenge(v challenge.Variant) error {
	return t.updateBoard(func(b *challenge.Board) error { return b.Cancel(v) })
}

// StopChallenge ends v. confirmed must reflect an explicit user confirmation.
func (t *Tracker) StopChallenge(v challenge.Variant, confirmed bool) error {
	return t.updateBoard(func(b *challenge.Board) error { return b.Stop(v, confirmed) })
}

// ChallengeLimit is the per-day limit used for v. An unset 7-day limit falls
// back to the active plan's daily limit.
func (t *Tracker) ChallengeLimit(v challenge.Variant) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.challengeLimitLocked(v)
}

func (t *Tracker) challengeLimitLocked(v challenge.Variant) float64 {
	limit := t.board.EffectiveDailyLimit(v)
	if v == challenge.SevenDay && limit <= 0 && t.dailyLimit != nil {
		limit = *t.dailyLimit
	}
	return limit
}

// Progress lays out v's day slots over the active expenses at now.
func (t *Tracker) Progress(v challenge.Variant, now time.Time) pipeline.ChallengeProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	active := t.activeLocked()
	expenses := pipeline.FilterByKind(active, model.Expense)
	spent := pipeline.SpentOn(active, now)
	return pipeline.ComputeChallengeProgress(expenses, v.Days(), t.challengeLimitLocked(v), spent, now)
}
