package store

import (
	"errors"
	"strings"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/model"
)

// GuestTransactions returns the stored guest list. A missing key is an empty list.
func (s *Store) GuestTransactions() ([]model.Transaction, error) {
	var txs []model.Transaction
	if err := s.GetJSON(KeyGuestTransactions, &txs); err != nil && !errors.Is(err, ErrMissing) {
		return nil, err
	}
	return txs, nil
}

// SaveGuestTransactions replaces the stored guest list.
func (s *Store) SaveGuestTransactions(txs []model.Transaction) error {
	if txs == nil {
		txs = []model.Transaction{}
	}
	return s.SetJSON(KeyGuestTransactions, txs)
}

// UpdateGuestTransactions replaces the stored guest list with fn applied to
// the list as currently stored, atomically with respect to other processes
// sharing the database. It returns what was stored.
func (s *Store) UpdateGuestTransactions(fn func([]model.Transaction) ([]model.Transaction, error)) ([]model.Transaction, error) {
	return updateJSON(s, KeyGuestTransactions, func(cur []model.Transaction) ([]model.Transaction, error) {
		next, err := fn(cur)
		if next == nil && err == nil {
			next = []model.Transaction{}
		}
		return next, err
	})
}

// GuestPlans returns the stored guest plans.
func (s *Store) GuestPlans() ([]model.Plan, error) {
	var plans []model.Plan
	if err := s.GetJSON(KeyGuestPlans, &plans); err != nil && !errors.Is(err, ErrMissing) {
		return nil, err
	}
	return plans, nil
}

// SaveGuestPlans replaces the stored guest plans.
func (s *Store) SaveGuestPlans(plans []model.Plan) error {
	if plans == nil {
		plans = []model.Plan{}
	}
	return s.SetJSON(KeyGuestPlans, plans)
}

// UpdateGuestPlans is UpdateGuestTransactions for guest plans.
func (s *Store) UpdateGuestPlans(fn func([]model.Plan) ([]model.Plan, error)) ([]model.Plan, error) {
	return updateJSON(s, KeyGuestPlans, func(cur []model.Plan) ([]model.Plan, error) {
		next, err := fn(cur)
		if next == nil && err == nil {
			next = []model.Plan{}
		}
		return next, err
	})
}

// ClearGuest removes every piece of guest-owned data.
func (s *Store) ClearGuest() error {
	return s.Delete(KeyGuestTransactions, KeyGuestPlans)
}

// Currency returns the stored currency code, or "" when unset.
func (s *Store) Currency() (string, error) {
	v, err := s.Get(KeyCurrency)
	if errors.Is(err, ErrMissing) {
		return "", nil
	}
	return strings.TrimSpace(v), err
}

// SetCurrency stores the currency code.
func (s *Store) SetCurrency(code string) error {
	return s.Set(KeyCurrency, code)
}

// Challenge returns the stored challenge board. A missing key is the zero board.
func (s *Store) Challenge() (challenge.Board, error) {
	var b challenge.Board
	if err := s.GetJSON(KeyChallenge, &b); err != nil && !errors.Is(err, ErrMissing) {
		return challenge.Board{}, err
	}
	return b, nil
}

// SaveChallenge stores the challenge board.
func (s *Store) SaveChallenge(b challenge.Board) error {
	return s.SetJSON(KeyChallenge, b)
}

// Session returns the persisted auth session, or nil when none is stored.
func (s *Store) Session() (*model.Session, error) {
	var sess model.Session
	if err := s.GetJSON(KeySession, &sess); err != nil {
		if errors.Is(err, ErrMissing) {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}

// SaveSession persists sess.
func (s *Store) SaveSession(sess *model.Session) error {
	if sess == nil {
		return s.ClearSession()
	}
	return s.SetJSON(KeySession, sess)
}

// ClearSession forgets the persisted session.
func (s *Store) ClearSession() error {
	return s.Delete(KeySession)
}
