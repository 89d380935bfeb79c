package tracker

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/model"
)

type memStore struct {
	mu        sync.Mutex
	guest     []model.Transaction
	hasGuest  bool
	plans     []model.Plan
	currency  string
	board     challenge.Board
	writes    int
	failWrite error
}

func (s *memStore) GuestTransactions() ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Transaction(nil), s.guest...), nil
}

func (s *memStore) UpdateGuestTransactions(fn func([]model.Transaction) ([]model.Transaction, error)) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return nil, s.failWrite
	}
	next, err := fn(append([]model.Transaction(nil), s.guest...))
	if err != nil {
		return nil, err
	}
	s.writes++
	s.guest = append([]model.Transaction(nil), next...)
	s.hasGuest = true
	return next, nil
}

func (s *memStore) GuestPlans() ([]model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Plan(nil), s.plans...), nil
}

func (s *memStore) UpdateGuestPlans(fn func([]model.Plan) ([]model.Plan, error)) ([]model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(append([]model.Plan(nil), s.plans...))
	if err != nil {
		return nil, err
	}
	s.writes++
	s.plans = append([]model.Plan(nil), next...)
	return next, nil
}

func (s *memStore) ClearGuest() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.guest = nil
	s.plans = nil
	s.hasGuest = false
	return nil
}

func (s *memStore) Currency() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currency, nil
}

func (s *memStore) SetCurrency(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.currency = code
	return nil
}

func (s *memStore) Challenge() (challenge.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board, nil
}

func (s *memStore) SaveChallenge(b challenge.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	s.writes++
	s.board = b
	return nil
}

// fakeRemote serves canned data per user. A release channel queued on
// fetchGate holds the next FetchRecent in flight until it is closed; entered
// is signalled once the fetch is parked.
type fakeRemote struct {
	mu         sync.Mutex
	recent     map[string][]model.Transaction
	history    map[string][]model.Transaction
	limit      *float64
	plans      []model.Plan
	username   string
	fetchErr   error
	failUser   string // FetchRecent fails with fetchErr only for this user when set
	insertErr  error
	deleteErr  error
	fetchGate  chan chan struct{}
	entered    chan struct{}
	fetchCalls int
	nextID     int
	now        time.Time
}

func newFakeRemote(now time.Time) *fakeRemote {
	return &fakeRemote{
		recent:  map[string][]model.Transaction{},
		history: map[string][]model.Transaction{},
		now:     now,
		nextID:  100,
	}
}

func (f *fakeRemote) FetchRecent(ctx context.Context, sess *model.Session, _ int) ([]model.Transaction, error) {
	f.mu.Lock()
	f.fetchCalls++
	gate, entered := f.fetchGate, f.entered
	f.mu.Unlock()

	if gate != nil {
		select {
		case release := <-gate:
			if entered != nil {
				entered <- struct{}{}
			}
			<-release
		default:
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil && (f.failUser == "" || f.failUser == sess.UserID) {
		return nil, f.fetchErr
	}
	return append([]model.Transaction(nil), f.recent[sess.UserID]...), nil
}

func (f *fakeRemote) FetchActiveDailyLimit(context.Context, *model.Session, time.Time) (*float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.limit, nil
}

func (f *fakeRemote) InsertExpense(ctx context.Context, sess *model.Session, amount float64, category string) (model.Transaction, error) {
	return f.InsertTransaction(ctx, sess, model.Transaction{Amount: amount, Category: category, Kind: model.Expense})
}

func (f *fakeRemote) InsertTransaction(_ context.Context, sess *model.Session, tx model.Transaction) (model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return model.Transaction{}, f.insertErr
	}
	f.nextID++
	tx.ID = strconv.Itoa(f.nextID)
	tx.UserID = sess.UserID
	if tx.OccurredAt.IsZero() {
		tx.OccurredAt = f.now
	}
	f.history[sess.UserID] = append([]model.Transaction{tx}, f.history[sess.UserID]...)
	return tx, nil
}

func (f *fakeRemote) UpdateTransaction(_ context.Context, sess *model.Session, tx model.Transaction) (model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, h := range f.history[sess.UserID] {
		if h.ID == tx.ID {
			f.history[sess.UserID][i] = tx
			return tx, nil
		}
	}
	return model.Transaction{}, ErrNotFound
}

func (f *fakeRemote) DeleteTransaction(_ context.Context, _ *model.Session, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeRemote) ListTransactions(_ context.Context, sess *model.Session) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Transaction(nil), f.history[sess.UserID]...), nil
}

func (f *fakeRemote) ListPlans(context.Context, *model.Session) ([]model.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Plan(nil), f.plans...), nil
}

func (f *fakeRemote) InsertPlan(_ context.Context, sess *model.Session, p model.Plan) (model.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = strconv.Itoa(f.nextID)
	p.UserID = sess.UserID
	f.plans = append(f.plans, p)
	return p, nil
}

func (f *fakeRemote) UpdatePlan(_ context.Context, _ *model.Session, p model.Plan) (model.Plan, error) {
	return p, nil
}

func (f *fakeRemote) DeletePlan(context.Context, *model.Session, string) error {
	return errors.New("not implemented")
}

func (f *fakeRemote) FetchUsername(context.Context, *model.Session) (string, error) {
	return f.username, nil
}
