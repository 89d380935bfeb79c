// Package tracker is the single owner of "what transactions exist" and "how
// much was spent today". It switches between the local guest list and the
// signed-in user's remote list and never merges the two.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/currency"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
)

var (
	ErrInvalidAmount    = errors.New("amount must be a positive number")
	ErrNotLoaded        = errors.New("local data has not been loaded yet")
	ErrNotAuthenticated = errors.New("not signed in")
	ErrNotFound         = errors.New("no such record")
)

// Remote is the backend store used while signed in.
type Remote interface {
	FetchRecent(ctx context.Context, sess *model.Session, windowDays int) ([]model.Transaction, error)
	FetchActiveDailyLimit(ctx context.Context, sess *model.Session, asOf time.Time) (*float64, error)
	InsertExpense(ctx context.Context, sess *model.Session, amount float64, category string) (model.Transaction, error)
	InsertTransaction(ctx context.Context, sess *model.Session, tx model.Transaction) (model.Transaction, error)
	UpdateTransaction(ctx context.Context, sess *model.Session, tx model.Transaction) (model.Transaction, error)
	DeleteTransaction(ctx context.Context, sess *model.Session, id string) error
	ListTransactions(ctx context.Context, sess *model.Session) ([]model.Transaction, error)

	ListPlans(ctx context.Context, sess *model.Session) ([]model.Plan, error)
	InsertPlan(ctx context.Context, sess *model.Session, p model.Plan) (model.Plan, error)
	UpdatePlan(ctx context.Context, sess *model.Session, p model.Plan) (model.Plan, error)
	DeletePlan(ctx context.Context, sess *model.Session, id string) error

	FetchUsername(ctx context.Context, sess *model.Session) (string, error)
}

// Store is the local durable store for guest data and preferences.
type Store interface {
	GuestTransactions() ([]model.Transaction, error)
	// UpdateGuestTransactions applies fn to the stored guest list and saves
	// the result in one step, so writers in other processes are not lost.
	UpdateGuestTransactions(fn func([]model.Transaction) ([]model.Transaction, error)) ([]model.Transaction, error)
	GuestPlans() ([]model.Plan, error)
	UpdateGuestPlans(fn func([]model.Plan) ([]model.Plan, error)) ([]model.Plan, error)
	ClearGuest() error
	Currency() (string, error)
	SetCurrency(code string) error
	Challenge() (challenge.Board, error)
	SaveChallenge(challenge.Board) error
}

// Options tunes a Tracker.
type Options struct {
	WindowDays int              // trailing window for remote fetches, default 30
	Currency   string           // used when the store has no preference
	Clock      func() time.Time // default time.Now
	Log        logrus.FieldLogger
}

// Tracker reconciles guest and remote state. It is safe for concurrent use.
type Tracker struct {
	store      Store
	remote     Remote
	log        logrus.FieldLogger
	now        func() time.Time
	windowDays int

	mu          sync.RWMutex
	loaded      bool
	sess        *model.Session
	guest       []model.Transaction
	guestPlans  []model.Plan
	remoteTxs   []model.Transaction
	dailyLimit  *float64
	loading     bool
	lastErr     error
	lastRefresh time.Time
	gen         uint64
	board       challenge.Board
	currency    string
}

// New builds a tracker. remote may be nil when no backend is configured; the
// tracker then only ever runs in guest mode.
func New(store Store, remote Remote, opts Options) *Tracker {
	if opts.WindowDays <= 0 {
		opts.WindowDays = 30
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	cur := currency.Normalize(opts.Currency)

	return &Tracker{
		store:      store,
		remote:     remote,
		log:        opts.Log.WithField("component", "tracker"),
		now:        opts.Clock,
		windowDays: opts.WindowDays,
		currency:   cur,
	}
}

// Load reads guest data and preferences from the store. It must complete
// before any guest mutation; until then nothing is written back. Unreadable
// values are logged and treated as empty. Calling Load again is a no-op.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loaded {
		return nil
	}

	guest, err := t.store.GuestTransactions()
	if err != nil {
		t.log.WithError(err).Warn("guest transactions unreadable, starting empty")
		guest = nil
	}
	pipeline.SortNewestFirst(guest)

	plans, err := t.store.GuestPlans()
	if err != nil {
		t.log.WithError(err).Warn("guest plans unreadable, starting empty")
		plans = nil
	}

	code, err := t.store.Currency()
	if err != nil {
		t.log.WithError(err).Warn("currency preference unreadable")
	}
	if code != "" && currency.Known(code) {
		t.currency = currency.Normalize(code)
	}

	board, err := t.store.Challenge()
	if err != nil {
		t.log.WithError(err).Warn("challenge state unreadable, resetting")
		board = challenge.Board{}
	}

	// A session may have been applied before Load; guest data never shows then.
	if t.sess == nil {
		t.guest = guest
		t.guestPlans = plans
	}
	t.board = board
	t.loaded = true
	return nil
}

// SetSession applies an auth change. Signing in discards guest data for good
// and fetches the user's data. Signing out drops remote data and resumes
// guest mode with an empty list. A malformed session counts as signed out.
func (t *Tracker) SetSession(ctx context.Context, sess *model.Session) error {
	if !sess.Valid() || t.remote == nil {
		sess = nil
	}

	t.mu.Lock()
	prev := t.sess
	if sess == nil {
		if prev != nil {
			t.log.WithField("user_id", prev.UserID).Info("signed out, resuming guest mode")
			t.sess = nil
			t.remoteTxs = nil
			t.dailyLimit = nil
			t.loading = false
			t.lastErr = nil
			t.guest = nil
			t.guestPlans = nil
			t.gen++
		}
		t.mu.Unlock()
		return nil
	}

	cp := *sess
	t.sess = &cp
	signIn := prev == nil
	identityChanged := signIn || prev.UserID != sess.UserID
	if signIn {
		t.guest = nil
		t.guestPlans = nil
	}
	if identityChanged {
		t.remoteTxs = nil
		t.dailyLimit = nil
		t.lastErr = nil
		// Invalidate refreshes started for the previous identity.
		t.gen++
	}
	t.mu.Unlock()

	if signIn {
		t.log.WithField("user_id", sess.UserID).Info("signed in, discarding guest data")
		if err := t.store.ClearGuest(); err != nil {
			return fmt.Errorf("clearing guest data: %w", err)
		}
	}
	if identityChanged {
		return t.Refresh(ctx)
	}
	return nil
}

// Refresh refetches the remote window and the active daily limit. The
// result is applied only if no newer refresh or session change started in
// the meantime. On failure the previous remote state is kept.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.Lock()
	if t.sess == nil {
		t.mu.Unlock()
		return ErrNotAuthenticated
	}
	t.gen++
	gen := t.gen
	sess := *t.sess
	window := t.windowDays
	t.loading = true
	t.mu.Unlock()

	now := t.now()
	var (
		txs      []model.Transaction
		limit    *float64
		limitErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = t.remote.FetchRecent(gctx, &sess, window)
		return err
	})
	g.Go(func() error {
		l, err := t.remote.FetchActiveDailyLimit(gctx, &sess, now)
		if err != nil {
			limitErr = err
			return nil
		}
		limit = l
		return nil
	})
	err := g.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || t.sess == nil || t.sess.UserID != sess.UserID {
		t.log.WithField("generation", gen).Debug("discarding stale refresh result")
		return nil
	}
	t.loading = false

	if err != nil {
		t.lastErr = err
		t.log.WithError(err).Warn("refresh failed, keeping previous data")
		return err
	}

	pipeline.SortNewestFirst(txs)
	t.remoteTxs = txs
	t.lastRefresh = now
	t.lastErr = nil
	if limitErr != nil {
		t.lastErr = limitErr
		t.log.WithError(limitErr).Warn("active plan lookup failed, keeping previous daily limit")
	} else {
		t.dailyLimit = limit
	}
	return nil
}

func (t *Tracker) activeLocked() []model.Transaction {
	if t.sess != nil {
		return t.remoteTxs
	}
	return t.guest
}

func clone[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// Transactions returns the active list: remote when signed in, guest otherwise.
func (t *Tracker) Transactions() []model.Transaction {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return clone(t.activeLocked())
}

// IsAuthenticated reports whether a valid session is applied.
func (t *Tracker) IsAuthenticated() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sess != nil
}

// Session returns a copy of the applied session, or nil.
func (t *Tracker) Session() *model.Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.sess == nil {
		return nil
	}
	cp := *t.sess
	return &cp
}

// Loading reports whether a remote fetch is outstanding.
func (t *Tracker) Loading() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loading
}

// DailyLimit returns the remote active plan's daily limit, if any.
func (t *Tracker) DailyLimit() *float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.dailyLimit == nil {
		return nil
	}
	v := *t.dailyLimit
	return &v
}

// LastError returns the error of the latest remote refresh, if it failed.
func (t *Tracker) LastError() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastErr
}

// TotalSpentToday sums today's expenses in the active list.
func (t *Tracker) TotalSpentToday(now time.Time) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return pipeline.SpentOn(t.activeLocked(), now)
}

func validAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 0) && !math.IsNaN(amount)
}

// AddExpense records an expense. Signed in, the row is inserted remotely and
// only the confirmed record is added. As a guest, a local record is created
// and persisted immediately.
func (t *Tracker) AddExpense(ctx context.Context, amount float64, category string) (model.Transaction, error) {
	if !validAmount(amount) {
		return model.Transaction{}, ErrInvalidAmount
	}
	category = model.NormalizeCategory(category)

	if sess := t.Session(); sess != nil {
		tx, err := t.remote.InsertExpense(ctx, sess, amount, category)
		if err != nil {
			t.log.WithError(err).Warn("remote insert failed")
			return model.Transaction{}, err
		}
		if tx.OccurredAt.IsZero() {
			tx.OccurredAt = t.now()
		}
		t.mergeRemote(sess.UserID, tx)
		return tx, nil
	}

	return t.addGuest(model.Transaction{
		Amount:     amount,
		Kind:       model.Expense,
		Category:   category,
		OccurredAt: t.now(),
	})
}

// AddTransaction records an income or expense with optional description and date.
func (t *Tracker) AddTransaction(ctx context.Context, in model.TransactionInput) (model.Transaction, error) {
	if in.Kind == "" {
		in.Kind = model.Expense
	}
	if !validAmount(in.Amount) {
		return model.Transaction{}, ErrInvalidAmount
	}
	if err := model.Validate(in); err != nil {
		return model.Transaction{}, err
	}
	tx := model.Transaction{
		Amount:      in.Amount,
		Kind:        in.Kind,
		Category:    model.NormalizeCategory(in.Category),
		Description: in.Description,
		OccurredAt:  in.OccurredAt,
	}

	if sess := t.Session(); sess != nil {
		stored, err := t.remote.InsertTransaction(ctx, sess, tx)
		if err != nil {
			t.log.WithError(err).Warn("remote insert failed")
			return model.Transaction{}, err
		}
		if stored.OccurredAt.IsZero() {
			stored.OccurredAt = t.now()
		}
		t.mergeRemote(sess.UserID, stored)
		return stored, nil
	}

	if tx.OccurredAt.IsZero() {
		tx.OccurredAt = t.now()
	}
	return t.addGuest(tx)
}

func (t *Tracker) addGuest(tx model.Transaction) (model.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return model.Transaction{}, ErrNotLoaded
	}
	if t.sess != nil {
		// Signed in while we were building the record.
		return model.Transaction{}, ErrNotAuthenticated
	}

	tx.ID = uuid.NewString()
	next, err := t.store.UpdateGuestTransactions(func(cur []model.Transaction) ([]model.Transaction, error) {
		next := append([]model.Transaction{tx}, cur...)
		pipeline.SortNewestFirst(next)
		return next, nil
	})
	if err != nil {
		return model.Transaction{}, fmt.Errorf("saving guest transactions: %w", err)
	}
	t.guest = next
	return tx, nil
}

// inWindowLocked reports whether tx belongs in the remote recent-expense list.
func (t *Tracker) inWindowLocked(tx model.Transaction) bool {
	if tx.Kind != model.Expense {
		return false
	}
	since := pipeline.StartOfDay(t.now()).AddDate(0, 0, -t.windowDays)
	return !tx.OccurredAt.Before(since)
}

// mergeRemote adds or replaces a confirmed remote record, provided the same
// user is still signed in.
func (t *Tracker) mergeRemote(userID string, tx model.Transaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess == nil || t.sess.UserID != userID {
		return
	}

	next := make([]model.Transaction, 0, len(t.remoteTxs)+1)
	for _, existing := range t.remoteTxs {
		if existing.ID != tx.ID {
			next = append(next, existing)
		}
	}
	if t.inWindowLocked(tx) {
		next = append([]model.Transaction{tx}, next...)
	}
	pipeline.SortNewestFirst(next)
	t.remoteTxs = next
}

// UpdateTransaction applies patch to the record with the given id.
func (t *Tracker) UpdateTransaction(ctx context.Context, id string, patch model.TransactionPatch) (model.Transaction, error) {
	if patch.Amount != nil && !validAmount(*patch.Amount) {
		return model.Transaction{}, ErrInvalidAmount
	}
	if patch.Kind != nil {
		if _, err := model.ParseKind(string(*patch.Kind)); err != nil || *patch.Kind == "" {
			return model.Transaction{}, fmt.Errorf("%w: unknown kind %q", model.ErrValidation, *patch.Kind)
		}
	}
	if patch.Category != nil {
		c := model.NormalizeCategory(*patch.Category)
		patch.Category = &c
	}

	if sess := t.Session(); sess != nil {
		current, err := t.findRemote(ctx, sess, id)
		if err != nil {
			return model.Transaction{}, err
		}
		stored, err := t.remote.UpdateTransaction(ctx, sess, patch.Apply(current))
		if err != nil {
			t.log.WithError(err).WithField("id", id).Warn("remote update failed")
			return model.Transaction{}, err
		}
		t.mergeRemote(sess.UserID, stored)
		return stored, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return model.Transaction{}, ErrNotLoaded
	}
	var updated model.Transaction
	next, err := t.store.UpdateGuestTransactions(func(cur []model.Transaction) ([]model.Transaction, error) {
		next := clone(cur)
		for i := range next {
			if next[i].ID == id {
				updated = patch.Apply(next[i])
				next[i] = updated
				pipeline.SortNewestFirst(next)
				return next, nil
			}
		}
		return nil, fmt.Errorf("%w: transaction %s", ErrNotFound, id)
	})
	if errors.Is(err, ErrNotFound) {
		return model.Transaction{}, err
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("saving guest transactions: %w", err)
	}
	t.guest = next
	return updated, nil
}

// findRemote looks in the recent window first and falls back to the full history.
func (t *Tracker) findRemote(ctx context.Context, sess *model.Session, id string) (model.Transaction, error) {
	t.mu.RLock()
	for _, tx := range t.remoteTxs {
		if tx.ID == id {
			t.mu.RUnlock()
			return tx, nil
		}
	}
	t.mu.RUnlock()

	all, err := t.remote.ListTransactions(ctx, sess)
	if err != nil {
		return model.Transaction{}, err
	}
	for _, tx := range all {
		if tx.ID == id {
			return tx, nil
		}
	}
	return model.Transaction{}, fmt.Errorf("%w: transaction %s", ErrNotFound, id)
}

// DeleteTransaction removes a record. Signed in, the local list changes only
// after the backend confirms the deletion.
func (t *Tracker) DeleteTransaction(ctx context.Context, id string) error {
	if sess := t.Session(); sess != nil {
		if err := t.remote.DeleteTransaction(ctx, sess, id); err != nil {
			t.log.WithError(err).WithField("id", id).Warn("remote delete failed")
			return err
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.sess != nil && t.sess.UserID == sess.UserID {
			next := make([]model.Transaction, 0, len(t.remoteTxs))
			for _, tx := range t.remoteTxs {
				if tx.ID != id {
					next = append(next, tx)
				}
			}
			t.remoteTxs = next
		}
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return ErrNotLoaded
	}
	next, err := t.store.UpdateGuestTransactions(func(cur []model.Transaction) ([]model.Transaction, error) {
		next := make([]model.Transaction, 0, len(cur))
		for _, tx := range cur {
			if tx.ID != id {
				next = append(next, tx)
			}
		}
		if len(next) == len(cur) {
			return nil, fmt.Errorf("%w: transaction %s", ErrNotFound, id)
		}
		return next, nil
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("saving guest transactions: %w", err)
	}
	t.guest = next
	return nil
}

// Ledger returns the full history of the active source, newest first.
func (t *Tracker) Ledger(ctx context.Context) ([]model.Transaction, error) {
	if sess := t.Session(); sess != nil {
		txs, err := t.remote.ListTransactions(ctx, sess)
		if err != nil {
			return nil, err
		}
		pipeline.SortNewestFirst(txs)
		return txs, nil
	}
	return t.Transactions(), nil
}

// Currency returns the display currency code.
func (t *Tracker) Currency() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currency
}

// SetCurrency validates and persists the display currency.
func (t *Tracker) SetCurrency(code string) error {
	if !currency.Known(code) {
		return fmt.Errorf("%w: unsupported currency %q (want one of %v)", model.ErrValidation, code, currency.Available())
	}
	code = currency.Normalize(code)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return ErrNotLoaded
	}
	if err := t.store.SetCurrency(code); err != nil {
		return fmt.Errorf("saving currency: %w", err)
	}
	t.currency = code
	return nil
}

// OverrideCurrency changes the display currency for this tracker only; the
// stored preference is left alone.
func (t *Tracker) OverrideCurrency(code string) error {
	if !currency.Known(code) {
		return fmt.Errorf("%w: unsupported currency %q (want one of %v)", model.ErrValidation, code, currency.Available())
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return ErrNotLoaded
	}
	t.currency = currency.Normalize(code)
	return nil
}

// FormatAmount renders amount in the display currency.
func (t *Tracker) FormatAmount(amount float64, opts ...currency.Options) string {
	return currency.Format(amount, t.Currency(), opts...)
}

// CurrencySymbol is the symbol of the display currency.
func (t *Tracker) CurrencySymbol() string {
	return currency.Symbol(t.Currency())
}

// Username returns the signed-in user's display name, or "Guest".
func (t *Tracker) Username(ctx context.Context) string {
	sess := t.Session()
	if sess == nil {
		return "Guest"
	}
	name, err := t.remote.FetchUsername(ctx, sess)
	if err != nil {
		t.log.WithError(err).Debug("profile lookup failed")
	}
	if name != "" {
		return name
	}
	if sess.Email != "" {
		return sess.Email
	}
	return "User"
}

// Status is a point-in-time view of the tracker for status displays.
type Status struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id,omitempty"`
	Email         string    `json:"email,omitempty"`
	Loading       bool      `json:"loading"`
	Currency      string    `json:"currency"`
	SpentToday    float64   `json:"spent_today"`
	DailyLimit    *float64  `json:"daily_limit,omitempty"`
	Transactions  int       `json:"transactions"`
	Challenge     string    `json:"challenge"`
	LastRefresh   time.Time `json:"last_refresh,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	Generation    uint64    `json:"generation"`
}

// Status summarises the tracker at now.
func (t *Tracker) Status(now time.Time) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st := Status{
		Authenticated: t.sess != nil,
		Loading:       t.loading,
		Currency:      t.currency,
		SpentToday:    pipeline.SpentOn(t.activeLocked(), now),
		Transactions:  len(t.activeLocked()),
		Challenge:     t.board.Active.String(),
		LastRefresh:   t.lastRefresh,
		Generation:    t.gen,
	}
	if t.sess != nil {
		st.UserID = t.sess.UserID
		st.Email = t.sess.Email
	}
	if t.dailyLimit != nil {
		v := *t.dailyLimit
		st.DailyLimit = &v
	}
	if t.lastErr != nil {
		st.LastError = t.lastErr.Error()
	}
	return st
}
