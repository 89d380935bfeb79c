package tracker

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/logger"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
	"github.com/lacag-app/lacag/internal/store"
)

var now = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

func u1() *model.Session { return &model.Session{UserID: "u1", Email: "a@b.co", AccessToken: "tok1"} }
func u2() *model.Session { return &model.Session{UserID: "u2", AccessToken: "tok2"} }

func newTracker(t *testing.T, st Store, r Remote) *Tracker {
	t.Helper()
	tr := New(st, r, Options{Clock: func() time.Time { return now }, Log: logger.Discard()})
	require.NoError(t, tr.Load())
	return tr
}

func expense(id string, amount float64, at time.Time) model.Transaction {
	return model.Transaction{ID: id, UserID: "u1", Amount: amount, Kind: model.Expense, Category: "Food", OccurredAt: at}
}

func TestGuestAddExpenseThenQuery(t *testing.T) {
	st := &memStore{}
	tr := newTracker(t, st, nil)

	tx, err := tr.AddExpense(context.Background(), 12, "Food")
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.True(t, tx.IsGuest())

	require.Len(t, tr.Transactions(), 1)
	assert.InDelta(t, 12, tr.TotalSpentToday(now), 1e-9)
	assert.Len(t, st.guest, 1, "guest add persists immediately")
	assert.False(t, tr.IsAuthenticated())
}

func TestAddExpenseRejectsInvalidAmount(t *testing.T) {
	st := &memStore{}
	tr := newTracker(t, st, nil)

	for _, amount := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		_, err := tr.AddExpense(context.Background(), amount, "Food")
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %v", amount)
	}
	assert.Empty(t, tr.Transactions())
	assert.Zero(t, st.writes)
}

func TestGuestMutationsWaitForLoad(t *testing.T) {
	st := &memStore{guest: []model.Transaction{{ID: "g1", Amount: 5, Kind: model.Expense, OccurredAt: now}}}
	tr := New(st, nil, Options{Clock: func() time.Time { return now }, Log: logger.Discard()})

	_, err := tr.AddExpense(context.Background(), 3, "Food")
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, tr.SetCurrency("EUR"), ErrNotLoaded)
	assert.Len(t, st.guest, 1, "pre-load write must not clobber stored data")

	require.NoError(t, tr.Load())
	require.Len(t, tr.Transactions(), 1)
	_, err = tr.AddExpense(context.Background(), 3, "Food")
	require.NoError(t, err)
	assert.Len(t, st.guest, 2)
}

func TestLoadToleratesUnreadableStore(t *testing.T) {
	s, err := store.Open(t.TempDir() + "/lacag.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Set(store.KeyGuestTransactions, "{not json"))
	require.NoError(t, s.Set(store.KeyChallenge, "[]"))

	tr := newTracker(t, s, nil)
	assert.Empty(t, tr.Transactions())
	assert.Equal(t, challenge.None, tr.Challenge().Active)

	_, err = tr.AddExpense(context.Background(), 4, "Coffee")
	require.NoError(t, err)
	stored, err := s.GuestTransactions()
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestGuestWritesFromTwoTrackersOnOneDatabase(t *testing.T) {
	path := t.TempDir() + "/lacag.db"
	open := func() *store.Store {
		s, err := store.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}
	cliTracker := newTracker(t, open(), nil)
	daemonTracker := newTracker(t, open(), nil)
	ctx := context.Background()

	first, err := cliTracker.AddExpense(ctx, 5, "Food")
	require.NoError(t, err)
	_, err = daemonTracker.AddExpense(ctx, 7, "Fun")
	require.NoError(t, err)
	assert.Len(t, daemonTracker.Transactions(), 2, "writer picks up the other tracker's entry")

	amount := 6.0
	_, err = cliTracker.UpdateTransaction(ctx, first.ID, model.TransactionPatch{Amount: &amount})
	require.NoError(t, err)
	assert.Len(t, cliTracker.Transactions(), 2)

	_, err = daemonTracker.SavePlan(ctx, model.PlanInput{Month: "June", Target: 100})
	require.NoError(t, err)
	_, err = cliTracker.SavePlan(ctx, model.PlanInput{Month: "July", Target: 200})
	require.NoError(t, err)

	fresh := newTracker(t, open(), nil)
	txs := fresh.Transactions()
	require.Len(t, txs, 2)
	var total float64
	for _, tx := range txs {
		total += tx.Amount
	}
	assert.InDelta(t, 13, total, 1e-9)
	plans, err := fresh.Plans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 2)

	require.NoError(t, daemonTracker.DeleteTransaction(ctx, first.ID))
	fresh = newTracker(t, open(), nil)
	require.Len(t, fresh.Transactions(), 1)
	assert.InDelta(t, 7, fresh.Transactions()[0].Amount, 1e-9)
}

func TestSignInDiscardsGuestData(t *testing.T) {
	st := &memStore{}
	r := newFakeRemote(now)
	r.recent["u1"] = []model.Transaction{expense("r1", 20, now.Add(-time.Hour))}
	tr := newTracker(t, st, r)

	_, err := tr.AddExpense(context.Background(), 9, "Food")
	require.NoError(t, err)
	_, err = tr.SavePlan(context.Background(), model.PlanInput{Month: "june", Target: 100})
	require.NoError(t, err)

	require.NoError(t, tr.SetSession(context.Background(), u1()))
	assert.True(t, tr.IsAuthenticated())
	txs := tr.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "r1", txs[0].ID)
	assert.Empty(t, st.guest, "guest store cleared on login")
	assert.Empty(t, st.plans)
	assert.InDelta(t, 20, tr.TotalSpentToday(now), 1e-9)

	require.NoError(t, tr.SetSession(context.Background(), nil))
	assert.False(t, tr.IsAuthenticated())
	assert.Empty(t, tr.Transactions(), "guest mode resumes empty, old guest data is gone")
}

func TestMalformedSessionIsGuest(t *testing.T) {
	tr := newTracker(t, &memStore{}, newFakeRemote(now))
	require.NoError(t, tr.SetSession(context.Background(), &model.Session{UserID: "u1"}))
	assert.False(t, tr.IsAuthenticated())
	assert.ErrorIs(t, tr.Refresh(context.Background()), ErrNotAuthenticated)
}

func TestNoBackendNeverAuthenticates(t *testing.T) {
	tr := newTracker(t, &memStore{}, nil)
	require.NoError(t, tr.SetSession(context.Background(), u1()))
	assert.False(t, tr.IsAuthenticated())
	assert.Equal(t, "Guest", tr.Username(context.Background()))
}

func TestStaleRefreshAfterUserSwitchIsDiscarded(t *testing.T) {
	r := newFakeRemote(now)
	r.recent["u1"] = []model.Transaction{expense("a", 10, now)}
	r.recent["u2"] = []model.Transaction{expense("b", 7, now)}
	tr := newTracker(t, &memStore{}, r)
	require.NoError(t, tr.SetSession(context.Background(), u1()))

	release := make(chan struct{})
	r.mu.Lock()
	r.fetchGate = make(chan chan struct{}, 1)
	r.fetchGate <- release
	r.entered = make(chan struct{}, 1)
	entered := r.entered
	r.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- tr.Refresh(context.Background()) }()
	<-entered

	require.NoError(t, tr.SetSession(context.Background(), u2()))
	close(release)
	require.NoError(t, <-done)

	txs := tr.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "b", txs[0].ID, "u1's late result must not overwrite u2")
	assert.False(t, tr.Loading())
}

// parkNextFetch holds the next FetchRecent until release is closed; entered
// fires once that fetch is parked.
func parkNextFetch(r *fakeRemote) (release chan struct{}, entered chan struct{}) {
	release = make(chan struct{})
	r.mu.Lock()
	r.fetchGate = make(chan chan struct{}, 1)
	r.fetchGate <- release
	r.entered = make(chan struct{}, 1)
	entered = r.entered
	r.mu.Unlock()
	return release, entered
}

func TestUserSwitchWithFailedRefreshShowsNoPreviousUserData(t *testing.T) {
	r := newFakeRemote(now)
	r.recent["u1"] = []model.Transaction{expense("a", 10, now)}
	limit := 40.0
	r.limit = &limit
	tr := newTracker(t, &memStore{}, r)
	require.NoError(t, tr.SetSession(context.Background(), u1()))
	require.NotNil(t, tr.DailyLimit())

	release, entered := parkNextFetch(r)
	done := make(chan error, 1)
	go func() { done <- tr.Refresh(context.Background()) }()
	<-entered

	r.mu.Lock()
	r.fetchErr = errors.New("offline")
	r.failUser = "u2"
	r.mu.Unlock()
	require.Error(t, tr.SetSession(context.Background(), u2()))

	close(release)
	require.NoError(t, <-done)

	assert.Empty(t, tr.Transactions(), "u1's rows must not show for u2")
	assert.Nil(t, tr.DailyLimit())
	assert.Equal(t, "u2", tr.Session().UserID)
}

func TestRefreshResultForReplacedUserIsNotApplied(t *testing.T) {
	r := newFakeRemote(now)
	r.recent["u1"] = []model.Transaction{expense("a", 10, now)}
	tr := newTracker(t, &memStore{}, r)
	require.NoError(t, tr.SetSession(context.Background(), u1()))

	release, entered := parkNextFetch(r)
	done := make(chan error, 1)
	go func() { done <- tr.Refresh(context.Background()) }()
	<-entered

	// The session is swapped before any generation change, as happens
	// between SetSession releasing the lock and the new user's refresh.
	tr.mu.Lock()
	tr.sess = u2()
	tr.remoteTxs = nil
	tr.mu.Unlock()

	close(release)
	require.NoError(t, <-done)
	assert.Empty(t, tr.Transactions())
}

func TestSetSessionInvalidatesRefreshesOnIdentityChange(t *testing.T) {
	r := newFakeRemote(now)
	tr := newTracker(t, &memStore{}, r)
	require.NoError(t, tr.SetSession(context.Background(), u1()))

	r.mu.Lock()
	r.fetchErr = errors.New("offline")
	r.mu.Unlock()

	tr.mu.RLock()
	before := tr.gen
	tr.mu.RUnlock()
	require.Error(t, tr.SetSession(context.Background(), u2()))
	tr.mu.RLock()
	after := tr.gen
	tr.mu.RUnlock()
	assert.Equal(t, before+2, after, "one bump for the switch, one for the new refresh")

	// Same identity with a rotated token keeps in-flight refreshes valid.
	rotated := u2()
	rotated.AccessToken = "tok2-new"
	require.NoError(t, tr.SetSession(context.Background(), rotated))
	tr.mu.RLock()
	assert.Equal(t, after, tr.gen)
	tr.mu.RUnlock()
}

func TestStaleRefreshAfterSignOutIsDiscarded(t *testing.T) {
	r := newFakeRemote(now)
	r.recent["u1"] = []model.Transaction{expense("a", 10, now)}
	tr := newTracker(t, &memStore{}, r)
	require.NoError(t, tr.SetSession(context.Background(), u1()))

	release := make(chan struct{})
	r.mu.Lock()
	r.fetchGate = make(chan chan struct{}, 1)
	r.fetchGate <- release
	r.entered = make(chan struct{}, 1)
	entered := r.entered
	r.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- tr.Refresh(context.Background()) }()
	<-entered

	require.NoError(t, tr.SetSession(context.Background(), nil))
	close(release)
	require.NoError(t, <-done)

	assert.False(t, tr.IsAuthenticated())
	assert.Empty(t, tr.Transactions())
}

func TestRefreshFailureKeepsPreviousData(t *testing.T) {
	r := newFakeRemote(now)
	r.recent["u1"] = []model.Transaction{expense("a", 10, now)}
	tr := newTracker(t, &memStore{}, r)
	require.NoError(t, tr.SetSession(context.Background(), u1()))

	r.mu.Lock()
	r.fetchErr = errors.New("offline")
	r.mu.Unlock()

	err := tr.Refresh(context.Background())
	require.Error(t, err)
	assert.Len(t, tr.Transactions(), 1)
	assert.EqualError(t, tr.LastError(), "offline")
	assert.False(t, tr.Loading())
	assert.Equal(t, "offline", tr.Status(now).LastError)
}

func TestRemoteAddIsConfirmedFirst(t *testing.T) {
	r := newFakeRemote(now)
	tr := newTracker(t, &memStore{}, r)
	require.NoError(t, tr.SetSession(context.Background(), u1()))

	r.mu.Lock()
	r.insertErr = errors.New("rejected")
	r.mu.Unlock()
	_, err := tr.AddExpense(context.Background(), 5, "Food")
	require.Error(t, err)
	assert.Empty(t, tr.Transactions())

	r.mu.Lock()
	r.insertErr = nil
	r.mu.Unlock()
	tx, err := tr.AddExpense(context.Background(), 5, "Food")
	require.NoError(t, err)
	assert.Equal(t, "u1", tx.UserID)
	require.Len(t, tr.Transactions(), 1)
	assert.InDelta(t, 5, tr.TotalSpentToday(now), 1e-9)
}

func TestRemoteIncomeStaysOutOfRecentWindow(t *testing.T) {
	r := newFakeRemote(now)
	tr := newTracker(t, &memStore{}, r)
	require.NoError(t, tr.SetSession(context.Background(), u1()))

	_, err := tr.AddTransaction(context.Background(), model.TransactionInput{Amount: 500, Kind: model.Income, Category: "Salary"})
	require.NoError(t, err)
	assert.Empty(t, tr.Transactions(), "recent window only carries expenses")

	ledger, err := tr.Ledger(context.Background())
	require.NoError(t, err)
	assert.Len(t, ledger, 1)
}

func TestRemoteDeleteNeedsConfirmation(t *testing.T) {
	r := newFakeRemote(now)
	r.recent["u1"] = []model.Transaction{expense("a", 10, now)}
	tr := newTracker(t, &memStore{}, r)
	require.NoError(t, tr.SetSession(context.Background(), u1()))

	r.mu.Lock()
	r.deleteErr = errors.New("forbidden")
	r.mu.Unlock()
	require.Error(t, tr.DeleteTransaction(context.Background(), "a"))
	assert.Len(t, tr.Transactions(), 1)

	r.mu.Lock()
	r.deleteErr = nil
	r.mu.Unlock()
	require.NoError(t, tr.DeleteTransaction(context.Background(), "a"))
	assert.Empty(t, tr.Transactions())
}

func TestGuestUpdateAndDelete(t *testing.T) {
	st := &memStore{}
	tr := newTracker(t, st, nil)
	tx, err := tr.AddExpense(context.Background(), 12, "food")
	require.NoError(t, err)
	assert.Equal(t, "Food", tx.Category)

	amount := 15.5
	cat := "transport"
	updated, err := tr.UpdateTransaction(context.Background(), tx.ID, model.TransactionPatch{Amount: &amount, Category: &cat})
	require.NoError(t, err)
	assert.InDelta(t, 15.5, updated.Amount, 1e-9)
	assert.Equal(t, "Transport", updated.Category)

	free := "Shipping"
	updated, err = tr.UpdateTransaction(context.Background(), tx.ID, model.TransactionPatch{Category: &free})
	require.NoError(t, err)
	assert.Equal(t, "Shipping", updated.Category, "free text is stored as typed")
	assert.InDelta(t, 15.5, st.guest[0].Amount, 1e-9)

	bad := 0.0
	_, err = tr.UpdateTransaction(context.Background(), tx.ID, model.TransactionPatch{Amount: &bad})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.ErrorIs(t, tr.DeleteTransaction(context.Background(), "missing"), ErrNotFound)
	require.NoError(t, tr.DeleteTransaction(context.Background(), tx.ID))
	assert.Empty(t, tr.Transactions())
	assert.Empty(t, st.guest)
}

func TestGuestWriteFailureLeavesMemoryUnchanged(t *testing.T) {
	st := &memStore{}
	tr := newTracker(t, st, nil)
	st.failWrite = errors.New("disk full")

	_, err := tr.AddExpense(context.Background(), 3, "Food")
	require.Error(t, err)
	assert.Empty(t, tr.Transactions())
}

func TestCurrencyPreference(t *testing.T) {
	st := &memStore{currency: "EUR"}
	tr := newTracker(t, st, nil)
	assert.Equal(t, "EUR", tr.Currency())
	assert.Equal(t, "€", tr.CurrencySymbol())

	assert.ErrorIs(t, tr.SetCurrency("XYZ"), model.ErrValidation)
	assert.Equal(t, "EUR", tr.Currency())

	require.NoError(t, tr.SetCurrency("sos"))
	assert.Equal(t, "SOS", tr.Currency())
	assert.Equal(t, "SOS", st.currency)
}

func TestOverrideCurrencyIsNotPersisted(t *testing.T) {
	st := &memStore{currency: "EUR"}
	tr := newTracker(t, st, nil)

	require.NoError(t, tr.OverrideCurrency("sos"))
	assert.Equal(t, "SOS", tr.Currency())
	assert.Equal(t, "EUR", st.currency)
	assert.Zero(t, st.writes)
	assert.ErrorIs(t, tr.OverrideCurrency("XYZ"), model.ErrValidation)

	assert.Equal(t, "EUR", newTracker(t, st, nil).Currency())
}

func TestUnknownStoredCurrencyFallsBack(t *testing.T) {
	tr := newTracker(t, &memStore{currency: "ZZZ"}, nil)
	assert.Equal(t, "USD", tr.Currency())
}

func TestGuestPlans(t *testing.T) {
	st := &memStore{}
	tr := newTracker(t, st, nil)
	ctx := context.Background()

	_, err := tr.SavePlan(ctx, model.PlanInput{Month: "Smarch", Target: 10})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = tr.SavePlan(ctx, model.PlanInput{Month: "June", Target: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	p, err := tr.SavePlan(ctx, model.PlanInput{Month: "jun", Target: 300, Notes: "holiday"})
	require.NoError(t, err)
	assert.Equal(t, "June", p.Month)
	assert.NotEmpty(t, p.ID)

	p2, err := tr.SavePlan(ctx, model.PlanInput{ID: p.ID, Month: "July", Target: 400})
	require.NoError(t, err)
	assert.Equal(t, p.CreatedAt, p2.CreatedAt)

	plans, err := tr.Plans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "July", plans[0].Month)
	require.Len(t, st.plans, 1)

	_, err = tr.SavePlan(ctx, model.PlanInput{ID: "nope", Month: "July", Target: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tr.DeletePlan(ctx, p.ID))
	plans, err = tr.Plans(ctx)
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestChallengeLifecyclePersists(t *testing.T) {
	st := &memStore{}
	tr := newTracker(t, st, nil)

	require.NoError(t, tr.BeginChallenge(challenge.SevenDay))
	assert.ErrorIs(t, tr.ConfirmChallenge(challenge.SevenDay, 0), challenge.ErrInvalidLimit)
	assert.Equal(t, challenge.StepInput, st.board.Seven.Step)

	require.NoError(t, tr.ConfirmChallenge(challenge.SevenDay, 20))
	assert.Equal(t, challenge.SevenDay, st.board.Active)
	assert.ErrorIs(t, tr.BeginChallenge(challenge.ThirtyDay), challenge.ErrOtherActive)

	assert.ErrorIs(t, tr.StopChallenge(challenge.SevenDay, false), challenge.ErrNotConfirmed)
	require.NoError(t, tr.StopChallenge(challenge.SevenDay, true))
	assert.Equal(t, challenge.None, tr.Challenge().Active)
	assert.Equal(t, challenge.None, st.board.Active)
}

func TestChallengeProgressFromGuestExpenses(t *testing.T) {
	tr := newTracker(t, &memStore{}, nil)
	ctx := context.Background()
	require.NoError(t, tr.BeginChallenge(challenge.SevenDay))
	require.NoError(t, tr.ConfirmChallenge(challenge.SevenDay, 10))

	_, err := tr.AddExpense(ctx, 12, "Food")
	require.NoError(t, err)
	_, err = tr.AddTransaction(ctx, model.TransactionInput{Amount: 4, Kind: model.Expense, OccurredAt: now.AddDate(0, 0, -2)})
	require.NoError(t, err)
	_, err = tr.AddTransaction(ctx, model.TransactionInput{Amount: 900, Kind: model.Income, OccurredAt: now.AddDate(0, 0, -2)})
	require.NoError(t, err)

	p := tr.Progress(challenge.SevenDay, now)
	require.Len(t, p.Slots, 7)
	assert.Equal(t, pipeline.StartOfDay(now.AddDate(0, 0, -2)), p.WindowStart)
	assert.Equal(t, 2, p.CurrentDayIndex)
	assert.Equal(t, pipeline.SlotUnder, p.Slots[0].Status)
	assert.InDelta(t, 4, p.Slots[0].Total, 1e-9, "income is ignored")
	assert.True(t, p.OverToday)
	assert.InDelta(t, 12, p.SpentToday, 1e-9)
}

func TestSevenDayLimitFallsBackToPlanLimit(t *testing.T) {
	r := newFakeRemote(now)
	limit := 40.0
	r.limit = &limit
	tr := newTracker(t, &memStore{}, r)
	require.NoError(t, tr.SetSession(context.Background(), u1()))

	assert.InDelta(t, 40, tr.ChallengeLimit(challenge.SevenDay), 1e-9)
	assert.Zero(t, tr.ChallengeLimit(challenge.ThirtyDay))

	require.NoError(t, tr.BeginChallenge(challenge.SevenDay))
	require.NoError(t, tr.ConfirmChallenge(challenge.SevenDay, 15))
	assert.InDelta(t, 15, tr.ChallengeLimit(challenge.SevenDay), 1e-9)
}

func TestUsernameFallbacks(t *testing.T) {
	r := newFakeRemote(now)
	tr := newTracker(t, &memStore{}, r)
	assert.Equal(t, "Guest", tr.Username(context.Background()))

	require.NoError(t, tr.SetSession(context.Background(), u1()))
	assert.Equal(t, "a@b.co", tr.Username(context.Background()))

	r.username = "ana"
	assert.Equal(t, "ana", tr.Username(context.Background()))

	require.NoError(t, tr.SetSession(context.Background(), u2()))
	r.username = ""
	assert.Equal(t, "User", tr.Username(context.Background()))
}
