package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/model"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "lacag.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestGetSetDelete(t *testing.T) {
	s, _ := openTemp(t)

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrMissing)

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("a", "2"))
	v, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	ok, err := s.Has("a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete("a", "never-set"))
	ok, err = s.Has("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGuestTransactionsPersistAcrossReopen(t *testing.T) {
	s, path := openTemp(t)

	txs, err := s.GuestTransactions()
	require.NoError(t, err)
	assert.Empty(t, txs)

	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	want := []model.Transaction{{ID: "g1", Amount: 12, Kind: model.Expense, Category: "Food", OccurredAt: at}}
	require.NoError(t, s.SaveGuestTransactions(want))
	require.NoError(t, s.Close())

	// Reopen runs migrations again and must keep the data.
	s2, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	got, err := s2.GuestTransactions()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "g1", got[0].ID)
	assert.True(t, at.Equal(got[0].OccurredAt))
}

func TestUpdateGuestTransactionsSeesOtherHandlesWrites(t *testing.T) {
	a, path := openTemp(t)
	b, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	prepend := func(id string) func([]model.Transaction) ([]model.Transaction, error) {
		return func(cur []model.Transaction) ([]model.Transaction, error) {
			return append([]model.Transaction{{ID: id, Amount: 1, Kind: model.Expense}}, cur...), nil
		}
	}
	_, err = a.UpdateGuestTransactions(prepend("from-a"))
	require.NoError(t, err)
	got, err := b.UpdateGuestTransactions(prepend("from-b"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	stored, err := a.GuestTransactions()
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "from-b", stored[0].ID)
	assert.Equal(t, "from-a", stored[1].ID)
}

func TestUpdateGuestTransactionsFailureWritesNothing(t *testing.T) {
	s, _ := openTemp(t)
	require.NoError(t, s.SaveGuestTransactions([]model.Transaction{{ID: "g1", Amount: 1}}))

	boom := errors.New("boom")
	_, err := s.UpdateGuestTransactions(func([]model.Transaction) ([]model.Transaction, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GuestTransactions()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "g1", got[0].ID)

	// The connection went back to the pool without a dangling transaction.
	require.NoError(t, s.SetCurrency("EUR"))
}

func TestUpdateGuestPlansStartsFromEmpty(t *testing.T) {
	s, _ := openTemp(t)
	got, err := s.UpdateGuestPlans(func(cur []model.Plan) ([]model.Plan, error) {
		assert.Empty(t, cur)
		return append(cur, model.Plan{ID: "p1", Month: "May", Target: 10}), nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	plans, err := s.GuestPlans()
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "p1", plans[0].ID)
}

func TestClearGuest(t *testing.T) {
	s, _ := openTemp(t)
	require.NoError(t, s.SaveGuestTransactions([]model.Transaction{{ID: "g1", Amount: 1}}))
	require.NoError(t, s.SaveGuestPlans([]model.Plan{{ID: "p1", Month: "May", Target: 10}}))
	require.NoError(t, s.SetCurrency("EUR"))

	require.NoError(t, s.ClearGuest())

	ok, err := s.Has(KeyGuestTransactions)
	require.NoError(t, err)
	assert.False(t, ok)
	plans, err := s.GuestPlans()
	require.NoError(t, err)
	assert.Empty(t, plans)

	code, err := s.Currency()
	require.NoError(t, err)
	assert.Equal(t, "EUR", code)
}

func TestCorruptValueIsReported(t *testing.T) {
	s, _ := openTemp(t)
	require.NoError(t, s.Set(KeyGuestTransactions, "{not json"))
	_, err := s.GuestTransactions()
	assert.Error(t, err)
}

func TestChallengeAndSession(t *testing.T) {
	s, _ := openTemp(t)

	b, err := s.Challenge()
	require.NoError(t, err)
	assert.Equal(t, challenge.None, b.Active)

	require.NoError(t, b.Begin(challenge.SevenDay))
	require.NoError(t, b.Confirm(challenge.SevenDay, 25))
	require.NoError(t, s.SaveChallenge(b))

	back, err := s.Challenge()
	require.NoError(t, err)
	assert.Equal(t, challenge.SevenDay, back.Active)
	assert.Equal(t, 25.0, back.Seven.Limit)

	sess, err := s.Session()
	require.NoError(t, err)
	assert.Nil(t, sess)

	require.NoError(t, s.SaveSession(&model.Session{UserID: "u1", AccessToken: "at"}))
	sess, err = s.Session()
	require.NoError(t, err)
	assert.True(t, sess.Valid())

	require.NoError(t, s.SaveSession(nil))
	sess, err = s.Session()
	require.NoError(t, err)
	assert.Nil(t, sess)
}
