package model

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionValid(t *testing.T) {
	var nilSess *Session
	assert.False(t, nilSess.Valid())
	assert.False(t, (&Session{UserID: "u1"}).Valid())
	assert.False(t, (&Session{AccessToken: "tok"}).Valid())
	assert.False(t, (&Session{UserID: "u1", AccessToken: "   "}).Valid())
	assert.True(t, (&Session{UserID: "u1", AccessToken: "tok"}).Valid())
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{UserID: "u", AccessToken: "t", ExpiresAt: now}
	assert.True(t, s.Expired(now))
	assert.False(t, s.Expired(now.Add(-time.Second)))
	assert.False(t, (&Session{UserID: "u", AccessToken: "t"}).Expired(now))
}

func TestSameIdentity(t *testing.T) {
	a := &Session{UserID: "u1", AccessToken: "x"}
	b := &Session{UserID: "u1", AccessToken: "y"}
	c := &Session{UserID: "u2", AccessToken: "y"}
	assert.True(t, SameIdentity(a, b))
	assert.False(t, SameIdentity(a, c))
	assert.True(t, SameIdentity(nil, &Session{UserID: "u1"}))
	assert.False(t, SameIdentity(nil, a))
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		"":          CategoryOther,
		"food":      CategoryFood,
		"FOOD":      CategoryFood,
		" Bills ":   CategoryBills,
		"trasnport": "trasnport",
		"Shipping":  "Shipping",
		"Coffee":    "Coffee",
		"fun":       CategoryFun,
		"gum":       "gum",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeCategory(in), "input %q", in)
	}
}

func TestSuggestCategory(t *testing.T) {
	got, ok := SuggestCategory("trasnport")
	assert.True(t, ok)
	assert.Equal(t, CategoryTransport, got)

	got, ok = SuggestCategory("Shipping")
	assert.True(t, ok)
	assert.Equal(t, CategoryShopping, got)

	for _, in := range []string{"Food", "food", "gum", "Coffee", "Rent for garage", ""} {
		_, ok := SuggestCategory(in)
		assert.False(t, ok, "input %q", in)
	}
}

func TestCategoryIcon(t *testing.T) {
	assert.Equal(t, "🍔", CategoryIcon("food"))
	assert.Equal(t, CategoryIcon(CategoryOther), CategoryIcon("Rent for garage"))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Income")
	require.NoError(t, err)
	assert.Equal(t, Income, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, Expense, k)

	_, err = ParseKind("transfer")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("dec")
	require.NoError(t, err)
	assert.Equal(t, "December", m)

	_, err = ParseMonth("Smarch")
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, "March", MonthOf(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
}

func TestValidateTransactionInput(t *testing.T) {
	ok := TransactionInput{Amount: 12, Kind: Expense, Category: "Food"}
	require.NoError(t, Validate(ok))

	for _, amt := range []float64{0, -5, math.NaN()} {
		err := Validate(TransactionInput{Amount: amt, Kind: Expense})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "Amount")
	}

	err := Validate(TransactionInput{Amount: 1, Kind: "gift"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidatePlanInput(t *testing.T) {
	require.NoError(t, Validate(PlanInput{Month: "May", Target: 500}))
	assert.ErrorIs(t, Validate(PlanInput{Month: "May", Target: 0}), ErrValidation)
	assert.ErrorIs(t, Validate(PlanInput{Month: "Mayday", Target: 10}), ErrValidation)
}

func TestTransactionPatchApply(t *testing.T) {
	tx := Transaction{ID: "1", Amount: 5, Kind: Expense, Category: "Food"}
	amt := 9.5
	cat := "Fun"
	out := TransactionPatch{Amount: &amt, Category: &cat}.Apply(tx)
	assert.Equal(t, 9.5, out.Amount)
	assert.Equal(t, "Fun", out.Category)
	assert.Equal(t, Expense, out.Kind)
	assert.True(t, TransactionPatch{}.Empty())
}
