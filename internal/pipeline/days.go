package pipeline

import (
	"time"

	"github.com/lacag-app/lacag/internal/model"
)

// DayClass places a calendar day relative to the current day.
type DayClass int

const (
	DayPast DayClass = iota
	DayToday
	DayFuture
)

func (c DayClass) String() string {
	switch c {
	case DayPast:
		return "past"
	case DayToday:
		return "today"
	case DayFuture:
		return "future"
	}
	return "unknown"
}

// StartOfDay returns 00:00:00.000 of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// AddDays moves t by n calendar days. DST shifts keep the wall clock.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// InDay reports whether ts lies within day's inclusive bounds.
func InDay(ts, day time.Time) bool {
	ts = ts.In(day.Location())
	return !ts.Before(StartOfDay(day)) && !ts.After(EndOfDay(day))
}

// Classify compares day with now at day granularity.
func Classify(day, now time.Time) DayClass {
	d := StartOfDay(day.In(now.Location()))
	today := StartOfDay(now)
	switch {
	case d.Before(today):
		return DayPast
	case d.Equal(today):
		return DayToday
	default:
		return DayFuture
	}
}

// SumInDay sums the amounts of txs of the given kind that fall on day.
// An empty kind matches every transaction.
func SumInDay(txs []model.Transaction, day time.Time, kind model.Kind) float64 {
	var sum float64
	for _, tx := range txs {
		if kind != "" && tx.Kind != kind {
			continue
		}
		if InDay(tx.OccurredAt, day) {
			sum += tx.Amount
		}
	}
	return sum
}

// SpentOn is the expense total for day.
func SpentOn(txs []model.Transaction, day time.Time) float64 {
	return SumInDay(txs, day, model.Expense)
}
