package pipeline

import (
	"time"

	"github.com/lacag-app/lacag/internal/model"
)

// SlotStatus is the state of one day in a challenge window.
type SlotStatus string

const (
	SlotFuture SlotStatus = "future"
	SlotToday  SlotStatus = "today"
	SlotUnder  SlotStatus = "under"
	SlotOver   SlotStatus = "over"
)

// DaySlot is one day of a challenge window.
type DaySlot struct {
	Date   time.Time  `json:"date"`
	Total  float64    `json:"total"`
	Status SlotStatus `json:"status"`
}

// ChallengeProgress is the derived state of a running challenge.
type ChallengeProgress struct {
	Slots           []DaySlot `json:"slots"`
	WindowStart     time.Time `json:"window_start"`
	CurrentDayIndex int       `json:"current_day_index"`
	DayNumber       int       `json:"day_number"`
	Limit           float64   `json:"limit"`
	SpentToday      float64   `json:"spent_today"`
	RemainingToday  float64   `json:"remaining_today"`
	OverToday       bool      `json:"over_today"`
}

// UnderDays counts completed days that stayed within the limit.
func (p ChallengeProgress) UnderDays() int {
	n := 0
	for _, s := range p.Slots {
		if s.Status == SlotUnder {
			n++
		}
	}
	return n
}

// ThirtyDayLimit spreads a total budget evenly over thirty days.
func ThirtyDayLimit(totalBudget float64) float64 {
	if totalBudget <= 0 {
		return 0
	}
	return totalBudget / 30
}

// ComputeChallengeProgress lays out windowDays day slots and tags each one.
//
// The window starts on the day of the earliest expense within the trailing
// windowDays (today included), or today when there is none. Past days are
// over when their expense total is strictly greater than limitPerDay. The
// current day is always tagged today; its urgency comes from spentToday
// rather than the slot total.
func ComputeChallengeProgress(txs []model.Transaction, windowDays int, limitPerDay, spentToday float64, now time.Time) ChallengeProgress {
	if windowDays < 1 {
		windowDays = 1
	}
	today := StartOfDay(now)
	lower := AddDays(today, -(windowDays - 1))

	start := today
	for _, tx := range txs {
		if tx.Kind != model.Expense {
			continue
		}
		ts := tx.OccurredAt.In(now.Location())
		if ts.Before(lower) || ts.After(now) {
			continue
		}
		if d := StartOfDay(ts); d.Before(start) {
			start = d
		}
	}

	// start is never before lower, so today always falls inside the slots.

	p := ChallengeProgress{
		Slots:          make([]DaySlot, windowDays),
		WindowStart:    start,
		Limit:          limitPerDay,
		SpentToday:     spentToday,
		RemainingToday: limitPerDay - spentToday,
	}
	p.OverToday = p.RemainingToday < 0

	for i := range p.Slots {
		day := AddDays(start, i)
		slot := DaySlot{Date: day, Total: SpentOn(txs, day)}
		switch Classify(day, now) {
		case DayPast:
			if slot.Total > limitPerDay {
				slot.Status = SlotOver
			} else {
				slot.Status = SlotUnder
			}
		case DayToday:
			slot.Status = SlotToday
			p.CurrentDayIndex = i
		case DayFuture:
			slot.Status = SlotFuture
		}
		p.Slots[i] = slot
	}
	p.DayNumber = p.CurrentDayIndex + 1
	return p
}
