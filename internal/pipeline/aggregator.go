// Package pipeline derives day buckets, summaries and challenge progress from transactions.
package pipeline

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/lacag-app/lacag/internal/model"
)

// Summarize totals income and expense over txs.
func Summarize(txs []model.Transaction) model.Summary {
	var s model.Summary
	for _, tx := range txs {
		switch tx.Kind {
		case model.Income:
			s.Income += tx.Amount
		case model.Expense:
			s.Expense += tx.Amount
		}
		s.Count++
	}
	s.Balance = s.Income - s.Expense
	return s
}

// AggregateDays computes per-day totals for transactions in [since, until],
// filling days without activity with zeros. Newest day first.
func AggregateDays(txs []model.Transaction, since, until time.Time) []model.DailyTotals {
	dayMap := make(map[string]*model.DailyTotals)

	for _, tx := range FilterByTime(txs, since, until) {
		if tx.OccurredAt.IsZero() {
			continue
		}
		local := tx.OccurredAt.In(since.Location())
		dayKey := local.Format("2006-01-02")
		dt, ok := dayMap[dayKey]
		if !ok {
			dt = &model.DailyTotals{Date: StartOfDay(local)}
			dayMap[dayKey] = dt
		}
		switch tx.Kind {
		case model.Income:
			dt.Income += tx.Amount
		case model.Expense:
			dt.Expense += tx.Amount
		}
		dt.Count++
	}

	// Fill in every day in the range so the chart shows gaps as zeros
	if !since.IsZero() && !until.IsZero() {
		day := StartOfDay(since)
		end := StartOfDay(until.In(since.Location()))
		for !day.After(end) {
			dayKey := day.Format("2006-01-02")
			if _, ok := dayMap[dayKey]; !ok {
				dayMap[dayKey] = &model.DailyTotals{Date: day}
			}
			day = AddDays(day, 1)
		}
	}

	days := make([]model.DailyTotals, 0, len(dayMap))
	for _, dt := range dayMap {
		days = append(days, *dt)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})
	return days
}

// AggregateCategories totals expenses per category label, largest first.
func AggregateCategories(txs []model.Transaction) []model.CategoryTotal {
	byCat := make(map[string]float64)
	var total float64
	for _, tx := range txs {
		if tx.Kind != model.Expense {
			continue
		}
		byCat[tx.Label()] += tx.Amount
		total += tx.Amount
	}

	out := make([]model.CategoryTotal, 0, len(byCat))
	for cat, amt := range byCat {
		ct := model.CategoryTotal{Category: cat, Amount: amt}
		if total > 0 {
			ct.Share = amt / total * 100
		}
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount == out[j].Amount {
			return out[i].Category < out[j].Category
		}
		return out[i].Amount > out[j].Amount
	})
	return out
}

// MonthTotals sums income and expense booked in the named calendar month of any year.
func MonthTotals(txs []model.Transaction, month string) model.Summary {
	var in []model.Transaction
	for _, tx := range txs {
		if tx.OccurredAt.IsZero() {
			continue
		}
		if strings.EqualFold(model.MonthOf(tx.OccurredAt), month) {
			in = append(in, tx)
		}
	}
	return Summarize(in)
}

// PlanProgress measures a plan's net savings against its target.
func PlanProgress(plan model.Plan, txs []model.Transaction) model.PlanProgress {
	totals := MonthTotals(txs, plan.Month)

	p := model.PlanProgress{
		Income:     totals.Income,
		Expense:    totals.Expense,
		NetBalance: totals.Balance,
	}
	if plan.Target > 0 {
		p.Percentage = int(math.Round(p.NetBalance / plan.Target * 100))
	}
	p.DisplayPercentage = min(max(p.Percentage, 0), 100)
	p.Remaining = plan.Target - p.NetBalance
	p.GoalReached = plan.Target > 0 && p.NetBalance >= plan.Target

	switch {
	case p.Percentage >= 100:
		p.Level = model.ProgressMet
	case p.Percentage >= 50:
		p.Level = model.ProgressMid
	default:
		p.Level = model.ProgressLow
	}
	return p
}

// FilterByKind returns the transactions of one kind.
func FilterByKind(txs []model.Transaction, kind model.Kind) []model.Transaction {
	var result []model.Transaction
	for _, tx := range txs {
		if tx.Kind == kind {
			result = append(result, tx)
		}
	}
	return result
}

// FilterByTime returns transactions whose timestamp falls within [since, until].
// A zero bound is open.
func FilterByTime(txs []model.Transaction, since, until time.Time) []model.Transaction {
	if since.IsZero() && until.IsZero() {
		return txs
	}

	var result []model.Transaction
	for _, tx := range txs {
		if tx.OccurredAt.IsZero() {
			continue
		}
		if !since.IsZero() && tx.OccurredAt.Before(since) {
			continue
		}
		if !until.IsZero() && tx.OccurredAt.After(until) {
			continue
		}
		result = append(result, tx)
	}
	return result
}

// SortNewestFirst orders txs by timestamp descending, in place. Ties keep their order.
func SortNewestFirst(txs []model.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].OccurredAt.After(txs[j].OccurredAt)
	})
}
