package model

import "time"

// Summary holds totals over a set of transactions.
type Summary struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
	Count   int     `json:"count"`
}

// DailyTotals holds the income and expense booked on one calendar day.
type DailyTotals struct {
	Date    time.Time `json:"date"`
	Income  float64   `json:"income"`
	Expense float64   `json:"expense"`
	Count   int       `json:"count"`
}

// Net is income minus expense for the day.
func (d DailyTotals) Net() float64 {
	return d.Income - d.Expense
}

// CategoryTotal is the expense sum for one category label.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Share    float64 `json:"share"` // percent of all expense
}
