package model

import (
	"fmt"
	"strings"
	"time"
)

// Months are the plan month labels. Plans carry no year.
var Months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// ParseMonth accepts a full or three-letter month name in any case.
func ParseMonth(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, m := range Months {
		if strings.EqualFold(s, m) || (len(s) == 3 && strings.EqualFold(s, m[:3])) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown month %q", ErrValidation, s)
}

// MonthOf returns the plan month label for t.
func MonthOf(t time.Time) string {
	return Months[t.Month()-1]
}

// Plan is a monthly savings goal.
type Plan struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Month     string    `json:"month"`
	Target    float64   `json:"target"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Optional range fields used by the active daily limit lookup.
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	DailyLimit *float64   `json:"daily_limit,omitempty"`
}

// PlanInput is the form payload for creating or editing a plan.
// An empty ID creates a new plan.
type PlanInput struct {
	ID     string
	Month  string  `validate:"required,oneof=January February March April May June July August September October November December"`
	Target float64 `validate:"gt=0"`
	Notes  string  `validate:"max=500"`
}

// ProgressLevel buckets a plan's progress for colouring.
type ProgressLevel int

const (
	ProgressLow ProgressLevel = iota
	ProgressMid
	ProgressMet
)

// PlanProgress is the derived state of a plan against a month of transactions.
type PlanProgress struct {
	Income            float64
	Expense           float64
	NetBalance        float64
	Percentage        int // unclamped
	DisplayPercentage int // clamped to [0,100]
	Remaining         float64
	GoalReached       bool
	Level             ProgressLevel
}
