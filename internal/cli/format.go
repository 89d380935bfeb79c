// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lacag-app/lacag/internal/currency"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
)

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-100 value as a percentage string.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.0f%%", pct)
}

// FormatSigned renders a transaction amount with a direction sign:
// "+$1,200" for income and "-$12" for expenses.
func FormatSigned(tx model.Transaction, code string) string {
	sign := "-"
	if tx.Kind == model.Income {
		sign = "+"
	}
	return sign + currency.Format(tx.Amount, code, currency.Options{MaxFractionDigits: 2})
}

// FormatMoney renders amount with up to two fraction digits.
func FormatMoney(amount float64, code string) string {
	return currency.Format(amount, code, currency.Options{MaxFractionDigits: 2})
}

// FormatDay labels a calendar day relative to now: "Today", "Yesterday",
// otherwise "Mon Jan 2".
func FormatDay(day, now time.Time) string {
	switch {
	case pipeline.SameDay(day, now):
		return "Today"
	case pipeline.SameDay(day, pipeline.AddDays(now, -1)):
		return "Yesterday"
	default:
		return day.Format("Mon Jan 2")
	}
}

// FormatTime renders a transaction timestamp in local time.
func FormatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// FormatDayOfWeek returns a 3-letter day abbreviation from a weekday number.
func FormatDayOfWeek(weekday int) string {
	days := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	if weekday >= 0 && weekday < 7 {
		return days[weekday]
	}
	return "???"
}

// ShortID trims long identifiers for table display.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
