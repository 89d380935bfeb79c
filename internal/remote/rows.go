package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lacag-app/lacag/internal/model"
)

// flexID accepts both string and numeric primary keys.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// flexFloat accepts numbers and numeric strings, which is how Postgres
// numeric columns come back.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("amount %q: %w", s, err)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// transactionRow is the union of every column name the transactions table
// has been seen with.
type transactionRow struct {
	ID              flexID    `json:"id"`
	UserID          string    `json:"user_id"`
	Amount          flexFloat `json:"amount"`
	Category        *string   `json:"category"`
	Description     *string   `json:"description"`
	Type            *string   `json:"type"`
	TransactionType *string   `json:"transaction_type"`
	CreatedAt       *string   `json:"created_at"`
	TransactionDate *string   `json:"transaction_date"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// toModel maps a row onto the canonical record. Timestamps are returned in loc.
func (r transactionRow) toModel(loc *time.Location) (model.Transaction, error) {
	tx := model.Transaction{
		ID:          string(r.ID),
		UserID:      r.UserID,
		Amount:      float64(r.Amount),
		Category:    str(r.Category),
		Description: str(r.Description),
	}
	if tx.Amount < 0 {
		tx.Amount = -tx.Amount
	}

	kindRaw := str(r.Type)
	if kindRaw == "" {
		kindRaw = str(r.TransactionType)
	}
	kind, err := model.ParseKind(kindRaw)
	if err != nil {
		return model.Transaction{}, err
	}
	tx.Kind = kind

	ts := str(r.CreatedAt)
	if ts == "" {
		ts = str(r.TransactionDate)
	}
	if ts != "" {
		at, err := parseTimestamp(ts, loc)
		if err != nil {
			return model.Transaction{}, err
		}
		tx.OccurredAt = at
	}
	return tx, nil
}

// transactionWrite is the canonical column set used for inserts and updates.
type transactionWrite struct {
	UserID      string  `json:"user_id,omitempty"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Type        string  `json:"type"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

func writeFromModel(tx model.Transaction) transactionWrite {
	w := transactionWrite{
		UserID:      tx.UserID,
		Amount:      tx.Amount,
		Category:    tx.Category,
		Description: tx.Description,
		Type:        string(tx.Kind),
	}
	if !tx.OccurredAt.IsZero() {
		w.CreatedAt = tx.OccurredAt.UTC().Format(time.RFC3339Nano)
	}
	return w
}

type planRow struct {
	ID           flexID     `json:"id"`
	UserID       string     `json:"user_id"`
	Month        string     `json:"month"`
	BudgetTarget *flexFloat `json:"budget_target"`
	DailyLimit   *flexFloat `json:"daily_limit"`
	Notes        *string    `json:"notes"`
	CreatedAt    *string    `json:"created_at"`
	StartDate    *string    `json:"start_date"`
	EndDate      *string    `json:"end_date"`
}

func (r planRow) toModel(loc *time.Location) model.Plan {
	p := model.Plan{
		ID:     string(r.ID),
		UserID: r.UserID,
		Month:  strings.TrimSpace(r.Month),
		Notes:  str(r.Notes),
	}
	if m, err := model.ParseMonth(p.Month); err == nil {
		p.Month = m
	}
	switch {
	case r.BudgetTarget != nil:
		p.Target = float64(*r.BudgetTarget)
	case r.DailyLimit != nil:
		p.Target = float64(*r.DailyLimit)
	}
	if r.DailyLimit != nil {
		v := float64(*r.DailyLimit)
		p.DailyLimit = &v
	}
	if at, err := parseTimestamp(str(r.CreatedAt), loc); err == nil {
		p.CreatedAt = at
	}
	if at, err := parseTimestamp(str(r.StartDate), loc); err == nil {
		p.StartDate = &at
	}
	if at, err := parseTimestamp(str(r.EndDate), loc); err == nil {
		p.EndDate = &at
	}
	return p
}

type planWrite struct {
	UserID       string  `json:"user_id,omitempty"`
	Month        string  `json:"month"`
	BudgetTarget float64 `json:"budget_target"`
	Notes        string  `json:"notes"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
}

// parseTimestamp reads timestamptz, timestamp and date columns. Date-only and
// zone-less values are taken as wall-clock time in loc.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if len(s) == len("2006-01-02") {
		return time.ParseInLocation("2006-01-02", s, loc)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
