// Package model defines the domain records shared by the tracker, the remote adapter and the views.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the direction of a transaction.
type Kind string

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// ParseKind accepts any casing of "income" or "expense".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense", "":
		return Expense, nil
	default:
		return "", fmt.Errorf("%w: unknown transaction kind %q", ErrValidation, s)
	}
}

// Label is the capitalised form used in tables.
func (k Kind) Label() string {
	if k == Income {
		return "Income"
	}
	return "Expense"
}

// Transaction is a single financial event.
// UserID is empty for guest-owned records.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Amount      float64   `json:"amount"`
	Kind        Kind      `json:"kind"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// IsGuest reports whether the record has no remote owner.
func (t Transaction) IsGuest() bool {
	return t.UserID == ""
}

// Label is the category if set, otherwise the description.
func (t Transaction) Label() string {
	if t.Category != "" {
		return t.Category
	}
	if t.Description != "" {
		return t.Description
	}
	return CategoryOther
}

// TransactionInput is the user-supplied part of a transaction.
type TransactionInput struct {
	Amount      float64   `validate:"gt=0"`
	Kind        Kind      `validate:"oneof=income expense"`
	Category    string    `validate:"max=64"`
	Description string    `validate:"max=280"`
	OccurredAt  time.Time // zero means now
}

// TransactionPatch carries optional edits. Nil fields are left unchanged.
type TransactionPatch struct {
	Amount      *float64
	Kind        *Kind
	Category    *string
	Description *string
	OccurredAt  *time.Time
}

// Apply returns a copy of t with the patch applied.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Kind != nil {
		t.Kind = *p.Kind
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.OccurredAt != nil {
		t.OccurredAt = *p.OccurredAt
	}
	return t
}

// Empty reports whether the patch changes nothing.
func (p TransactionPatch) Empty() bool {
	return p.Amount == nil && p.Kind == nil && p.Category == nil &&
		p.Description == nil && p.OccurredAt == nil
}
