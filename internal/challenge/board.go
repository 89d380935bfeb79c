// Package challenge holds the start/input/active state machine for the
// 7-day and 30-day spending challenges. At most one challenge runs at a time.
package challenge

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lacag-app/lacag/internal/pipeline"
)

var (
	ErrInvalidLimit      = errors.New("limit must be a positive number")
	ErrInvalidTransition = errors.New("invalid challenge transition")
	ErrOtherActive       = errors.New("another challenge is already active")
	ErrNotConfirmed      = errors.New("stopping a challenge must be confirmed")
)

// Variant identifies a challenge type.
type Variant string

const (
	None      Variant = ""
	SevenDay  Variant = "7day"
	ThirtyDay Variant = "30day"
)

// Variants lists the playable challenges in display order.
var Variants = []Variant{SevenDay, ThirtyDay}

// ParseVariant accepts "7", "7day", "seven", "30", "30day" or "thirty".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "7", "7day", "7-day", "seven":
		return SevenDay, nil
	case "30", "30day", "30-day", "thirty":
		return ThirtyDay, nil
	default:
		return None, fmt.Errorf("unknown challenge %q (want 7day or 30day)", s)
	}
}

// Days is the window length of the variant.
func (v Variant) Days() int {
	switch v {
	case SevenDay:
		return 7
	case ThirtyDay:
		return 30
	case None:
		return 0
	}
	return 0
}

func (v Variant) String() string {
	switch v {
	case SevenDay:
		return "7-day"
	case ThirtyDay:
		return "30-day"
	case None:
		return "none"
	}
	return string(v)
}

// Step is the position of one variant in its state machine.
type Step string

const (
	StepStart  Step = "start"
	StepInput  Step = "input"
	StepActive Step = "active"
)

// State is the per-variant machine state. Limit is a daily limit for the
// 7-day challenge and a total budget for the 30-day one.
type State struct {
	Step  Step    `json:"step"`
	Limit float64 `json:"limit"`
}

// Board holds both challenges. The zero value is ready to use.
type Board struct {
	Active Variant `json:"active"`
	Seven  State   `json:"seven"`
	Thirty State   `json:"thirty"`
}

func (b *Board) state(v Variant) (*State, error) {
	switch v {
	case SevenDay:
		return &b.Seven, nil
	case ThirtyDay:
		return &b.Thirty, nil
	case None:
	}
	return nil, fmt.Errorf("%w: unknown variant %q", ErrInvalidTransition, v)
}

// State returns a copy of v's state. Unknown variants read as Start.
func (b *Board) State(v Variant) State {
	st, err := b.state(v)
	if err != nil {
		return State{Step: StepStart}
	}
	out := *st
	if out.Step == "" {
		out.Step = StepStart
	}
	return out
}

// Begin moves v from Start to Input.
func (b *Board) Begin(v Variant) error {
	st, err := b.state(v)
	if err != nil {
		return err
	}
	if b.Active != None && b.Active != v {
		return fmt.Errorf("%w: %s is running", ErrOtherActive, b.Active)
	}
	switch st.Step {
	case StepStart, "":
		st.Step = StepInput
		return nil
	case StepInput:
		return nil
	case StepActive:
		return fmt.Errorf("%w: %s is already active", ErrInvalidTransition, v)
	}
	return fmt.Errorf("%w: corrupt step %q", ErrInvalidTransition, st.Step)
}

// Cancel abandons Input and returns v to Start.
func (b *Board) Cancel(v Variant) error {
	st, err := b.state(v)
	if err != nil {
		return err
	}
	if st.Step != StepInput {
		return fmt.Errorf("%w: %s is not awaiting a limit", ErrInvalidTransition, v)
	}
	st.Step = StepStart
	return nil
}

// Confirm activates v with the given limit. A missing, zero or negative limit
// leaves v in Input.
func (b *Board) Confirm(v Variant, limit float64) error {
	st, err := b.state(v)
	if err != nil {
		return err
	}
	if st.Step != StepInput {
		return fmt.Errorf("%w: %s must be started before it is confirmed", ErrInvalidTransition, v)
	}
	if b.Active != None && b.Active != v {
		return fmt.Errorf("%w: %s is running", ErrOtherActive, b.Active)
	}
	if math.IsNaN(limit) || math.IsInf(limit, 0) || limit <= 0 {
		return ErrInvalidLimit
	}
	st.Step = StepActive
	st.Limit = limit
	b.Active = v
	return nil
}

// Stop ends an active challenge. The caller must pass confirmed=true once the
// user agreed; otherwise nothing changes.
func (b *Board) Stop(v Variant, confirmed bool) error {
	st, err := b.state(v)
	if err != nil {
		return err
	}
	if st.Step != StepActive {
		return fmt.Errorf("%w: %s is not active", ErrInvalidTransition, v)
	}
	if !confirmed {
		return ErrNotConfirmed
	}
	*st = State{Step: StepStart}
	if b.Active == v {
		b.Active = None
	}
	return nil
}

// Locked reports whether v cannot be started because the other one runs.
func (b *Board) Locked(v Variant) bool {
	return b.Active != None && b.Active != v
}

// EffectiveDailyLimit is the per-day limit of v: the entered value for the
// 7-day challenge, the budget spread over 30 days for the 30-day one.
func (b *Board) EffectiveDailyLimit(v Variant) float64 {
	switch v {
	case SevenDay:
		return b.Seven.Limit
	case ThirtyDay:
		return pipeline.ThirtyDayLimit(b.Thirty.Limit)
	case None:
	}
	return 0
}
