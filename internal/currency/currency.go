// Package currency formats amounts for display in the user's chosen currency.
package currency

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Default is used when a code is unknown or empty.
const Default = "USD"

// Position says where the symbol sits relative to the number.
type Position int

const (
	Prefix Position = iota
	Suffix
)

type meta struct {
	symbol   string
	position Position
}

var symbols = map[string]meta{
	"USD": {symbol: "$", position: Prefix},
	"EUR": {symbol: "€", position: Prefix},
	"SOS": {symbol: "Sh", position: Prefix},
}

// order is the display order for pickers.
var order = []string{"USD", "EUR", "SOS"}

// Options controls fraction digits. The zero value renders whole units.
type Options struct {
	MinFractionDigits int
	MaxFractionDigits int
}

var printer = message.NewPrinter(language.English)

// Available returns the supported currency codes in display order.
func Available() []string {
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// Known reports whether code is a supported currency.
func Known(code string) bool {
	_, ok := symbols[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// Normalize upper-cases code and falls back to Default when unknown.
func Normalize(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, ok := symbols[code]; ok {
		return code
	}
	return Default
}

// Symbol returns the display symbol for code.
func Symbol(code string) string {
	return lookup(code).symbol
}

// Format renders amount with grouping and the currency symbol.
// NaN and infinities render as zero.
func Format(amount float64, code string, opts ...Options) string {
	o := Options{}
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.MinFractionDigits < 0 {
		o.MinFractionDigits = 0
	}
	if o.MaxFractionDigits < o.MinFractionDigits {
		o.MaxFractionDigits = o.MinFractionDigits
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}

	// Round half away from zero before formatting; the printer alone would
	// round halves to even. The sign comes from the rounded value so nothing
	// renders as "-$0".
	scale := math.Pow(10, float64(o.MaxFractionDigits))
	rounded := math.Round(amount*scale) / scale
	sign := ""
	if rounded < 0 {
		sign = "-"
	}
	amount = math.Abs(rounded)

	digits := printer.Sprintf("%v", number.Decimal(amount,
		number.MinFractionDigits(o.MinFractionDigits),
		number.MaxFractionDigits(o.MaxFractionDigits),
	))

	m := lookup(code)
	if m.position == Suffix {
		return sign + digits + m.symbol
	}
	return sign + m.symbol + digits
}

// Parse reverses Format for the given currency.
func Parse(display, code string) (float64, error) {
	m := lookup(code)
	s := strings.TrimSpace(display)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if m.position == Suffix {
		s = strings.TrimSuffix(s, m.symbol)
	} else {
		s = strings.TrimPrefix(s, m.symbol)
	}
	s = strings.ReplaceAll(s, ",", "")

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("currency: parsing %q: %w", display, err)
	}
	if neg {
		v = -v
	}
	return v, nil
}

func lookup(code string) meta {
	if m, ok := symbols[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return m
	}
	return symbols[Default]
}
