package model

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Canonical spending categories.
const (
	CategoryFood      = "Food"
	CategoryTransport = "Transport"
	CategoryShopping  = "Shopping"
	CategoryBills     = "Bills"
	CategoryHealth    = "Health"
	CategoryFun       = "Fun"
	CategoryOther     = "Other"
)

// Categories lists the canonical categories in quick-add order.
var Categories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryBills,
	CategoryHealth,
	CategoryFun,
	CategoryOther,
}

var categoryIcons = map[string]string{
	CategoryFood:      "🍔",
	CategoryTransport: "🚌",
	CategoryShopping:  "🛍",
	CategoryBills:     "🧾",
	CategoryHealth:    "💊",
	CategoryFun:       "🎉",
	CategoryOther:     "💸",
}

// maxCategoryDistance is the largest edit distance SuggestCategory accepts.
const maxCategoryDistance = 2

// CategoryIcon returns the icon for a category label. Unknown labels get the Other icon.
func CategoryIcon(category string) string {
	if icon, ok := categoryIcons[NormalizeCategory(category)]; ok {
		return icon
	}
	return categoryIcons[CategoryOther]
}

// NormalizeCategory trims raw and snaps a case-insensitive match onto the
// canonical spelling ("food" -> "Food"). Any other text is kept as typed.
// Empty input becomes Other.
func NormalizeCategory(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return CategoryOther
	}
	for _, c := range Categories {
		if strings.EqualFold(s, c) {
			return c
		}
	}
	return s
}

// SuggestCategory returns the canonical category raw looks like a typo of
// ("trasnport" -> "Transport"). It reports false for canonical names and for
// text that is not close to any of them. Callers show the suggestion; it is
// never applied silently.
func SuggestCategory(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	// Short words are too easy to confuse ("Fun" vs "Gum").
	if len(s) < 4 {
		return "", false
	}

	best := ""
	bestDist := maxCategoryDistance + 1
	for _, c := range Categories {
		if strings.EqualFold(s, c) {
			return "", false
		}
		d := levenshtein.ComputeDistance(strings.ToLower(s), strings.ToLower(c))
		if len(s) < 6 && d > 1 {
			continue
		}
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}
