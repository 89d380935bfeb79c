package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestFormatNumber(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatNumber(in))
	}
}

func TestFormatSigned(t *testing.T) {
	assert.Equal(t, "-$12.5", FormatSigned(model.Transaction{Amount: 12.5, Kind: model.Expense}, "USD"))
	assert.Equal(t, "+$1,200", FormatSigned(model.Transaction{Amount: 1200, Kind: model.Income}, "USD"))
}

func TestFormatDay(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "Today", FormatDay(now.Add(-time.Hour), now))
	assert.Equal(t, "Yesterday", FormatDay(now.AddDate(0, 0, -1), now))
	assert.Equal(t, "Sat Jun 7", FormatDay(now.AddDate(0, 0, -3), now))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "42", ShortID("42"))
	assert.Equal(t, "0f8fad5b", ShortID("0f8fad5b-d9cb-469f-a165-70867728950e"))
}

func TestRenderTableAlignsWideSymbols(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Item", "Amount"},
		Rows:    [][]string{{"Coffee", "€3"}, {"Rent", "€1,200"}},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	width := lipgloss.Width(lines[0])
	for i, l := range lines {
		assert.Equal(t, width, lipgloss.Width(l), "line %d: %q", i, l)
	}
}

func TestRenderTransactionsEmpty(t *testing.T) {
	out := RenderTransactions("Recent", nil, "USD")
	assert.Contains(t, out, "No transactions yet.")
}

func TestRenderChallengeStrip(t *testing.T) {
	p := pipeline.ChallengeProgress{
		Limit: 10,
		Slots: []pipeline.DaySlot{
			{Status: pipeline.SlotUnder},
			{Status: pipeline.SlotOver},
			{Status: pipeline.SlotToday},
			{Status: pipeline.SlotFuture},
		},
	}
	assert.Equal(t, "■ ■ ◆ □", RenderChallengeStrip(p))
}

func TestRenderSparkline(t *testing.T) {
	assert.Equal(t, "", RenderSparkline(nil))
	assert.Equal(t, "▁█", RenderSparkline([]float64{0, 5}))
	assert.Equal(t, "▁▁", RenderSparkline([]float64{0, 0}))
}

func TestRenderHorizontalBar(t *testing.T) {
	assert.Equal(t, "", RenderHorizontalBar(5, 0, 10))
	assert.Equal(t, "█████", RenderHorizontalBar(50, 100, 10))
	assert.Equal(t, "██████████", RenderHorizontalBar(150, 100, 10))
}
