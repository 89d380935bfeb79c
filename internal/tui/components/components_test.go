package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRowSumsToWidth(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7} {
		widths := LayoutRow(100, n)
		require.Len(t, widths, n)
		sum := 0
		for _, w := range widths {
			sum += w
		}
		assert.Equal(t, 100, sum)
	}
	assert.Nil(t, LayoutRow(100, 0))
}

func TestCardRowEqualizesHeight(t *testing.T) {
	theme.SetActive("flexoki-dark")

	short := ContentCard("Short", "Content", 22, false)
	tall := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4", 22, true)
	require.Less(t, lipgloss.Height(short), lipgloss.Height(tall))

	joined := CardRow([]string{tall, short})
	lines := strings.Split(joined, "\n")
	assert.Len(t, lines, lipgloss.Height(tall))

	first := lipgloss.Width(lines[0])
	for i, line := range lines {
		assert.Equal(t, first, lipgloss.Width(line), "line %d width", i)
	}
}

func TestMetricRowWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")
	row := MetricRow([]Metric{
		{Label: "Spent today", Value: "$12.50"},
		{Label: "Limit", Value: "$20", Note: "from plan"},
	}, 60)
	for _, line := range strings.Split(row, "\n") {
		assert.Equal(t, 60, lipgloss.Width(line))
	}
}

func TestTabIdxByKey(t *testing.T) {
	assert.Equal(t, 0, TabIdxByKey('t'))
	assert.Equal(t, 1, TabIdxByKey('c'))
	assert.Equal(t, 3, TabIdxByKey('p'))
	assert.Equal(t, -1, TabIdxByKey('z'))
}

func TestRenderTabBarFillsWidth(t *testing.T) {
	bar := RenderTabBar(0, "guest", 80)
	assert.Equal(t, 80, lipgloss.Width(bar))
	assert.Contains(t, bar, "guest")
}

func TestStatusBarShowsError(t *testing.T) {
	bar := RenderStatusBar(80, StatusInfo{Mode: "guest", Currency: "USD", Err: "offline"})
	assert.Contains(t, bar, "offline")
	assert.Equal(t, 80, lipgloss.Width(bar))
}

func TestLimitBarWithoutLimit(t *testing.T) {
	assert.Contains(t, LimitBar("Today", 5, 0, 8, 20), "no limit set")
	assert.Contains(t, LimitBar("Today", 30, 20, 8, 20), "150%")
}

func TestPlanBarShowsUnclampedPercentage(t *testing.T) {
	out := PlanBar(model.PlanProgress{Percentage: 130, DisplayPercentage: 100, Level: model.ProgressMet}, 10)
	assert.Contains(t, out, "130%")
}

func TestSpendingChartMarksLimit(t *testing.T) {
	out := SpendingChart([]float64{5, 25, 10}, []string{"Mo", "Tu", "We"}, 20, 40, 6)
	assert.Contains(t, out, "╌")
	assert.Contains(t, out, "Tu")
	// one row per height unit, the axis, and the labels
	assert.Len(t, strings.Split(out, "\n"), 8)
}

func TestSpendingChartFallsBackToSparkline(t *testing.T) {
	out := SpendingChart([]float64{1, 2, 3}, nil, 0, 10, 2)
	assert.NotContains(t, out, "│")
}

func TestChartTickStep(t *testing.T) {
	assert.InDelta(t, 1.0, chartTickStep(0), 0)
	assert.InDelta(t, 5.0, chartTickStep(25), 0)
	assert.InDelta(t, 20.0, chartTickStep(100), 0)
}
