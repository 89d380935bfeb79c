package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/tui/theme"
)

// LimitBar renders a labeled spent-versus-limit bar. The bar fills up to the
// limit and turns red beyond it.
func LimitBar(label string, spent, limit float64, labelW, barWidth int) string {
	t := theme.Active
	if limit <= 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render(fmt.Sprintf("%-*s", labelW, label)) +
			lipgloss.NewStyle().Foreground(t.TextDim).Render(" no limit set")
	}

	pct := min(max(spent/limit, 0), 1)
	color := t.UsageColor(spent, limit)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	return lipgloss.NewStyle().Foreground(t.TextMuted).Render(fmt.Sprintf("%-*s", labelW, label)) +
		" " + bar.ViewAs(pct) + " " +
		lipgloss.NewStyle().Foreground(color).Bold(true).Render(fmt.Sprintf("%3.0f%%", spent/limit*100))
}

// PlanBar renders a savings plan's progress toward its target.
func PlanBar(p model.PlanProgress, barWidth int) string {
	t := theme.Active
	var color lipgloss.Color
	switch p.Level {
	case model.ProgressMet:
		color = t.Under
	case model.ProgressMid:
		color = t.Warning
	default:
		color = t.Over
	}

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	return bar.ViewAs(float64(p.DisplayPercentage)/100) + " " +
		lipgloss.NewStyle().Foreground(color).Bold(true).Render(fmt.Sprintf("%3d%%", p.Percentage))
}
