package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lacag-app/lacag/internal/tui/theme"
)

// StatusInfo is what the bottom bar reports.
type StatusInfo struct {
	Mode       string // "guest" or the signed-in email
	Currency   string
	Refreshing bool
	Err        string
	Hint       string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	left := " [?]help  [a]dd  [r]efresh  [q]uit"
	if info.Hint != "" {
		left = " " + info.Hint
	}

	var right string
	switch {
	case info.Err != "":
		right = lipgloss.NewStyle().Foreground(t.Over).Render("⚠ "+info.Err) + " "
	case info.Refreshing:
		right = lipgloss.NewStyle().Foreground(t.Accent).Render("↻ syncing") + " "
	}
	right += lipgloss.NewStyle().Foreground(t.TextMuted).Render(info.Mode + " · " + info.Currency + " ")

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	bar := lipgloss.NewStyle().Foreground(t.TextDim).Render(left) +
		lipgloss.NewStyle().Width(gap).Render("") + right

	return lipgloss.NewStyle().Width(width).MaxWidth(width).Render(bar)
}
