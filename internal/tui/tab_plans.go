package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lacag-app/lacag/internal/cli"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/tui/components"
	"github.com/lacag-app/lacag/internal/tui/theme"
)

func (a App) renderPlansTab(cw int) string {
	t := theme.Active
	code := a.tr.Currency()

	if !a.plansLoaded {
		return " " + a.spinner.View() + lipgloss.NewStyle().Foreground(t.TextMuted).Render(" Loading plans")
	}
	if len(a.plans) == 0 {
		return components.ContentCard("Plans", lipgloss.NewStyle().Foreground(t.TextDim).Render(
			"No savings plans yet. Create one with `lacag plan set <month> <target>`."), cw, false)
	}

	current := model.MonthOf(a.now())
	barW := max(components.CardInnerWidth(cw)/3, 10)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)

	cards := make([]string, 0, len(a.plans))
	for _, row := range a.plans {
		p := row.Progress
		var body strings.Builder
		body.WriteString(components.PlanBar(p, barW))
		body.WriteString("\n")
		body.WriteString(muted.Render("saved "))
		body.WriteString(a.money(p.NetBalance))
		body.WriteString(muted.Render(" of "))
		body.WriteString(a.money(row.Plan.Target))
		switch {
		case p.GoalReached:
			body.WriteString(lipgloss.NewStyle().Foreground(t.Under).Render("  goal reached"))
		default:
			body.WriteString(muted.Render("  " + cli.FormatMoney(p.Remaining, code) + " to go"))
		}
		body.WriteString("\n")
		body.WriteString(muted.Render("income " + cli.FormatMoney(p.Income, code) +
			" · spent " + cli.FormatMoney(p.Expense, code)))
		if row.Plan.Notes != "" {
			body.WriteString("\n")
			body.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Render(truncStr(row.Plan.Notes, components.CardInnerWidth(cw))))
		}
		cards = append(cards, components.ContentCard(row.Plan.Month, body.String(), cw, row.Plan.Month == current))
	}
	return strings.Join(cards, "\n")
}
