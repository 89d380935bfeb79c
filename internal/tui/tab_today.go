package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/cli"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
	"github.com/lacag-app/lacag/internal/tui/components"
	"github.com/lacag-app/lacag/internal/tui/theme"
)

// todayLimit is the limit the Today tab measures against: the running
// challenge's daily limit, else the backend's active daily limit.
func (a App) todayLimit() (float64, string) {
	board := a.tr.Challenge()
	if board.Active != challenge.None {
		if limit := a.tr.ChallengeLimit(board.Active); limit > 0 {
			return limit, board.Active.String() + " challenge"
		}
	}
	if dl := a.tr.DailyLimit(); dl != nil && *dl > 0 {
		return *dl, "from plan"
	}
	return 0, ""
}

func (a App) renderTodayTab(cw int) string {
	t := theme.Active
	now := a.now()
	code := a.tr.Currency()

	today := pipeline.FilterByKind(
		pipeline.FilterByTime(a.tr.Transactions(), pipeline.StartOfDay(now), pipeline.EndOfDay(now)),
		model.Expense)
	pipeline.SortNewestFirst(today)
	spent := a.tr.TotalSpentToday(now)
	limit, source := a.todayLimit()

	limitVal, remainingVal := "not set", "n/a"
	remainingColor := t.TextMuted
	if limit > 0 {
		limitVal = a.money(limit)
		remaining := limit - spent
		remainingVal = a.money(remaining)
		remainingColor = t.Under
		if remaining < 0 {
			remainingColor = t.Over
		}
	}

	var b strings.Builder
	b.WriteString(components.MetricRow([]components.Metric{
		{Label: "Spent today", Value: a.money(spent), Color: t.UsageColor(spent, limit)},
		{Label: "Daily limit", Value: limitVal, Note: source},
		{Label: "Remaining", Value: remainingVal, Color: remainingColor},
		{Label: "Expenses", Value: strconv.Itoa(len(today))},
	}, cw))
	b.WriteString("\n")

	barW := max(components.CardInnerWidth(cw)-16, 10)
	b.WriteString(components.ContentCard("", components.LimitBar("Today", spent, limit, 8, barW), cw, false))
	b.WriteString("\n")

	var list strings.Builder
	if len(today) == 0 {
		list.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Render("Nothing spent today. Press a to add an expense."))
	}
	inner := components.CardInnerWidth(cw)
	for i, tx := range today {
		if i > 0 {
			list.WriteString("\n")
		}
		list.WriteString(transactionLine(tx, code, inner, false))
	}

	cats := pipeline.AggregateCategories(today)
	if len(cats) == 0 || cw < 100 {
		b.WriteString(components.ContentCard("Today's expenses", list.String(), cw, false))
		return b.String()
	}

	widths := components.LayoutRow(cw, 2)
	var catBody strings.Builder
	for i, c := range cats {
		if i > 0 {
			catBody.WriteString("\n")
		}
		name := lipgloss.NewStyle().Foreground(t.TextPrimary).Render(truncStr(c.Category, 12))
		catBody.WriteString(lipgloss.NewStyle().Width(13).Render(name))
		catBody.WriteString(cli.RenderHorizontalBar(c.Share, 100, max(components.CardInnerWidth(widths[1])-24, 5)))
		catBody.WriteString(" ")
		catBody.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render(cli.FormatMoney(c.Amount, code)))
	}
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Today's expenses", list.String(), widths[0], false),
		components.ContentCard("By category", catBody.String(), widths[1], false),
	}))
	return b.String()
}

// transactionLine renders one transaction as time, label and signed amount.
func transactionLine(tx model.Transaction, code string, width int, selected bool) string {
	t := theme.Active
	amount := cli.FormatSigned(tx, code)
	amountColor := t.Expense
	if tx.Kind == model.Income {
		amountColor = t.Income
	}

	when := lipgloss.NewStyle().Foreground(t.TextDim).Render(cli.FormatTime(tx.OccurredAt))
	label := model.CategoryIcon(tx.Category) + " " + tx.Label()
	if tx.Description != "" && tx.Category != "" {
		label += " · " + tx.Description
	}
	amt := lipgloss.NewStyle().Foreground(amountColor).Bold(true).Render(amount)

	labelW := max(width-lipgloss.Width(when)-lipgloss.Width(amt)-3, 4)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Width(labelW)
	line := when + " " + labelStyle.Render(truncStr(label, labelW)) + " " + amt
	if selected {
		return lipgloss.NewStyle().Background(t.SurfaceHover).Render("▸" + line)
	}
	return " " + line
}
