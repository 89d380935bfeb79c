package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lacag-app/lacag/internal/cli"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
	"github.com/lacag-app/lacag/internal/tui/components"
	"github.com/lacag-app/lacag/internal/tui/theme"
)

const historyChartDays = 14

type historyState struct {
	cursor int
	offset int
}

func (h *historyState) move(delta, n int) {
	h.cursor += delta
	h.clamp(n)
}

func (h *historyState) clamp(n int) {
	if h.cursor >= n {
		h.cursor = n - 1
	}
	if h.cursor < 0 {
		h.cursor = 0
	}
}

// scrollTo keeps cursor inside a window of visible rows.
func (h *historyState) scrollTo(visible int) {
	if h.cursor < h.offset {
		h.offset = h.cursor
	}
	if h.cursor >= h.offset+visible {
		h.offset = h.cursor - visible + 1
	}
	h.offset = max(h.offset, 0)
}

// historyRows is the active transaction list, newest first.
func (a App) historyRows() []model.Transaction {
	txs := a.tr.Transactions()
	pipeline.SortNewestFirst(txs)
	return txs
}

func (a App) handleHistoryKey(key string) (tea.Model, tea.Cmd, bool) {
	rows := a.historyRows()
	switch key {
	case "j", "down":
		a.hist.move(1, len(rows))
	case "k", "up":
		a.hist.move(-1, len(rows))
	case "g":
		a.hist.cursor = 0
	case "G":
		a.hist.cursor = max(len(rows)-1, 0)
	case "d":
		if len(rows) == 0 {
			return a, nil, true
		}
		tx := rows[min(a.hist.cursor, len(rows)-1)]
		a.vals.reset()
		a.vals.TargetID = tx.ID
		question := fmt.Sprintf("Delete %s %s from %s?",
			tx.Label(), cli.FormatMoney(tx.Amount, a.tr.Currency()), cli.FormatDay(tx.OccurredAt, a.now()))
		m, cmd := a.openForm(formDelete, newConfirmForm(a.vals, question))
		return m, cmd, true
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) renderHistoryTab(cw, h int) string {
	t := theme.Active
	now := a.now()
	code := a.tr.Currency()
	rows := a.historyRows()

	since := pipeline.AddDays(pipeline.StartOfDay(now), -(historyChartDays - 1))
	days := pipeline.AggregateDays(rows, since, now)
	values := make([]float64, len(days))
	labels := make([]string, len(days))
	// AggregateDays is newest first; the chart reads oldest left.
	for i, d := range days {
		j := len(days) - 1 - i
		values[j] = d.Expense
		labels[j] = d.Date.Format("2")
	}
	limit, _ := a.todayLimit()
	chart := components.SpendingChart(values, labels, limit, components.CardInnerWidth(cw), 6)

	var b strings.Builder
	b.WriteString(components.ContentCard(fmt.Sprintf("Last %d days", historyChartDays), chart, cw, false))
	b.WriteString("\n")

	visible := max(h-lipgloss.Height(b.String())-4, 3)
	hist := a.hist
	hist.clamp(len(rows))
	hist.scrollTo(visible)

	inner := components.CardInnerWidth(cw)
	var list strings.Builder
	if len(rows) == 0 {
		list.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Render("No transactions yet."))
	}
	end := min(hist.offset+visible, len(rows))
	for i := hist.offset; i < end; i++ {
		if i > hist.offset {
			list.WriteString("\n")
		}
		list.WriteString(transactionLine(rows[i], code, inner-1, i == hist.cursor))
	}

	sum := pipeline.Summarize(rows)
	title := fmt.Sprintf("Transactions (%d) · net %s", sum.Count, cli.FormatMoney(sum.Balance, code))
	b.WriteString(components.ContentCard(title, list.String(), cw, true))
	return b.String()
}
