package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
	"github.com/lacag-app/lacag/internal/tui/theme"
)

func titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(theme.Active.TextPrimary).Align(lipgloss.Center)
}

func headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(theme.Active.Accent)
}

func valueStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(theme.Active.TextPrimary) }
func mutedStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(theme.Active.TextMuted) }
func dimStyle() lipgloss.Style   { return lipgloss.NewStyle().Foreground(theme.Active.TextDim) }

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Active.Border).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle().Render(title))
}

func rule(widths []int, left, mid, right string) string {
	var b strings.Builder
	b.WriteString(left)
	for i, w := range widths {
		b.WriteString(strings.Repeat("─", w+2))
		if i < len(widths)-1 {
			b.WriteString(mid)
		}
	}
	b.WriteString(right)
	return dimStyle().Render(b.String()) + "\n"
}

// pad aligns s to w visible columns; cells may hold multi-byte symbols.
func pad(s string, w int, right bool) string {
	gap := w - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// RenderTable renders a bordered table with headers and rows. The first
// column is left-aligned, the rest right-aligned. A row holding the single
// cell "---" draws a separator.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}

	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
	} else {
		for i, h := range t.Headers {
			widths[i] = max(widths[i], lipgloss.Width(h))
		}
		for _, row := range t.Rows {
			for i, cell := range row {
				if i < numCols {
					widths[i] = max(widths[i], lipgloss.Width(cell))
				}
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle().Render(t.Title))
		b.WriteString("\n")
	}

	b.WriteString(rule(widths, "╭", "┬", "╮"))

	sep := dimStyle().Render("│")
	if len(t.Headers) > 0 {
		b.WriteString(sep)
		for i, h := range t.Headers {
			b.WriteString(headerStyle().Render(" " + pad(h, widths[i], false) + " "))
			b.WriteString(sep)
		}
		b.WriteString("\n")
		b.WriteString(rule(widths, "├", "┼", "┤"))
	}

	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			b.WriteString(rule(widths, "├", "┼", "┤"))
			continue
		}
		b.WriteString(sep)
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(valueStyle().Render(" " + pad(cell, widths[i], i > 0) + " "))
			b.WriteString(sep)
		}
		b.WriteString("\n")
	}

	b.WriteString(rule(widths, "╰", "┴", "╯"))
	return b.String()
}

// RenderTransactions lists transactions newest first.
func RenderTransactions(title string, txs []model.Transaction, code string) string {
	if len(txs) == 0 {
		return "  " + headerStyle().Render(title) + "\n  " + mutedStyle().Render("No transactions yet.") + "\n"
	}
	rows := make([][]string, 0, len(txs)+2)
	for _, tx := range txs {
		rows = append(rows, []string{
			ShortID(tx.ID),
			FormatTime(tx.OccurredAt),
			tx.Kind.Label(),
			tx.Label(),
			FormatSigned(tx, code),
		})
	}
	sum := pipeline.Summarize(txs)
	rows = append(rows, []string{"---"},
		[]string{"Net", "", "", fmt.Sprintf("%d items", sum.Count), FormatMoney(sum.Balance, code)})

	return RenderTable(Table{
		Title:   title,
		Headers: []string{"ID", "When", "Type", "Category", "Amount"},
		Rows:    rows,
	})
}

// RenderDailyTotals renders one row per day with an expense sparkline.
func RenderDailyTotals(days []model.DailyTotals, code string, now time.Time) string {
	rows := make([][]string, 0, len(days))
	spark := make([]float64, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{
			FormatDay(d.Date, now),
			FormatMoney(d.Income, code),
			FormatMoney(d.Expense, code),
			FormatMoney(d.Net(), code),
			FormatNumber(int64(d.Count)),
		})
	}
	// Sparkline reads left to right, oldest first.
	for i := len(days) - 1; i >= 0; i-- {
		spark = append(spark, days[i].Expense)
	}

	out := RenderTable(Table{
		Title:   "Daily totals",
		Headers: []string{"Day", "Income", "Spent", "Net", "Items"},
		Rows:    rows,
	})
	if len(spark) > 1 {
		out += "  " + mutedStyle().Render("Spending ") + RenderSparkline(spark) + "\n"
	}
	return out
}

// RenderCategories renders expense totals per category with share bars.
func RenderCategories(cats []model.CategoryTotal, code string) string {
	if len(cats) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, []string{
			c.Category,
			FormatMoney(c.Amount, code),
			FormatPercent(c.Share),
			RenderHorizontalBar(c.Share, 100, 20),
		})
	}
	return RenderTable(Table{
		Title:   "Spending by category",
		Headers: []string{"Category", "Spent", "Share", ""},
		Rows:    rows,
	})
}

// RenderChallengeStrip renders one colored cell per challenge day:
// green under, red over, accent today, dim future.
func RenderChallengeStrip(p pipeline.ChallengeProgress) string {
	t := theme.Active
	cells := make([]string, 0, len(p.Slots))
	for _, s := range p.Slots {
		var style lipgloss.Style
		glyph := "■"
		switch s.Status {
		case pipeline.SlotUnder:
			style = lipgloss.NewStyle().Foreground(t.Under)
		case pipeline.SlotOver:
			style = lipgloss.NewStyle().Foreground(t.Over)
		case pipeline.SlotToday:
			style = lipgloss.NewStyle().Foreground(t.UsageColor(p.SpentToday, p.Limit)).Bold(true)
			glyph = "◆"
		default:
			style = lipgloss.NewStyle().Foreground(t.TextDim)
			glyph = "□"
		}
		cells = append(cells, style.Render(glyph))
	}
	return strings.Join(cells, " ")
}

// RenderChallenge renders the challenge day table and strip.
func RenderChallenge(title string, p pipeline.ChallengeProgress, code string, now time.Time) string {
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(headerStyle().Render(title))
	b.WriteString(mutedStyle().Render(fmt.Sprintf("  day %d of %d", p.DayNumber, len(p.Slots))))
	b.WriteString("\n\n  ")
	b.WriteString(RenderChallengeStrip(p))
	b.WriteString("\n\n")

	rows := make([][]string, 0, len(p.Slots))
	for _, s := range p.Slots {
		total := FormatMoney(s.Total, code)
		if s.Status == pipeline.SlotFuture {
			total = ""
		}
		rows = append(rows, []string{FormatDay(s.Date, now), total, string(s.Status)})
	}
	b.WriteString(RenderTable(Table{Headers: []string{"Day", "Spent", "Status"}, Rows: rows}))

	b.WriteString(fmt.Sprintf("  Daily limit %s · spent today %s · ",
		FormatMoney(p.Limit, code), FormatMoney(p.SpentToday, code)))
	if p.OverToday {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Active.Over).Render(
			"over by " + FormatMoney(-p.RemainingToday, code)))
	} else {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Active.Under).Render(
			FormatMoney(p.RemainingToday, code) + " left"))
	}
	b.WriteString(fmt.Sprintf("\n  %d of %d completed days under the limit\n", p.UnderDays(), p.CurrentDayIndex))
	return b.String()
}

// PlanRow pairs a plan with its measured progress.
type PlanRow struct {
	Plan     model.Plan
	Progress model.PlanProgress
}

// RenderPlans lists savings plans with their progress.
func RenderPlans(plans []PlanRow, code string) string {
	if len(plans) == 0 {
		return "  " + headerStyle().Render("Plans") + "\n  " + mutedStyle().Render("No plans yet.") + "\n"
	}
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []string{
			ShortID(p.Plan.ID),
			p.Plan.Month,
			FormatMoney(p.Plan.Target, code),
			FormatMoney(p.Progress.NetBalance, code),
			FormatPercent(float64(p.Progress.DisplayPercentage)),
			RenderHorizontalBar(float64(p.Progress.DisplayPercentage), 100, 12),
		})
	}
	return RenderTable(Table{
		Title:   "Plans",
		Headers: []string{"ID", "Month", "Target", "Saved", "Done", ""},
		Rows:    rows,
	})
}

// RenderSummary renders income, spending and balance for a period.
func RenderSummary(title string, s model.Summary, code string) string {
	return RenderTable(Table{
		Title: title,
		Rows: [][]string{
			{"Income", FormatMoney(s.Income, code)},
			{"Spent", FormatMoney(s.Expense, code)},
			{"---"},
			{"Balance", FormatMoney(s.Balance, code)},
			{"Transactions", FormatNumber(int64(s.Count))},
		},
	})
}

// RenderLimitBar renders spent-versus-limit as a colored bar.
func RenderLimitBar(spent, limit float64, width int) string {
	if limit <= 0 {
		return ""
	}
	pct := spent / limit
	filled := min(int(pct*float64(width)), width)
	filled = max(filled, 0)
	style := lipgloss.NewStyle().Foreground(theme.Active.UsageColor(spent, limit))
	return style.Render(strings.Repeat("█", filled)) +
		dimStyle().Render(strings.Repeat("░", width-filled)) +
		" " + FormatPercent(pct*100)
}

// RenderSparkline generates a unicode block sparkline from a series of values.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	top := values[0]
	for _, v := range values[1:] {
		top = max(top, v)
	}
	if top == 0 {
		top = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / top * float64(len(blocks)-1))
		idx = min(max(idx, 0), len(blocks)-1)
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

// RenderHorizontalBar renders value/maxValue as a bar of up to maxWidth cells.
func RenderHorizontalBar(value, maxValue float64, maxWidth int) string {
	if maxValue <= 0 {
		return ""
	}
	barLen := min(max(int(value/maxValue*float64(maxWidth)), 0), maxWidth)
	return strings.Repeat("█", barLen)
}
