package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/cli"
	"github.com/lacag-app/lacag/internal/pipeline"
	"github.com/lacag-app/lacag/internal/tui/components"
	"github.com/lacag-app/lacag/internal/tui/theme"
)

func (a App) handleChallengeKey(key string) (tea.Model, tea.Cmd, bool) {
	board := a.tr.Challenge()
	st := board.State(a.variant)

	switch key {
	case "1":
		a.variant = challenge.SevenDay
		return a, nil, true
	case "2":
		a.variant = challenge.ThirtyDay
		return a, nil, true

	case "s", "enter":
		switch st.Step {
		case challenge.StepActive:
			a.notice = a.variant.String() + " challenge is already running"
			return a, nil, true
		case challenge.StepStart:
			if err := a.tr.BeginChallenge(a.variant); err != nil {
				if errors.Is(err, challenge.ErrOtherActive) {
					a.errMsg = "stop the " + board.Active.String() + " challenge first"
				} else {
					a.errMsg = err.Error()
				}
				return a, nil, true
			}
		case challenge.StepInput:
		}
		a.vals.reset()
		a.vals.Variant = a.variant
		m, cmd := a.openForm(formChallenge, newChallengeForm(a.vals, a.tr.Currency()))
		return m, cmd, true

	case "x":
		if st.Step != challenge.StepActive {
			return a, nil, true
		}
		a.vals.reset()
		a.vals.Variant = a.variant
		m, cmd := a.openForm(formStop,
			newConfirmForm(a.vals, fmt.Sprintf("Stop the %s challenge? Progress is discarded.", a.variant)))
		return m, cmd, true
	}
	return a, nil, false
}

func (a App) renderChallengeTab(cw int) string {
	t := theme.Active
	board := a.tr.Challenge()

	pill := func(v challenge.Variant, key string) string {
		label := fmt.Sprintf(" %s %s ", key, v.String())
		switch {
		case v == a.variant:
			return lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover).Bold(true).Render(label)
		case board.Active == v:
			return lipgloss.NewStyle().Foreground(t.Under).Render(label + "●")
		default:
			return lipgloss.NewStyle().Foreground(t.TextMuted).Render(label)
		}
	}

	var b strings.Builder
	b.WriteString(" " + pill(challenge.SevenDay, "1") + "  " + pill(challenge.ThirtyDay, "2"))
	b.WriteString("\n\n")

	muted := lipgloss.NewStyle().Foreground(t.TextMuted)
	st := board.State(a.variant)
	switch st.Step {
	case challenge.StepStart:
		body := muted.Render(challengeBlurb(a.variant)) + "\n\n"
		if board.Locked(a.variant) {
			body += lipgloss.NewStyle().Foreground(t.Warning).Render(
				"The " + board.Active.String() + " challenge is running. Stop it before starting this one.")
		} else {
			body += lipgloss.NewStyle().Foreground(t.Accent).Render("Press s to start.")
		}
		b.WriteString(components.ContentCard(a.variant.String()+" challenge", body, cw, true))

	case challenge.StepInput:
		b.WriteString(components.ContentCard(a.variant.String()+" challenge",
			muted.Render("Waiting for a limit. Press s to enter it."), cw, true))

	case challenge.StepActive:
		b.WriteString(a.renderActiveChallenge(cw))
	}
	return b.String()
}

func challengeBlurb(v challenge.Variant) string {
	if v == challenge.ThirtyDay {
		return "Set a budget for the next 30 days. It is split into an even daily limit\nand each day is marked green when you stay under it."
	}
	return "Pick a daily limit and try to stay under it for seven days in a row."
}

func (a App) renderActiveChallenge(cw int) string {
	t := theme.Active
	now := a.now()
	p := a.tr.Progress(a.variant, now)
	code := a.tr.Currency()

	remainingColor := t.Under
	remainingLabel := "Left today"
	remaining := p.RemainingToday
	if p.OverToday {
		remainingColor = t.Over
		remainingLabel = "Over today"
		remaining = -remaining
	}

	var b strings.Builder
	b.WriteString(components.MetricRow([]components.Metric{
		{Label: "Day", Value: fmt.Sprintf("%d of %d", p.DayNumber, len(p.Slots))},
		{Label: "Daily limit", Value: a.money(p.Limit)},
		{Label: "Spent today", Value: a.money(p.SpentToday), Color: t.UsageColor(p.SpentToday, p.Limit)},
		{Label: remainingLabel, Value: a.money(remaining), Color: remainingColor},
	}, cw))
	b.WriteString("\n")

	strip := cli.RenderChallengeStrip(p) + "\n\n" +
		lipgloss.NewStyle().Foreground(t.TextMuted).Render(
			fmt.Sprintf("%d of %d completed days under the limit", p.UnderDays(), p.CurrentDayIndex))
	b.WriteString(components.ContentCard("Progress", strip, cw, false))
	b.WriteString("\n")

	values := make([]float64, len(p.Slots))
	labels := make([]string, len(p.Slots))
	for i, s := range p.Slots {
		if s.Status != pipeline.SlotFuture {
			values[i] = s.Total
		}
		if len(p.Slots) <= 7 {
			labels[i] = s.Date.Format("Mon")
		} else {
			labels[i] = s.Date.Format("2")
		}
	}
	chartW := components.CardInnerWidth(cw)
	chart := components.SpendingChart(values, labels, p.Limit, chartW, 8)
	b.WriteString(components.ContentCard("Daily spending ("+code+")", chart, cw, false))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Render(" x stop challenge"))
	return b.String()
}
