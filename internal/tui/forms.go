package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/config"
	"github.com/lacag-app/lacag/internal/currency"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/tui/theme"
)

type formKind int

const (
	formNone formKind = iota
	formAdd
	formChallenge
	formStop
	formDelete
	formSetup
)

var formTitles = map[formKind]string{
	formAdd:       "Add expense",
	formChallenge: "Start challenge",
	formStop:      "Stop challenge",
	formDelete:    "Delete transaction",
	formSetup:     "Welcome to lacag",
}

// formValues backs every modal form. Only the fields of the open form matter.
type formValues struct {
	Amount   string
	Category string
	Limit    string
	Confirm  bool
	TargetID string
	Variant  challenge.Variant

	Currency   string
	BackendURL string
	AnonKey    string
	Theme      string
}

func (v *formValues) reset() {
	*v = formValues{}
}

func positiveAmount(code string) func(string) error {
	return func(s string) error {
		n, err := currency.Parse(s, code)
		if err != nil {
			return errors.New("enter a number")
		}
		if n <= 0 {
			return errors.New("must be greater than zero")
		}
		return nil
	}
}

func newAddForm(v *formValues, code string) *huh.Form {
	v.Category = model.CategoryOther
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Amount").
				Placeholder(currency.Symbol(code)+"0.00").
				Value(&v.Amount).
				Validate(positiveAmount(code)),
			huh.NewSelect[string]().
				Title("Category").
				Options(huh.NewOptions(model.Categories...)...).
				Value(&v.Category),
		),
	).WithShowHelp(true)
}

func newChallengeForm(v *formValues, code string) *huh.Form {
	title := "Daily spending limit"
	desc := "Stay under this amount each day for a week."
	if v.Variant == challenge.ThirtyDay {
		title = "Budget for the next 30 days"
		desc = "Spread evenly into a daily limit."
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Description(desc).
				Placeholder(currency.Symbol(code)+"0").
				Value(&v.Limit).
				Validate(positiveAmount(code)),
		),
	).WithShowHelp(true)
}

func newConfirmForm(v *formValues, question string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&v.Confirm),
		),
	)
}

func newSetupForm(v *formValues, cfg config.Config) *huh.Form {
	v.Currency = currency.Normalize(cfg.General.Currency)
	v.BackendURL = cfg.Backend.URL
	v.AnonKey = cfg.Backend.AnonKey
	v.Theme = cfg.Appearance.Theme
	if v.Theme == "" {
		v.Theme = theme.FlexokiDark.Name
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to lacag").
				Description("Track daily spending, with or without an account.\n\nLet's set a few things up."),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Currency").
				Options(huh.NewOptions(currency.Available()...)...).
				Value(&v.Currency),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&v.Theme),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Description("Optional. Leave blank to stay in guest mode.").
				Placeholder("https://<project>.supabase.co").
				Value(&v.BackendURL),
			huh.NewInput().
				Title("Anon key").
				Value(&v.AnonKey).
				EchoMode(huh.EchoModePassword),
		),
	).WithShowHelp(true)
}

func (a App) openForm(kind formKind, form *huh.Form) (tea.Model, tea.Cmd) {
	a.form = form
	a.formKind = kind
	if a.width > 0 {
		a.form = a.form.WithWidth(min(a.width-8, 60))
	}
	return a, a.form.Init()
}

func (a *App) closeForm() {
	a.form = nil
	a.formKind = formNone
}

func (a App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		kind := a.formKind
		a.closeForm()
		return a.submitForm(kind)
	case huh.StateAborted:
		kind := a.formKind
		a.closeForm()
		switch kind {
		case formChallenge:
			// The challenge was moved to Input when the form opened.
			if err := a.tr.CancelChallenge(a.vals.Variant); err != nil {
				a.errMsg = err.Error()
			}
		case formSetup:
			a.needSetup = false
		}
		return a, nil
	}
	return a, cmd
}

func (a App) submitForm(kind formKind) (tea.Model, tea.Cmd) {
	v := *a.vals
	code := a.tr.Currency()

	switch kind {
	case formAdd:
		amount, err := currency.Parse(v.Amount, code)
		if err != nil {
			a.errMsg = err.Error()
			return a, nil
		}
		notice := "added " + a.money(amount)
		return a, actionCmd(notice, func(ctx context.Context) error {
			_, err := a.tr.AddExpense(ctx, amount, v.Category)
			return err
		})

	case formChallenge:
		limit, err := currency.Parse(v.Limit, code)
		if err != nil {
			a.errMsg = err.Error()
			return a, nil
		}
		return a, actionCmd(v.Variant.String()+" challenge started", func(context.Context) error {
			return a.tr.ConfirmChallenge(v.Variant, limit)
		})

	case formStop:
		if !v.Confirm {
			return a, nil
		}
		return a, actionCmd(v.Variant.String()+" challenge stopped", func(context.Context) error {
			return a.tr.StopChallenge(v.Variant, true)
		})

	case formDelete:
		if !v.Confirm {
			return a, nil
		}
		return a, actionCmd("transaction deleted", func(ctx context.Context) error {
			return a.tr.DeleteTransaction(ctx, v.TargetID)
		})

	case formSetup:
		a.needSetup = false
		return a, a.saveSetup(v)
	}
	return a, nil
}

// saveSetup persists the first-run answers. Backend changes apply on the
// next start since the remote client is built at startup.
func (a *App) saveSetup(v formValues) tea.Cmd {
	backendChanged := strings.TrimSpace(v.BackendURL) != a.cfg.Backend.URL

	a.cfg.General.Currency = v.Currency
	a.cfg.Appearance.Theme = v.Theme
	a.cfg.Backend.URL = strings.TrimSpace(v.BackendURL)
	a.cfg.Backend.AnonKey = strings.TrimSpace(v.AnonKey)
	theme.SetActive(v.Theme)

	cfg := a.cfg
	notice := "settings saved to " + config.ConfigPath()
	if backendChanged {
		notice = "settings saved, restart lacag to connect the backend"
	}
	return actionCmd(notice, func(context.Context) error {
		if err := a.tr.SetCurrency(v.Currency); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		return nil
	})
}
