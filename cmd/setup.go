package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/lacag-app/lacag/internal/config"
	"github.com/lacag-app/lacag/internal/currency"
	"github.com/lacag-app/lacag/internal/tui/theme"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	path := configFile()
	// A broken file is replaced rather than blocking setup.
	cfg, err := config.LoadFile(path)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	code := currency.Normalize(cfg.General.Currency)
	themeName := cfg.Appearance.Theme
	if themeName == "" {
		themeName = theme.FlexokiDark.Name
	}
	windowDays := strconv.Itoa(cfg.General.WindowDays)
	backendURL := cfg.Backend.URL
	anonKey := cfg.Backend.AnonKey

	anonDesc := "Public anon key of the project."
	if anonKey != "" {
		anonDesc = "Current: " + maskKey(anonKey) + ". Leave as is to keep it."
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to lacag").
				Description("Track daily spending, with or without an account."),
			huh.NewSelect[string]().
				Title("Currency").
				Options(huh.NewOptions(currency.Available()...)...).
				Value(&code),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&themeName),
			huh.NewInput().
				Title("Days of synced history").
				Description("How far back to fetch when signed in.").
				Value(&windowDays).
				Validate(func(s string) error {
					_, err := parseWindowDays(s)
					return err
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Description("Optional. Leave blank to stay in guest mode.").
				Placeholder("https://<project>.supabase.co").
				Value(&backendURL).
				Validate(validBackendURL),
			huh.NewInput().
				Title("Anon key").
				Description(anonDesc).
				EchoMode(huh.EchoModePassword).
				Value(&anonKey),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled, nothing saved.")
			return nil
		}
		return err
	}

	days, err := parseWindowDays(windowDays)
	if err != nil {
		return err
	}
	cfg.General.Currency = code
	cfg.General.WindowDays = days
	cfg.Appearance.Theme = themeName
	cfg.Backend.URL = strings.TrimSpace(backendURL)
	cfg.Backend.AnonKey = strings.TrimSpace(anonKey)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveFile(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", path)
	if cfg.BackendConfigured() {
		fmt.Println("  Run `lacag login` to sync with your account.")
	}
	fmt.Println("  Run `lacag setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

func parseWindowDays(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, errors.New("enter a positive number of days")
	}
	return n, nil
}

func validBackendURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("enter an absolute URL like https://example.supabase.co")
	}
	return nil
}
