package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/lacag-app/lacag/internal/config"
	"github.com/lacag-app/lacag/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	// Log lines would tear the alt screen; send them to a file instead.
	logPath := filepath.Join(e.cfg.DataDir(), "lacag-tui.log")
	//nolint:gosec // log path is under the user's data dir
	logf, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open TUI log file: %w", err)
	}
	defer func() { _ = logf.Close() }()
	e.log.SetOutput(logf)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(e.tracker, tui.Options{
		Boot:      e.boot,
		Config:    e.cfg,
		NeedSetup: flagConfig == "" && !config.Exists(),
		Log:       e.log,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
