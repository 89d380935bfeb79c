// Package cmd implements the lacag CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lacag-app/lacag/internal/baas"
	"github.com/lacag-app/lacag/internal/config"
	"github.com/lacag-app/lacag/internal/logger"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/remote"
	"github.com/lacag-app/lacag/internal/session"
	"github.com/lacag-app/lacag/internal/store"
	"github.com/lacag-app/lacag/internal/tracker"
	"github.com/lacag-app/lacag/internal/tui/theme"
)

var (
	flagConfig   string
	flagDataDir  string
	flagCurrency string
	flagLogLevel string
	flagQuiet    bool
)

var rootCmd = &cobra.Command{
	Use:           "lacag",
	Short:         "Personal spending tracker",
	Long:          "Track daily spending and savings plans, locally as a guest or synced to your account.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runToday,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Local data directory")
	rootCmd.PersistentFlags().StringVar(&flagCurrency, "currency", "", "Display currency for this run, not saved (USD, EUR, SOS)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (config.Config, error) {
	path := configFile()
	cfg, err := config.LoadFile(path)
	if err != nil {
		return cfg, err
	}
	if flagDataDir != "" {
		cfg.General.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagQuiet {
		cfg.Log.Level = "error"
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	theme.SetActive(cfg.Appearance.Theme)
	return cfg, nil
}

// env is everything a command needs, wired from config.
type env struct {
	cfg      config.Config
	log      *logrus.Logger
	store    *store.Store
	client   *baas.Client // nil without a backend
	sessions *session.Manager
	tracker  *tracker.Tracker
	stop     func()
}

// newEnv opens the store and builds the backend client, session manager and
// tracker. Nothing is loaded yet; see boot.
func newEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: log, store: st}

	// Interfaces stay nil, not typed-nil, when there is no backend.
	var (
		auth session.Auth
		rem  tracker.Remote
	)
	if cfg.BackendConfigured() {
		client, err := baas.NewClient(baas.Options{
			URL:        cfg.Backend.URL,
			AnonKey:    cfg.Backend.AnonKey,
			Timeout:    cfg.Timeout(),
			RatePerSec: cfg.Backend.RatePerSec,
		})
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		e.client = client
		auth = client
		rem = remote.New(client, log)
	}

	e.sessions = session.NewManager(auth, st, log)
	e.tracker = tracker.New(st, rem, tracker.Options{
		WindowDays: cfg.General.WindowDays,
		Currency:   cfg.General.Currency,
		Log:        log,
	})
	e.stop = e.sessions.OnChange(func(sess *model.Session) {
		if err := e.tracker.SetSession(context.Background(), sess); err != nil {
			log.WithError(err).Warn("applying session change")
		}
	})
	return e, nil
}

// boot loads local data and restores the stored session. A failed remote
// refresh is logged; the tracker keeps it as its last error.
func (e *env) boot(ctx context.Context) error {
	if err := e.tracker.Load(); err != nil {
		return err
	}
	if flagCurrency != "" {
		if err := e.tracker.OverrideCurrency(flagCurrency); err != nil {
			return err
		}
	}
	if _, err := e.sessions.Restore(ctx); err != nil {
		e.log.WithError(err).Warn("restoring session")
	}
	return nil
}

func (e *env) Close() error {
	if e.stop != nil {
		e.stop()
	}
	return e.store.Close()
}

// openEnv is newEnv followed by boot.
func openEnv(ctx context.Context) (*env, error) {
	e, err := newEnv()
	if err != nil {
		return nil, err
	}
	if err := e.boot(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

// withEnv runs fn against a booted env and closes it afterwards.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	if err := fn(ctx, e); err != nil {
		return explain(err)
	}
	return nil
}

// explain turns sentinel errors into hints a user can act on.
func explain(err error) error {
	switch {
	case errors.Is(err, session.ErrNoBackend):
		return fmt.Errorf("%w; set backend.url in %s or run `lacag setup`", err, config.ConfigPath())
	case errors.Is(err, baas.ErrUnauthorized):
		return fmt.Errorf("%w; run `lacag login` again", err)
	case errors.Is(err, tracker.ErrNotAuthenticated):
		return fmt.Errorf("%w; run `lacag login` first", err)
	}
	return err
}
