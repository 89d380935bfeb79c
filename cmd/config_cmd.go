package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lacag-app/lacag/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// configFile is the config path in effect for this run.
func configFile() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.ConfigPath()
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := configFile()
	fmt.Printf("  Config file: %s\n", path)
	if _, err := os.Stat(path); err == nil {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Currency:    %s\n", cfg.General.Currency)
	fmt.Printf("    Window days: %d\n", cfg.General.WindowDays)
	fmt.Printf("    Data dir:    %s\n", cfg.DataDir())
	fmt.Println()

	fmt.Println("  [Backend]")
	if cfg.BackendConfigured() {
		fmt.Printf("    URL:      %s\n", cfg.Backend.URL)
	} else {
		fmt.Println("    URL:      not configured (guest mode only)")
	}
	if cfg.Backend.AnonKey != "" {
		fmt.Printf("    Anon key: %s\n", maskKey(cfg.Backend.AnonKey))
	} else {
		fmt.Println("    Anon key: not configured")
	}
	fmt.Printf("    Timeout:  %s\n", cfg.Timeout())
	fmt.Printf("    Rate:     %.1f req/s\n", cfg.Backend.RatePerSec)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:          %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Refresh interval: %s\n", cfg.RefreshInterval())
	fmt.Printf("    Events buffer:    %d\n", cfg.Daemon.EventsBuffer)
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level:  %s\n", cfg.Log.Level)
	fmt.Printf("    Format: %s\n", cfg.Log.Format)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `lacag setup` to reconfigure.")
	return nil
}

func maskKey(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
