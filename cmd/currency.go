package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lacag-app/lacag/internal/currency"
)

var currencyCmd = &cobra.Command{
	Use:   "currency [code]",
	Short: "Show or set the display currency",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCurrency,
}

func init() {
	rootCmd.AddCommand(currencyCmd)
}

func runCurrency(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, func(_ context.Context, e *env) error {
		if len(args) == 0 {
			cur := e.tracker.Currency()
			fmt.Printf("  Currency: %s (%s)\n", cur, currency.Symbol(cur))
			fmt.Printf("  Available: %s\n", strings.Join(currency.Available(), ", "))
			return nil
		}
		if err := e.tracker.SetCurrency(args[0]); err != nil {
			return err
		}
		cur := e.tracker.Currency()
		fmt.Printf("  Currency set to %s, e.g. %s\n", cur, currency.Format(1234.5, cur, currency.Options{MaxFractionDigits: 2}))
		return nil
	})
}
