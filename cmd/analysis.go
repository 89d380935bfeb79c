package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lacag-app/lacag/internal/cli"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
)

var flagDays int

var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Income, spending and categories over a period",
	Args:  cobra.NoArgs,
	RunE:  runAnalysis,
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Per-day totals",
	Args:  cobra.NoArgs,
	RunE:  runDaily,
}

func init() {
	analysisCmd.Flags().IntVarP(&flagDays, "days", "n", 30, "Time window in days")
	dailyCmd.Flags().IntVarP(&flagDays, "days", "n", 7, "Time window in days")
	rootCmd.AddCommand(analysisCmd, dailyCmd)
}

// window returns the ledger restricted to the last flagDays calendar days.
func window(ctx context.Context, e *env) ([]model.Transaction, time.Time, time.Time, error) {
	if flagDays < 1 {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("--days must be at least 1, got %d", flagDays)
	}
	txs, err := e.tracker.Ledger(ctx)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	now := time.Now()
	since := pipeline.AddDays(pipeline.StartOfDay(now), -(flagDays - 1))
	return pipeline.FilterByTime(txs, since, now), since, now, nil
}

func runAnalysis(cmd *cobra.Command, _ []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		txs, _, _, err := window(ctx, e)
		if err != nil {
			return err
		}
		code := e.tracker.Currency()
		if len(txs) == 0 {
			fmt.Println("\n  No transactions in the selected period.")
			return nil
		}

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("ANALYSIS  Last %dd", flagDays)))
		fmt.Println()
		fmt.Print(cli.RenderSummary("Summary", pipeline.Summarize(txs), code))
		fmt.Println()
		fmt.Print(cli.RenderCategories(pipeline.AggregateCategories(txs), code))

		expenses := pipeline.FilterByKind(txs, model.Expense)
		if len(expenses) > 0 {
			total := pipeline.Summarize(expenses).Expense
			fmt.Printf("\n  Average per day: %s\n", cli.FormatMoney(total/float64(flagDays), code))
		}
		return nil
	})
}

func runDaily(cmd *cobra.Command, _ []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		txs, since, now, err := window(ctx, e)
		if err != nil {
			return err
		}
		days := pipeline.AggregateDays(txs, since, now)

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("DAILY  Last %dd", flagDays)))
		fmt.Println()
		fmt.Print(cli.RenderDailyTotals(days, e.tracker.Currency(), now))
		return nil
	})
}
