package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/cli"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Today's spending against the daily limit",
	Args:  cobra.NoArgs,
	RunE:  runToday,
}

func init() {
	rootCmd.AddCommand(todayCmd)
}

func runToday(cmd *cobra.Command, _ []string) error {
	return withEnv(cmd, func(_ context.Context, e *env) error {
		now := time.Now()
		code := e.tracker.Currency()

		today := pipeline.FilterByKind(
			pipeline.FilterByTime(e.tracker.Transactions(), pipeline.StartOfDay(now), pipeline.EndOfDay(now)),
			model.Expense)
		pipeline.SortNewestFirst(today)
		spent := e.tracker.TotalSpentToday(now)

		fmt.Println()
		fmt.Println(cli.RenderTitle("TODAY  " + now.Format("Mon Jan 2")))
		fmt.Println()

		fmt.Printf("  Spent:  %s\n", cli.FormatMoney(spent, code))
		limit, source := 0.0, ""
		board := e.tracker.Challenge()
		if board.Active != challenge.None {
			limit, source = e.tracker.ChallengeLimit(board.Active), board.Active.String()+" challenge"
		} else if dl := e.tracker.DailyLimit(); dl != nil {
			limit, source = *dl, "plan"
		}
		if limit > 0 {
			fmt.Printf("  Limit:  %s (%s)\n", cli.FormatMoney(limit, code), source)
			fmt.Printf("          %s\n", cli.RenderLimitBar(spent, limit, 30))
		}
		if err := e.tracker.LastError(); err != nil {
			fmt.Printf("  Sync:   %v (showing last known data)\n", err)
		}
		fmt.Println()

		fmt.Print(cli.RenderTransactions("Expenses", today, code))
		if cats := pipeline.AggregateCategories(today); len(cats) > 1 {
			fmt.Println()
			fmt.Print(cli.RenderCategories(cats, code))
		}
		if !e.tracker.IsAuthenticated() {
			fmt.Println()
			fmt.Println("  Guest mode: data stays on this device. Run `lacag login` to sync.")
		}
		return nil
	})
}
