package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/lacag-app/lacag/internal/cli"
	"github.com/lacag-app/lacag/internal/currency"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
)

var (
	flagTxKind     string
	flagTxCategory string
	flagTxDesc     string
	flagTxAt       string
	flagTxAmount   string
	flagTxDays     int
	flagYes        bool
)

var addCmd = &cobra.Command{
	Use:   "add <amount> [category]",
	Short: "Record an expense now",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAdd,
}

var txCmd = &cobra.Command{
	Use:     "tx",
	Aliases: []string{"transactions"},
	Short:   "List and manage transactions",
	RunE:    runTxList,
}

var txListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions",
	Args:  cobra.NoArgs,
	RunE:  runTxList,
}

var txAddCmd = &cobra.Command{
	Use:   "add <amount>",
	Short: "Record an income or expense",
	Args:  cobra.ExactArgs(1),
	RunE:  runTxAdd,
}

var txEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a transaction (any unique ID prefix)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTxEdit,
}

var txDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a transaction (any unique ID prefix)",
	Args:    cobra.ExactArgs(1),
	RunE:    runTxDelete,
}

func init() {
	txListCmd.Flags().IntVarP(&flagTxDays, "days", "n", 0, "Only the last N days (0 = all)")
	txListCmd.Flags().StringVar(&flagTxKind, "kind", "", "Filter by kind (income, expense)")

	txAddCmd.Flags().StringVar(&flagTxKind, "kind", "expense", "income or expense")
	txAddCmd.Flags().StringVarP(&flagTxCategory, "category", "c", "", "Category")
	txAddCmd.Flags().StringVar(&flagTxDesc, "desc", "", "Description")
	txAddCmd.Flags().StringVar(&flagTxAt, "at", "", "When (YYYY-MM-DD or YYYY-MM-DD HH:MM, default now)")

	txEditCmd.Flags().StringVar(&flagTxAmount, "amount", "", "New amount")
	txEditCmd.Flags().StringVar(&flagTxKind, "kind", "", "New kind")
	txEditCmd.Flags().StringVarP(&flagTxCategory, "category", "c", "", "New category")
	txEditCmd.Flags().StringVar(&flagTxDesc, "desc", "", "New description")
	txEditCmd.Flags().StringVar(&flagTxAt, "at", "", "New date")

	txDeleteCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Skip confirmation")

	txCmd.AddCommand(txListCmd, txAddCmd, txEditCmd, txDeleteCmd)
	rootCmd.AddCommand(addCmd, txCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		amount, err := currency.Parse(args[0], e.tracker.Currency())
		if err != nil {
			return err
		}
		category := ""
		if len(args) > 1 {
			category = args[1]
		}
		tx, err := e.tracker.AddExpense(ctx, amount, category)
		if err != nil {
			return err
		}
		fmt.Printf("  Added %s %s (%s)\n", tx.Label(), cli.FormatSigned(tx, e.tracker.Currency()), cli.ShortID(tx.ID))
		printCategoryHint(tx)
		return printSpentToday(e)
	})
}

// categoryHint suggests a canonical category when tx's looks like a typo of one.
func categoryHint(tx model.Transaction) string {
	suggestion, ok := model.SuggestCategory(tx.Category)
	if !ok {
		return ""
	}
	return fmt.Sprintf("Saved as %q. Did you mean %s? `lacag tx edit %s -c %s`",
		tx.Category, suggestion, cli.ShortID(tx.ID), suggestion)
}

func printCategoryHint(tx model.Transaction) {
	if hint := categoryHint(tx); hint != "" {
		fmt.Println("  " + hint)
	}
}

func printSpentToday(e *env) error {
	now := time.Now()
	spent := e.tracker.TotalSpentToday(now)
	code := e.tracker.Currency()
	fmt.Printf("  Spent today: %s", cli.FormatMoney(spent, code))
	if limit := e.tracker.DailyLimit(); limit != nil && *limit > 0 {
		fmt.Printf(" of %s  %s", cli.FormatMoney(*limit, code), cli.RenderLimitBar(spent, *limit, 20))
	}
	fmt.Println()
	return nil
}

func runTxList(cmd *cobra.Command, _ []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		txs, err := e.tracker.Ledger(ctx)
		if err != nil {
			return err
		}
		title := "TRANSACTIONS"
		if flagTxDays > 0 {
			now := time.Now()
			txs = pipeline.FilterByTime(txs, pipeline.AddDays(pipeline.StartOfDay(now), -(flagTxDays-1)), now)
			title = fmt.Sprintf("TRANSACTIONS  Last %dd", flagTxDays)
		}
		if flagTxKind != "" {
			kind, err := model.ParseKind(flagTxKind)
			if err != nil {
				return err
			}
			txs = pipeline.FilterByKind(txs, kind)
		}
		pipeline.SortNewestFirst(txs)

		fmt.Println()
		fmt.Println(cli.RenderTitle(title))
		fmt.Println()
		fmt.Print(cli.RenderTransactions("", txs, e.tracker.Currency()))
		return nil
	})
}

func runTxAdd(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		amount, err := currency.Parse(args[0], e.tracker.Currency())
		if err != nil {
			return err
		}
		kind, err := model.ParseKind(flagTxKind)
		if err != nil {
			return err
		}
		at, err := parseWhen(flagTxAt)
		if err != nil {
			return err
		}
		tx, err := e.tracker.AddTransaction(ctx, model.TransactionInput{
			Amount:      amount,
			Kind:        kind,
			Category:    flagTxCategory,
			Description: flagTxDesc,
			OccurredAt:  at,
		})
		if err != nil {
			return err
		}
		fmt.Printf("  Added %s %s (%s)\n", tx.Label(), cli.FormatSigned(tx, e.tracker.Currency()), cli.ShortID(tx.ID))
		printCategoryHint(tx)
		return nil
	})
}

func runTxEdit(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		tx, err := resolveTransaction(ctx, e, args[0])
		if err != nil {
			return err
		}

		var patch model.TransactionPatch
		flags := cmd.Flags()
		if flags.Changed("amount") {
			v, err := currency.Parse(flagTxAmount, e.tracker.Currency())
			if err != nil {
				return err
			}
			patch.Amount = &v
		}
		if flags.Changed("kind") {
			k, err := model.ParseKind(flagTxKind)
			if err != nil {
				return err
			}
			patch.Kind = &k
		}
		if flags.Changed("category") {
			patch.Category = &flagTxCategory
		}
		if flags.Changed("desc") {
			patch.Description = &flagTxDesc
		}
		if flags.Changed("at") {
			at, err := parseWhen(flagTxAt)
			if err != nil {
				return err
			}
			patch.OccurredAt = &at
		}
		if patch.Empty() {
			return errors.New("nothing to change; pass --amount, --kind, --category, --desc or --at")
		}

		updated, err := e.tracker.UpdateTransaction(ctx, tx.ID, patch)
		if err != nil {
			return err
		}
		fmt.Printf("  Updated %s: %s %s\n", cli.ShortID(updated.ID), updated.Label(), cli.FormatSigned(updated, e.tracker.Currency()))
		return nil
	})
}

func runTxDelete(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		tx, err := resolveTransaction(ctx, e, args[0])
		if err != nil {
			return err
		}
		question := fmt.Sprintf("Delete %s %s from %s?",
			tx.Label(), cli.FormatSigned(tx, e.tracker.Currency()), cli.FormatDay(tx.OccurredAt, time.Now()))
		ok, err := confirm(question)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("  Kept.")
			return nil
		}
		if err := e.tracker.DeleteTransaction(ctx, tx.ID); err != nil {
			return err
		}
		fmt.Printf("  Deleted %s\n", cli.ShortID(tx.ID))
		return nil
	})
}

// resolveTransaction finds the single transaction whose ID starts with prefix.
func resolveTransaction(ctx context.Context, e *env, prefix string) (model.Transaction, error) {
	txs, err := e.tracker.Ledger(ctx)
	if err != nil {
		return model.Transaction{}, err
	}
	var matches []model.Transaction
	for _, tx := range txs {
		if strings.HasPrefix(tx.ID, prefix) {
			matches = append(matches, tx)
		}
	}
	switch len(matches) {
	case 0:
		return model.Transaction{}, fmt.Errorf("no transaction matches %q", prefix)
	case 1:
		return matches[0], nil
	}
	return model.Transaction{}, fmt.Errorf("%q matches %d transactions; use a longer prefix", prefix, len(matches))
}

var whenLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"}

// parseWhen reads a local date or date-time. Empty means now.
func parseWhen(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range whenLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			if layout == "2006-01-02" {
				// Date only: keep the current time of day so the record sorts sensibly.
				now := time.Now()
				t = time.Date(t.Year(), t.Month(), t.Day(), now.Hour(), now.Minute(), 0, 0, time.Local)
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot read date %q; use YYYY-MM-DD or YYYY-MM-DD HH:MM", s)
}

// confirm asks a yes/no question unless --yes was given.
func confirm(question string) (bool, error) {
	if flagYes {
		return true, nil
	}
	ok := false
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(question).Affirmative("Yes").Negative("No").Value(&ok),
	)).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
