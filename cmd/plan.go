package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lacag-app/lacag/internal/cli"
	"github.com/lacag-app/lacag/internal/currency"
	"github.com/lacag-app/lacag/internal/model"
)

var (
	flagPlanNotes string
	flagPlanID    string
)

var planCmd = &cobra.Command{
	Use:     "plan",
	Aliases: []string{"plans"},
	Short:   "Monthly savings plans",
	RunE:    runPlanList,
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plans with progress",
	Args:  cobra.NoArgs,
	RunE:  runPlanList,
}

var planSetCmd = &cobra.Command{
	Use:   "set <month> <target>",
	Short: "Create a plan, or update one with --id",
	Args:  cobra.ExactArgs(2),
	RunE:  runPlanSet,
}

var planDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a plan (any unique ID prefix)",
	Args:    cobra.ExactArgs(1),
	RunE:    runPlanDelete,
}

func init() {
	planSetCmd.Flags().StringVar(&flagPlanNotes, "notes", "", "Notes")
	planSetCmd.Flags().StringVar(&flagPlanID, "id", "", "Update the plan with this ID prefix")
	planDeleteCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Skip confirmation")

	planCmd.AddCommand(planListCmd, planSetCmd, planDeleteCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlanList(cmd *cobra.Command, _ []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		plans, err := e.tracker.Plans(ctx)
		if err != nil {
			return err
		}
		ledger, err := e.tracker.Ledger(ctx)
		if err != nil {
			return err
		}
		rows := make([]cli.PlanRow, 0, len(plans))
		for _, p := range plans {
			rows = append(rows, cli.PlanRow{Plan: p, Progress: e.tracker.PlanProgress(p, ledger)})
		}
		fmt.Println()
		fmt.Print(cli.RenderPlans(rows, e.tracker.Currency()))
		return nil
	})
}

func runPlanSet(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		target, err := currency.Parse(args[1], e.tracker.Currency())
		if err != nil {
			return err
		}
		in := model.PlanInput{Month: args[0], Target: target, Notes: flagPlanNotes}
		if flagPlanID != "" {
			existing, err := resolvePlan(ctx, e, flagPlanID)
			if err != nil {
				return err
			}
			in.ID = existing.ID
			if !cmd.Flags().Changed("notes") {
				in.Notes = existing.Notes
			}
		}
		p, err := e.tracker.SavePlan(ctx, in)
		if err != nil {
			return err
		}
		fmt.Printf("  Saved plan %s: %s target %s\n", cli.ShortID(p.ID), p.Month, cli.FormatMoney(p.Target, e.tracker.Currency()))
		return nil
	})
}

func runPlanDelete(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		p, err := resolvePlan(ctx, e, args[0])
		if err != nil {
			return err
		}
		ok, err := confirm(fmt.Sprintf("Delete the %s plan (%s)?", p.Month, cli.FormatMoney(p.Target, e.tracker.Currency())))
		if err != nil || !ok {
			return err
		}
		if err := e.tracker.DeletePlan(ctx, p.ID); err != nil {
			return err
		}
		fmt.Printf("  Deleted plan %s\n", cli.ShortID(p.ID))
		return nil
	})
}

func resolvePlan(ctx context.Context, e *env, prefix string) (model.Plan, error) {
	plans, err := e.tracker.Plans(ctx)
	if err != nil {
		return model.Plan{}, err
	}
	var matches []model.Plan
	for _, p := range plans {
		if strings.HasPrefix(p.ID, prefix) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return model.Plan{}, fmt.Errorf("no plan matches %q", prefix)
	case 1:
		return matches[0], nil
	}
	return model.Plan{}, fmt.Errorf("%q matches %d plans; use a longer prefix", prefix, len(matches))
}
