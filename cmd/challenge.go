package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/cli"
	"github.com/lacag-app/lacag/internal/currency"
)

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "7-day and 30-day spending challenges",
	RunE:  runChallengeStatus,
}

var challengeStatusCmd = &cobra.Command{
	Use:   "status [7day|30day]",
	Short: "Show challenge progress",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChallengeStatus,
}

var challengeStartCmd = &cobra.Command{
	Use:   "start <7day|30day> <limit>",
	Short: "Start a challenge; the limit is per day for 7day and a total budget for 30day",
	Args:  cobra.ExactArgs(2),
	RunE:  runChallengeStart,
}

var challengeBeginCmd = &cobra.Command{
	Use:   "begin <7day|30day>",
	Short: "Move a challenge to limit entry",
	Args:  cobra.ExactArgs(1),
	RunE: challengeStep("waiting for a limit", func(e *env, v challenge.Variant, _ []string) error {
		return e.tracker.BeginChallenge(v)
	}),
}

var challengeConfirmCmd = &cobra.Command{
	Use:   "confirm <7day|30day> <limit>",
	Short: "Activate a challenge that is waiting for a limit",
	Args:  cobra.ExactArgs(2),
	RunE: challengeStep("started", func(e *env, v challenge.Variant, args []string) error {
		limit, err := currency.Parse(args[1], e.tracker.Currency())
		if err != nil {
			return err
		}
		return e.tracker.ConfirmChallenge(v, limit)
	}),
}

var challengeCancelCmd = &cobra.Command{
	Use:   "cancel <7day|30day>",
	Short: "Abandon limit entry",
	Args:  cobra.ExactArgs(1),
	RunE: challengeStep("cancelled", func(e *env, v challenge.Variant, _ []string) error {
		return e.tracker.CancelChallenge(v)
	}),
}

var challengeStopCmd = &cobra.Command{
	Use:   "stop <7day|30day>",
	Short: "Stop a running challenge",
	Args:  cobra.ExactArgs(1),
	RunE:  runChallengeStop,
}

func init() {
	challengeStopCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Skip confirmation")
	challengeCmd.AddCommand(challengeStatusCmd, challengeStartCmd, challengeBeginCmd,
		challengeConfirmCmd, challengeCancelCmd, challengeStopCmd)
	rootCmd.AddCommand(challengeCmd)
}

// challengeStep wraps a single board transition.
func challengeStep(done string, fn func(e *env, v challenge.Variant, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		v, err := challenge.ParseVariant(args[0])
		if err != nil {
			return err
		}
		return withEnv(cmd, func(_ context.Context, e *env) error {
			if err := fn(e, v, args); err != nil {
				return err
			}
			fmt.Printf("  %s challenge %s\n", v, done)
			return nil
		})
	}
}

func runChallengeStart(cmd *cobra.Command, args []string) error {
	v, err := challenge.ParseVariant(args[0])
	if err != nil {
		return err
	}
	return withEnv(cmd, func(_ context.Context, e *env) error {
		limit, err := currency.Parse(args[1], e.tracker.Currency())
		if err != nil {
			return err
		}
		if err := startChallenge(e.tracker, v, limit); err != nil {
			return err
		}
		fmt.Printf("  %s challenge started, daily limit %s\n", v,
			cli.FormatMoney(e.tracker.ChallengeLimit(v), e.tracker.Currency()))
		return nil
	})
}

// challengeBoard is the part of the tracker that start drives.
type challengeBoard interface {
	Challenge() challenge.Board
	BeginChallenge(v challenge.Variant) error
	ConfirmChallenge(v challenge.Variant, value float64) error
	CancelChallenge(v challenge.Variant) error
}

// startChallenge begins v if needed and confirms it with limit. When the
// confirm fails, a begin done here is undone; a variant that was already
// waiting for a limit keeps waiting.
func startChallenge(tr challengeBoard, v challenge.Variant, limit float64) error {
	board := tr.Challenge()
	began := false
	if board.State(v).Step == challenge.StepStart {
		if err := tr.BeginChallenge(v); err != nil {
			return err
		}
		began = true
	}
	if err := tr.ConfirmChallenge(v, limit); err != nil {
		if began {
			_ = tr.CancelChallenge(v)
		}
		return err
	}
	return nil
}

func runChallengeStop(cmd *cobra.Command, args []string) error {
	v, err := challenge.ParseVariant(args[0])
	if err != nil {
		return err
	}
	return withEnv(cmd, func(_ context.Context, e *env) error {
		board := e.tracker.Challenge()
		if board.State(v).Step != challenge.StepActive {
			fmt.Printf("  The %s challenge is not running.\n", v)
			return nil
		}
		ok, err := confirm(fmt.Sprintf("Stop the %s challenge? Progress is discarded.", v))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("  Kept.")
			return nil
		}
		if err := e.tracker.StopChallenge(v, true); err != nil {
			return err
		}
		fmt.Printf("  %s challenge stopped\n", v)
		return nil
	})
}

func runChallengeStatus(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, func(_ context.Context, e *env) error {
		board := e.tracker.Challenge()
		v := board.Active
		if len(args) == 1 {
			parsed, err := challenge.ParseVariant(args[0])
			if err != nil {
				return err
			}
			v = parsed
		}
		if v == challenge.None {
			fmt.Println("\n  No challenge running. Start one with `lacag challenge start 7day <daily limit>`.")
			return nil
		}

		st := board.State(v)
		switch st.Step {
		case challenge.StepStart:
			fmt.Printf("\n  The %s challenge is not running.\n", v)
			return nil
		case challenge.StepInput:
			fmt.Printf("\n  The %s challenge is waiting for a limit: `lacag challenge confirm %s <limit>`.\n", v, string(v))
			return nil
		case challenge.StepActive:
		}

		now := time.Now()
		p := e.tracker.Progress(v, now)
		fmt.Println()
		fmt.Print(cli.RenderChallenge(v.String()+" challenge", p, e.tracker.Currency(), now))
		return nil
	})
}
