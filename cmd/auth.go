package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/lacag-app/lacag/internal/baas"
	"github.com/lacag-app/lacag/internal/cli"
	"github.com/lacag-app/lacag/internal/session"
)

var (
	flagEmail    string
	flagPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and sync with your account (guest entries are discarded)",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE:  runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and return to guest mode",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show who is signed in",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&flagEmail, "email", "", "Account email")
		c.Flags().StringVar(&flagPassword, "password", "", "Password (prompted when empty)")
	}
	loginCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Discard guest entries without asking")
	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd)
}

// promptCredentials fills in whatever the flags left empty.
func promptCredentials(title string) (string, string, error) {
	email, password := strings.TrimSpace(flagEmail), flagPassword
	var fields []huh.Field
	if email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Value(&email).
			Validate(func(s string) error {
				if !strings.Contains(s, "@") {
					return errors.New("enter an email address")
				}
				return nil
			}))
	}
	if password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&password).
			Validate(func(s string) error {
				if len(s) < 6 {
					return errors.New("at least 6 characters")
				}
				return nil
			}))
	}
	if len(fields) > 0 {
		form := huh.NewForm(huh.NewGroup(fields...).Title(title))
		if err := form.Run(); err != nil {
			return "", "", err
		}
	}
	return strings.TrimSpace(email), password, nil
}

func runLogin(cmd *cobra.Command, _ []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		if e.client == nil {
			return session.ErrNoBackend
		}
		if cur := e.sessions.Current(); cur != nil {
			fmt.Printf("  Already signed in as %s. Run `lacag logout` first.\n", cur.Email)
			return nil
		}
		if n := len(e.tracker.Transactions()); n > 0 {
			ok, err := confirm(fmt.Sprintf("Signing in discards %d guest entries. Continue?", n))
			if err != nil || !ok {
				return err
			}
		}

		email, password, err := promptCredentials("Sign in")
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		sess, err := e.sessions.SignIn(ctx, email, password)
		if err != nil {
			return err
		}
		fmt.Printf("  Signed in as %s\n", sess.Email)
		if lastErr := e.tracker.LastError(); lastErr != nil {
			fmt.Printf("  Sync failed: %v\n", lastErr)
		}
		return nil
	})
}

func runSignup(cmd *cobra.Command, _ []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		if e.client == nil {
			return session.ErrNoBackend
		}
		email, password, err := promptCredentials("Create account")
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		sess, err := e.sessions.SignUp(ctx, email, password)
		if errors.Is(err, baas.ErrConfirmationPending) {
			fmt.Printf("  Account created. Confirm the email sent to %s, then run `lacag login`.\n", email)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("  Account created, signed in as %s\n", sess.Email)
		return nil
	})
}

func runLogout(cmd *cobra.Command, _ []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		if e.sessions.Current() == nil {
			fmt.Println("  Not signed in.")
			return nil
		}
		if err := e.sessions.SignOut(ctx); err != nil {
			return err
		}
		fmt.Println("  Signed out. New entries are kept on this device only.")
		return nil
	})
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		st := e.tracker.Status(time.Now())
		if !st.Authenticated {
			mode := "no backend configured"
			if e.client != nil {
				mode = "backend " + e.cfg.Backend.URL
			}
			fmt.Printf("  Guest (%s)\n", mode)
			return nil
		}
		fmt.Printf("  %s\n", e.tracker.Username(ctx))
		fmt.Printf("  Email:         %s\n", st.Email)
		fmt.Printf("  User ID:       %s\n", st.UserID)
		fmt.Printf("  Backend:       %s\n", e.cfg.Backend.URL)
		if sess := e.sessions.Current(); sess != nil && !sess.ExpiresAt.IsZero() {
			fmt.Printf("  Token expires: %s\n", cli.FormatTime(sess.ExpiresAt))
		}
		if !st.LastRefresh.IsZero() {
			fmt.Printf("  Last sync:     %s\n", cli.FormatTime(st.LastRefresh))
		}
		if st.LastError != "" {
			fmt.Printf("  Last error:    %s\n", st.LastError)
		}
		return nil
	})
}
