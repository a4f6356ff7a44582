package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type signInOptions struct {
	*RootOptions
	Email    string
	Password string
}

func newSignInCommand(root *RootOptions) *cobra.Command {
	opts := &signInOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Long: `Sign in with email and password and keep the session in SESSION_FILE.

The password may also be given through PLANNER_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			if opts.Password == "" {
				opts.Password = os.Getenv("PLANNER_PASSWORD")
			}
			ctx := cmd.Context()
			if err := app.Resolver.Initialize(ctx); err != nil {
				return err
			}
			if err := app.Resolver.SignIn(ctx, opts.Email, opts.Password); err != nil {
				return err
			}
			s := app.Resolver.State()
			if !s.IsAuthenticated {
				return app.Out.Done(fmt.Sprintf("Signed in as %s, but no couple is linked to this account", opts.Email), s)
			}
			return app.Out.Done(fmt.Sprintf("Signed in as %s (%s)", s.DisplayName, opts.Email), s)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newSignOutCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			if err := app.Resolver.Initialize(cmd.Context()); err != nil {
				return err
			}
			if err := app.Resolver.SignOut(cmd.Context()); err != nil {
				return err
			}
			return app.Out.Done("Signed out", app.Resolver.State())
		},
	}
}

func newStatusCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the resolved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			if err := app.Resolver.Initialize(cmd.Context()); err != nil {
				return err
			}
			s := app.Resolver.State()
			return app.Out.Print(s, func(w io.Writer) {
				fmt.Fprintf(w, "Authenticated:\t%t\n", s.IsAuthenticated)
				fmt.Fprintf(w, "User:\t%s\n", orDash(s.UserID))
				fmt.Fprintf(w, "Couple:\t%s\n", orDash(s.CoupleID))
				fmt.Fprintf(w, "Display name:\t%s\n", orDash(s.DisplayName))
				fmt.Fprintf(w, "Backend:\t%s\n", app.Backend.Type)
			})
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
