package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newAdminCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Bootstrap couples and accounts on the configured backend",
	}
	cmd.AddCommand(newAdminCreateCoupleCommand(root))
	cmd.AddCommand(newAdminAddUserCommand(root))
	cmd.AddCommand(newAdminCouplesCommand(root))
	return cmd
}

func newAdminCreateCoupleCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create-couple <name>",
		Short: "Create a couple and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			c, err := app.Backend.Store.CreateCouple(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Out.Done(fmt.Sprintf("Created couple %q (%s)", c.Name, c.ID), c)
		},
	}
}

type addUserOptions struct {
	*RootOptions
	Email       string
	Password    string
	CoupleID    string
	DisplayName string
}

func newAdminAddUserCommand(root *RootOptions) *cobra.Command {
	opts := &addUserOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Register an account and link it to a couple",
		Long: `Register an account and link it to a couple.

The password may also be given through PLANNER_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			ctx := cmd.Context()
			if opts.Password == "" {
				opts.Password = os.Getenv("PLANNER_PASSWORD")
			}
			user, err := app.Backend.Auth.Register(ctx, opts.Email, opts.Password)
			if err != nil {
				return err
			}
			m, err := app.Backend.Store.AddMember(ctx, opts.CoupleID, user.ID, opts.DisplayName)
			if err != nil {
				return fmt.Errorf("link %s to couple %s: %w", opts.Email, opts.CoupleID, err)
			}
			return app.Out.Done(fmt.Sprintf("Added %s to couple %s as %q", opts.Email, m.CoupleID, m.DisplayName), m)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password")
	cmd.Flags().StringVar(&opts.CoupleID, "couple", "", "couple id")
	cmd.Flags().StringVar(&opts.DisplayName, "name", "", "display name shown to the partner")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("couple")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newAdminCouplesCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "couples",
		Short: "List couples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			couples, err := app.Backend.Store.ListCouples(cmd.Context())
			if err != nil {
				return err
			}
			return app.Out.Print(couples, func(w io.Writer) {
				if len(couples) == 0 {
					fmt.Fprintln(w, "No couples")
					return
				}
				fmt.Fprintln(w, "ID\tNAME\tCREATED")
				for _, c := range couples {
					fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.CreatedAt.Format(time.DateOnly))
				}
			})
		},
	}
}
