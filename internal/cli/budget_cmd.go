package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/services"
)

func newBudgetCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show and edit the budget, category estimates and expenses",
	}
	cmd.AddCommand(newBudgetShowCommand(root))
	cmd.AddCommand(newBudgetTotalCommand(root))
	cmd.AddCommand(newBudgetEstimateCommand(root))
	cmd.AddCommand(newBudgetCategoriesCommand(root))

	expense := &cobra.Command{
		Use:   "expense",
		Short: "Record and edit expenses",
	}
	expense.AddCommand(newExpenseAddCommand(root))
	expense.AddCommand(newExpenseUpdateCommand(root))
	expense.AddCommand(newExpenseRemoveCommand(root))
	expense.AddCommand(newExpenseToggleCommand(root))
	cmd.AddCommand(expense)

	return cmd
}

// budgetSync returns a fetched budget synchronizer for the signed-in couple.
func budgetSync(cmd *cobra.Command, app *App) (*services.BudgetSynchronizer, error) {
	ctx := cmd.Context()
	if _, err := app.Session(ctx); err != nil {
		return nil, err
	}
	b := app.Backend.NewBudgetSynchronizer(app.Resolver)
	b.FetchAll(ctx)
	if err := synced(b.Status()); err != nil {
		return nil, err
	}
	return b, nil
}

type budgetReport struct {
	Summary   core.BudgetSummary       `json:"summary"`
	Breakdown []core.CategoryBreakdown `json:"breakdown"`
}

func newBudgetShowCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print totals, the per-category breakdown and expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			b, err := budgetSync(cmd, app)
			if err != nil {
				return err
			}
			report := budgetReport{Summary: b.Summary(), Breakdown: b.Breakdown()}
			return app.Out.Print(report, func(w io.Writer) {
				printSummary(w, report.Summary)
				fmt.Fprintln(w)
				printBreakdown(w, report.Breakdown)
			})
		},
	}
}

func printSummary(w io.Writer, s core.BudgetSummary) {
	fmt.Fprintf(w, "Total budget:\t%s\n", s.Total)
	fmt.Fprintf(w, "Estimated:\t%s\n", s.Estimated)
	fmt.Fprintf(w, "Spent:\t%s\n", s.Spent)
	fmt.Fprintf(w, "Paid:\t%s\n", s.Paid)
	fmt.Fprintf(w, "Remaining:\t%s\n", s.Remaining)
	fmt.Fprintf(w, "Progress:\t%d%%\n", s.Progress)
}

func printBreakdown(w io.Writer, rows []core.CategoryBreakdown) {
	fmt.Fprintln(w, "CATEGORY\tESTIMATED\tSPENT\tPAID\tEXPENSES")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", r.Category.Label(), r.Estimated, r.Spent, r.Paid, len(r.Expenses))
		for _, e := range r.Expenses {
			paid := " "
			if e.IsPaid {
				paid = "x"
			}
			fmt.Fprintf(w, "  [%s] %s\t\t%s\t\t%s\n", paid, e.VendorName, e.Amount, e.ID)
		}
	}
}

func newBudgetTotalCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "total <amount>",
		Short: "Set the total budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			amount, err := core.ParseAmount(args[0])
			if err != nil {
				return err
			}
			b, err := budgetSync(cmd, app)
			if err != nil {
				return err
			}
			budget, err := b.SetTotalBudget(cmd.Context(), amount)
			if err != nil {
				return err
			}
			return app.Out.Done("Total budget set to "+budget.Total.String(), budget)
		},
	}
}

func newBudgetEstimateCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate <category> <amount>",
		Short: "Set the estimated amount of a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return err
			}
			b, err := budgetSync(cmd, app)
			if err != nil {
				return err
			}
			alloc, err := b.UpsertCategoryBudget(cmd.Context(), core.BudgetCategory(args[0]), amount)
			if err != nil {
				return err
			}
			return app.Out.Done(fmt.Sprintf("%s estimated at %s", alloc.Category.Label(), alloc.Estimated), alloc)
		},
	}
}

func newBudgetCategoriesCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the budget categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := core.BudgetCategoryOptions()
			return root.app.Out.Print(opts, func(w io.Writer) {
				for _, o := range opts {
					fmt.Fprintf(w, "%s\t%s\n", o.Value, o.Label)
				}
			})
		},
	}
}

type expenseFlags struct {
	Category    string
	Vendor      string
	Description string
	Amount      string
	Paid        bool
	Date        string
}

func (f *expenseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Category, "category", "", "budget category key")
	cmd.Flags().StringVar(&f.Vendor, "vendor", "", "vendor name")
	cmd.Flags().StringVar(&f.Description, "description", "", "free-form notes")
	cmd.Flags().StringVar(&f.Amount, "amount", "", "amount, e.g. 1250.50")
	cmd.Flags().BoolVar(&f.Paid, "paid", false, "mark as paid")
	cmd.Flags().StringVar(&f.Date, "date", "", "expense date (YYYY-MM-DD)")
}

func newExpenseAddCommand(root *RootOptions) *cobra.Command {
	flags := &expenseFlags{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			amount, err := core.ParseAmount(flags.Amount)
			if err != nil {
				return err
			}
			ne := core.NewExpense{
				Category:    core.BudgetCategory(flags.Category),
				VendorName:  flags.Vendor,
				Description: flags.Description,
				Amount:      amount,
				IsPaid:      flags.Paid,
			}
			if flags.Date != "" {
				d, err := core.ParseISODate(flags.Date)
				if err != nil {
					return err
				}
				ne.Date = &d
			}
			b, err := budgetSync(cmd, app)
			if err != nil {
				return err
			}
			e, err := b.CreateExpense(cmd.Context(), ne)
			if err != nil {
				return err
			}
			return app.Out.Done(fmt.Sprintf("Recorded %s for %s (%s)", e.Amount, e.VendorName, e.ID), e)
		},
	}

	flags.register(cmd)
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("vendor")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newExpenseUpdateCommand(root *RootOptions) *cobra.Command {
	flags := &expenseFlags{}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the fields of an expense given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			var p core.ExpensePatch
			set := cmd.Flags().Changed
			if set("category") {
				c := core.BudgetCategory(flags.Category)
				p.Category = &c
			}
			if set("vendor") {
				p.VendorName = &flags.Vendor
			}
			if set("description") {
				p.Description = &flags.Description
			}
			if set("amount") {
				amount, err := core.ParseAmount(flags.Amount)
				if err != nil {
					return err
				}
				p.Amount = &amount
			}
			if set("paid") {
				p.IsPaid = &flags.Paid
			}
			if set("date") {
				d, err := core.ParseISODate(flags.Date)
				if err != nil {
					return err
				}
				p.Date = &d
			}
			b, err := budgetSync(cmd, app)
			if err != nil {
				return err
			}
			e, err := b.UpdateExpense(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			return app.Out.Done("Updated expense "+e.ID, e)
		},
	}

	flags.register(cmd)
	return cmd
}

func newExpenseRemoveCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			b, err := budgetSync(cmd, app)
			if err != nil {
				return err
			}
			if err := b.RemoveExpense(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.Out.Done("Removed expense "+args[0], map[string]string{"id": args[0]})
		},
	}
}

func newExpenseToggleCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip the paid flag of an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			b, err := budgetSync(cmd, app)
			if err != nil {
				return err
			}
			if err := b.ToggleExpensePaid(cmd.Context(), args[0]); err != nil {
				return err
			}
			for _, e := range b.Expenses() {
				if e.ID == args[0] {
					state := "unpaid"
					if e.IsPaid {
						state = "paid"
					}
					return app.Out.Done(fmt.Sprintf("Expense %s is now %s", e.ID, state), e)
				}
			}
			return fmt.Errorf("expense %s: %w", args[0], core.ErrNotFound)
		},
	}
}
