// Package sheets exports a couple's expense ledger to a spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
)

// Export is a snapshot of a couple's budget as the exporters write it.
type Export struct {
	CoupleID    string
	GeneratedAt time.Time
	Summary     core.BudgetSummary
	Expenses    []core.Expense
	Breakdown   []core.CategoryBreakdown
}

// ExpenseExporter replaces the target sheet with the export and returns a
// reference to what was written.
type ExpenseExporter interface {
	ExportExpenses(ctx context.Context, e Export) (ref string, err error)
}

var Header = []any{"Date", "Category", "Vendor", "Description", "Amount", "Paid"}

// Rows renders the export: header, one row per expense, then the category
// breakdown and the totals, each after a blank row.
func Rows(e Export) [][]any {
	rows := make([][]any, 0, len(e.Expenses)+len(e.Breakdown)+12)
	rows = append(rows, Header)
	for _, x := range e.Expenses {
		date := ""
		if x.Date != nil {
			date = x.Date.String()
		}
		paid := "no"
		if x.IsPaid {
			paid = "yes"
		}
		rows = append(rows, []any{date, x.Category.Label(), x.VendorName, x.Description, x.Amount.Major(), paid})
	}

	rows = append(rows, []any{}, []any{"Category", "Estimated", "Spent", "Paid"})
	for _, b := range e.Breakdown {
		if b.Estimated.Cents == 0 && b.Spent.Cents == 0 {
			continue
		}
		rows = append(rows, []any{b.Category.Label(), b.Estimated.Major(), b.Spent.Major(), b.Paid.Major()})
	}

	s := e.Summary
	rows = append(rows,
		[]any{},
		[]any{"Total budget", s.Total.Major()},
		[]any{"Estimated", s.Estimated.Major()},
		[]any{"Spent", s.Spent.Major()},
		[]any{"Paid", s.Paid.Major()},
		[]any{"Remaining", s.Remaining.Major()},
		[]any{"Progress", fmt.Sprintf("%d%%", s.Progress)},
	)
	if !e.GeneratedAt.IsZero() {
		rows = append(rows, []any{"Exported at", e.GeneratedAt.UTC().Format(time.RFC3339)})
	}
	return rows
}
