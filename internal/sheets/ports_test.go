package sheets

import (
	"testing"
	"time"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
)

func TestRows(t *testing.T) {
	d := core.MustDate("2026-05-01")
	expenses := []core.Expense{
		{Category: core.BudgetVenueCatering, VendorName: "Villa", Amount: core.FromMajor(50), IsPaid: true, Date: &d},
		{Category: core.BudgetPhotographyVideo, VendorName: "Studio", Amount: core.FromMajor(30)},
	}
	allocations := []core.CategoryAllocation{
		{Category: core.BudgetVenueCatering, Estimated: core.FromMajor(100)},
		{Category: core.BudgetPhotographyVideo, Estimated: core.FromMajor(200)},
	}
	total := &core.Budget{Total: core.FromMajor(1000)}
	rows := Rows(Export{
		CoupleID:    "c1",
		GeneratedAt: time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC),
		Summary:     core.Summarize(total, allocations, expenses),
		Expenses:    expenses,
		Breakdown:   core.Breakdown(allocations, expenses),
	})

	if got := rows[0][0]; got != "Date" {
		t.Fatalf("first row should be the header, got %v", rows[0])
	}
	if rows[1][0] != "2026-05-01" || rows[1][5] != "yes" || rows[1][4] != 50.0 {
		t.Fatalf("unexpected first expense row: %v", rows[1])
	}
	if rows[2][0] != "" || rows[2][5] != "no" {
		t.Fatalf("undated expense should have an empty date: %v", rows[2])
	}

	// header, 2 expenses, blank, breakdown header, 2 categories, blank, 6 totals, exported at
	if len(rows) != 15 {
		t.Fatalf("expected 15 rows, got %d: %v", len(rows), rows)
	}
	if rows[13][0] != "Progress" || rows[13][1] != "8%" {
		t.Fatalf("unexpected progress row: %v", rows[13])
	}
}
