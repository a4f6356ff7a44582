package memory

import (
	"context"
	"testing"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/sheets"
)

func TestExporterRecordsExports(t *testing.T) {
	x := New()
	ref, err := x.ExportExpenses(context.Background(), sheets.Export{
		CoupleID: "c1",
		Expenses: []core.Expense{{Category: core.BudgetMiscellaneous, VendorName: "Cake", Amount: core.FromMajor(12)}},
	})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}
	if n := len(x.Exports()); n != 1 {
		t.Fatalf("expected 1 export, got %d", n)
	}
	if rows := x.Rows(); len(rows) < 2 || rows[1][2] != "Cake" {
		t.Fatalf("unexpected rows: %v", rows)
	}

	if _, err := x.ExportExpenses(context.Background(), sheets.Export{}); err == nil {
		t.Fatal("expected an error for an export without couple")
	}
}
