package core

import "testing"

func TestSummarize(t *testing.T) {
	allocations := []CategoryAllocation{
		{Category: BudgetVenueCatering, Estimated: FromMajor(100)},
		{Category: BudgetPhotographyVideo, Estimated: FromMajor(200)},
	}
	expenses := []Expense{
		{Category: BudgetVenueCatering, Amount: FromMajor(50), IsPaid: true},
		{Category: BudgetVenueCatering, Amount: FromMajor(30), IsPaid: false},
	}

	cases := []struct {
		name      string
		total     int64
		remaining int64
		progress  int
	}{
		{"positive total", 1000, 920, 8},
		{"total below spent", 60, -20, 133},
		{"zero total", 0, -80, 0},
		{"negative total", -10, -90, 0},
	}
	for _, tc := range cases {
		s := Summarize(&Budget{Total: FromMajor(tc.total)}, allocations, expenses)
		if s.Estimated != FromMajor(300) || s.Spent != FromMajor(80) || s.Paid != FromMajor(50) {
			t.Fatalf("%s: unexpected totals %+v", tc.name, s)
		}
		if s.Remaining != FromMajor(tc.remaining) {
			t.Fatalf("%s: remaining %v, want %d", tc.name, s.Remaining, tc.remaining)
		}
		if s.Progress != tc.progress {
			t.Fatalf("%s: progress %d, want %d", tc.name, s.Progress, tc.progress)
		}
	}

	if s := Summarize(nil, nil, nil); s.Progress != 0 || s.Total.Cents != 0 {
		t.Fatalf("empty budget: %+v", s)
	}
}

func TestBreakdown(t *testing.T) {
	allocations := []CategoryAllocation{{Category: BudgetFlowersDecor, Estimated: FromMajor(400)}}
	expenses := []Expense{
		{ID: "a", Category: BudgetFlowersDecor, Amount: FromMajor(120), IsPaid: true},
		{ID: "b", Category: "legacy", Amount: FromMajor(10)},
	}
	rows := Breakdown(allocations, expenses)
	if len(rows) != len(BudgetCategories)+1 {
		t.Fatalf("expected every registry category plus the unknown one, got %d", len(rows))
	}
	if rows[0].Category != BudgetVenueCatering {
		t.Fatalf("expected registry sort order, got %s first", rows[0].Category)
	}
	flowers := rows[BudgetFlowersDecor.DefaultSortOrder()]
	if flowers.Estimated != FromMajor(400) || flowers.Paid != FromMajor(120) || len(flowers.Expenses) != 1 {
		t.Fatalf("unexpected flowers row: %+v", flowers)
	}
	if last := rows[len(rows)-1]; last.Category != "legacy" || last.Spent != FromMajor(10) {
		t.Fatalf("unexpected trailing row: %+v", last)
	}
}

func TestCategoryOptions(t *testing.T) {
	ev := EventCategoryOptions()
	if len(ev) != 6 || ev[0].Value != EventWeddingPrep || ev[5].Label != "Deadline" {
		t.Fatalf("unexpected event options: %+v", ev)
	}
	bu := BudgetCategoryOptions()
	if len(bu) != 10 || bu[9].Value != BudgetMiscellaneous {
		t.Fatalf("unexpected budget options: %+v", bu)
	}
	for i, o := range bu {
		if BudgetCategories[o.Value].DefaultSortOrder != i {
			t.Fatalf("option %d out of sort order: %s", i, o.Value)
		}
	}
	if BudgetCategory("nope").DefaultSortOrder() != -1 || EventCategory("nope").Label() != "nope" {
		t.Fatalf("unknown categories must fall back")
	}
}
