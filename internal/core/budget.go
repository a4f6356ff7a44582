package core

import "math"

type (
	// BudgetSummary holds the aggregates of one couple's budget.
	BudgetSummary struct {
		Total     Money
		Estimated Money
		Spent     Money
		Paid      Money
		Remaining Money
		// Progress is spent over total as a rounded percentage, 0 when the
		// total is not positive.
		Progress int
	}

	CategoryBreakdown struct {
		Category  BudgetCategory
		Estimated Money
		Spent     Money
		Paid      Money
		Expenses  []Expense
	}
)

// Summarize aggregates a budget. A nil budget counts as a zero total.
func Summarize(b *Budget, allocations []CategoryAllocation, expenses []Expense) BudgetSummary {
	var s BudgetSummary
	if b != nil {
		s.Total = b.Total
	}
	for _, a := range allocations {
		s.Estimated = s.Estimated.Add(a.Estimated)
	}
	for _, e := range expenses {
		s.Spent = s.Spent.Add(e.Amount)
		if e.IsPaid {
			s.Paid = s.Paid.Add(e.Amount)
		}
	}
	s.Remaining = s.Total.Sub(s.Spent)
	s.Progress = Progress(s.Spent, s.Total)
	return s
}

func Progress(spent, total Money) int {
	if total.Cents <= 0 {
		return 0
	}
	return int(math.Round(float64(spent.Cents) / float64(total.Cents) * 100))
}

// Breakdown returns one entry per category: every registry category in sort
// order, followed by any unknown category found in the data.
func Breakdown(allocations []CategoryAllocation, expenses []Expense) []CategoryBreakdown {
	order := BudgetCategoryList()
	index := make(map[BudgetCategory]int, len(order))
	out := make([]CategoryBreakdown, 0, len(order))
	for i, c := range order {
		index[c] = i
		out = append(out, CategoryBreakdown{Category: c})
	}
	slot := func(c BudgetCategory) *CategoryBreakdown {
		i, ok := index[c]
		if !ok {
			i = len(out)
			index[c] = i
			out = append(out, CategoryBreakdown{Category: c})
		}
		return &out[i]
	}
	for _, a := range allocations {
		b := slot(a.Category)
		b.Estimated = b.Estimated.Add(a.Estimated)
	}
	for _, e := range expenses {
		b := slot(e.Category)
		b.Spent = b.Spent.Add(e.Amount)
		if e.IsPaid {
			b.Paid = b.Paid.Add(e.Amount)
		}
		b.Expenses = append(b.Expenses, e)
	}
	return out
}
