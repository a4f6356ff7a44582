package core

// Declared orderings of each collection. Stores sort their results with
// these and mirrors reinsert local writes at the position they define.

// EventLess orders by date, then start time with unset times last.
func EventLess(a, b Event) bool {
	if !a.Date.Equal(b.Date.Time) {
		return a.Date.Before(b.Date.Time)
	}
	if a.TimeStart != b.TimeStart {
		if a.TimeStart == "" {
			return false
		}
		if b.TimeStart == "" {
			return true
		}
		return a.TimeStart < b.TimeStart
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// ExpenseLess orders newest first.
func ExpenseLess(a, b Expense) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// PhotoLess orders newest first.
func PhotoLess(a, b Photo) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// CategoryLess orders by sort order, then key.
func CategoryLess(a, b CategoryAllocation) bool {
	if a.SortOrder != b.SortOrder {
		return a.SortOrder < b.SortOrder
	}
	return a.Category < b.Category
}
