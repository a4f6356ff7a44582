package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
)

func (s *Store) GetBudget(_ context.Context, coupleID string) (*core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[coupleID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *Store) UpsertBudget(_ context.Context, coupleID string, total core.Money) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.stamp()
	b, ok := s.budgets[coupleID]
	if !ok {
		b = core.Budget{ID: uuid.NewString(), CoupleID: coupleID, CreatedAt: now}
	}
	b.Total = total
	b.UpdatedAt = now
	s.budgets[coupleID] = b
	return b, nil
}

func (s *Store) ListCategories(_ context.Context, coupleID string) ([]core.CategoryAllocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.CategoryAllocation{}
	for _, c := range s.categories {
		if c.CoupleID == coupleID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return core.CategoryLess(out[i], out[j]) })
	return out, nil
}

func (s *Store) UpsertCategory(_ context.Context, coupleID string, category core.BudgetCategory, estimated core.Money, sortOrder int) (core.CategoryAllocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.stamp()
	for id, c := range s.categories {
		if c.CoupleID == coupleID && c.Category == category {
			c.Estimated = estimated
			c.SortOrder = sortOrder
			c.UpdatedAt = now
			s.categories[id] = c
			return c, nil
		}
	}
	c := core.CategoryAllocation{
		ID: uuid.NewString(), CoupleID: coupleID, Category: category,
		Estimated: estimated, SortOrder: sortOrder, CreatedAt: now, UpdatedAt: now,
	}
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) ListExpenses(_ context.Context, coupleID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Expense{}
	for _, e := range s.expenses {
		if e.CoupleID == coupleID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return core.ExpenseLess(out[i], out[j]) })
	return out, nil
}

func (s *Store) InsertExpense(_ context.Context, coupleID, createdBy string, ne core.NewExpense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.stamp()
	e := core.Expense{
		ID: uuid.NewString(), CoupleID: coupleID, Category: ne.Category, VendorName: ne.VendorName,
		Description: ne.Description, Amount: ne.Amount, IsPaid: ne.IsPaid, CreatedBy: createdBy,
		CreatedAt: now, UpdatedAt: now,
	}
	if ne.Date != nil && !ne.Date.IsEmpty() {
		d := *ne.Date
		e.Date = &d
	}
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, coupleID, id string, p core.ExpensePatch) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.CoupleID != coupleID {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, core.ErrNotFound)
	}
	e = p.Apply(e)
	if e.Date != nil && e.Date.IsEmpty() {
		e.Date = nil
	}
	e.UpdatedAt = s.stamp()
	s.expenses[id] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, coupleID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.CoupleID != coupleID {
		return fmt.Errorf("delete expense %s: %w", id, core.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}
