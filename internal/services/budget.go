package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

// BudgetSynchronizer mirrors a couple's budget total, category allocations
// and expenses. Aggregates are computed from the mirror on every call.
type BudgetSynchronizer struct {
	*base
	store      remote.BudgetStore
	budget     *Mirror[core.Budget]
	categories *Mirror[core.CategoryAllocation]
	expenses   *Mirror[core.Expense]
}

func NewBudgetSynchronizer(store remote.BudgetStore, d Deps) *BudgetSynchronizer {
	return &BudgetSynchronizer{
		base:       newBase(applog.ComponentBudget, d, core.TableBudgets, core.TableBudgetCategories, core.TableBudgetExpenses),
		store:      store,
		budget:     NewMirror(func(b core.Budget) string { return b.ID }, func(a, b core.Budget) bool { return false }),
		categories: NewMirror(func(c core.CategoryAllocation) string { return c.ID }, core.CategoryLess),
		expenses:   NewMirror(func(e core.Expense) string { return e.ID }, core.ExpenseLess),
	}
}

// FetchAll reads the budget, allocations and expenses concurrently. A
// failing read leaves its part of the mirror untouched without stopping
// the others; every failure ends up in the status.
func (s *BudgetSynchronizer) FetchAll(ctx context.Context) {
	couple := s.couple()
	if couple == "" {
		return
	}
	s.beginRead()

	var errBudget, errCats, errExps error
	var g errgroup.Group
	g.Go(func() error {
		errBudget = s.observe(ctx, "get_budget", func(ctx context.Context) error {
			b, err := s.store.GetBudget(ctx, couple)
			if err != nil {
				return fmt.Errorf("fetch budget: %w", err)
			}
			if b == nil {
				s.budget.Replace(couple, nil)
			} else {
				s.budget.Replace(couple, []core.Budget{*b})
			}
			return nil
		})
		return nil
	})
	g.Go(func() error {
		errCats = s.observe(ctx, "list_categories", func(ctx context.Context) error {
			cats, err := s.store.ListCategories(ctx, couple)
			if err != nil {
				return fmt.Errorf("fetch categories: %w", err)
			}
			s.categories.Replace(couple, cats)
			return nil
		})
		return nil
	})
	g.Go(func() error {
		errExps = s.observe(ctx, "list_expenses", func(ctx context.Context) error {
			exps, err := s.store.ListExpenses(ctx, couple)
			if err != nil {
				return fmt.Errorf("fetch expenses: %w", err)
			}
			s.expenses.Replace(couple, exps)
			return nil
		})
		return nil
	})
	_ = g.Wait()
	err := errors.Join(errBudget, errCats, errExps)
	s.endRead(ctx, applog.OpFetch, err)
	if err == nil {
		s.logger.DebugContext(ctx, "Budget fetched",
			applog.FieldCoupleID, couple,
			applog.FieldCount, len(s.expenses.Items(couple)))
	}
}

// Budget returns the mirrored budget row, nil when there is none.
func (s *BudgetSynchronizer) Budget() *core.Budget {
	items := s.budget.Items(s.couple())
	if len(items) == 0 {
		return nil
	}
	b := items[0]
	return &b
}

func (s *BudgetSynchronizer) Categories() []core.CategoryAllocation {
	return s.categories.Items(s.couple())
}

func (s *BudgetSynchronizer) Expenses() []core.Expense {
	return s.expenses.Items(s.couple())
}

func (s *BudgetSynchronizer) Summary() core.BudgetSummary {
	return core.Summarize(s.Budget(), s.Categories(), s.Expenses())
}

func (s *BudgetSynchronizer) Breakdown() []core.CategoryBreakdown {
	return core.Breakdown(s.Categories(), s.Expenses())
}

func (s *BudgetSynchronizer) CategoryEstimated(c core.BudgetCategory) core.Money {
	var total core.Money
	for _, a := range s.Categories() {
		if a.Category == c {
			total = total.Add(a.Estimated)
		}
	}
	return total
}

func (s *BudgetSynchronizer) CategoryExpenses(c core.BudgetCategory) []core.Expense {
	var out []core.Expense
	for _, e := range s.Expenses() {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

func (s *BudgetSynchronizer) CategorySpent(c core.BudgetCategory) core.Money {
	var total core.Money
	for _, e := range s.CategoryExpenses(c) {
		total = total.Add(e.Amount)
	}
	return total
}

func (s *BudgetSynchronizer) CategoryPaid(c core.BudgetCategory) core.Money {
	var total core.Money
	for _, e := range s.CategoryExpenses(c) {
		if e.IsPaid {
			total = total.Add(e.Amount)
		}
	}
	return total
}

func (s *BudgetSynchronizer) SetTotalBudget(ctx context.Context, total core.Money) (core.Budget, error) {
	couple, _, err := s.writer()
	if err != nil {
		return core.Budget{}, err
	}
	if err := total.Validate(); err != nil {
		return core.Budget{}, err
	}
	var b core.Budget
	err = s.observe(ctx, "upsert_budget", func(ctx context.Context) error {
		b, err = s.store.UpsertBudget(ctx, couple, total)
		return err
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("set total budget: %w", err)
	}
	s.budget.Replace(couple, []core.Budget{b})
	s.logger.InfoContext(ctx, "Total budget set", applog.FieldCoupleID, couple, applog.FieldAmount, total.Cents)
	return b, nil
}

// UpsertCategoryBudget sets a category's estimate, placing it at the
// category's default sort position.
func (s *BudgetSynchronizer) UpsertCategoryBudget(ctx context.Context, category core.BudgetCategory, estimated core.Money) (core.CategoryAllocation, error) {
	couple, _, err := s.writer()
	if err != nil {
		return core.CategoryAllocation{}, err
	}
	order := category.DefaultSortOrder()
	if order < 0 {
		return core.CategoryAllocation{}, fmt.Errorf("%w: %q", core.ErrUnknownCategory, category)
	}
	if err := estimated.Validate(); err != nil {
		return core.CategoryAllocation{}, err
	}
	var a core.CategoryAllocation
	err = s.observe(ctx, "upsert_category", func(ctx context.Context) error {
		a, err = s.store.UpsertCategory(ctx, couple, category, estimated, order)
		return err
	})
	if err != nil {
		return core.CategoryAllocation{}, fmt.Errorf("upsert category budget: %w", err)
	}
	s.categories.Insert(couple, a)
	return a, nil
}

func (s *BudgetSynchronizer) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	couple, user, err := s.writer()
	if err != nil {
		return core.Expense{}, err
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	var created core.Expense
	err = s.observe(ctx, applog.OpCreate, func(ctx context.Context) error {
		created, err = s.store.InsertExpense(ctx, couple, user, e)
		return err
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.expenses.Insert(couple, created)
	s.logger.InfoContext(ctx, "Expense created",
		applog.FieldRecordID, created.ID,
		applog.FieldCategory, string(created.Category),
		applog.FieldAmount, created.Amount.Cents)
	return created, nil
}

func (s *BudgetSynchronizer) UpdateExpense(ctx context.Context, id string, p core.ExpensePatch) (core.Expense, error) {
	couple, _, err := s.writer()
	if err != nil {
		return core.Expense{}, err
	}
	if err := p.Validate(); err != nil {
		return core.Expense{}, err
	}
	var updated core.Expense
	err = s.observe(ctx, applog.OpUpdate, func(ctx context.Context) error {
		updated, err = s.store.UpdateExpense(ctx, couple, id, p)
		return err
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}
	s.expenses.Update(couple, updated)
	return updated, nil
}

func (s *BudgetSynchronizer) RemoveExpense(ctx context.Context, id string) error {
	couple, _, err := s.writer()
	if err != nil {
		return err
	}
	err = s.observe(ctx, applog.OpDelete, func(ctx context.Context) error {
		return s.store.DeleteExpense(ctx, couple, id)
	})
	if err != nil {
		return fmt.Errorf("remove expense %s: %w", id, err)
	}
	s.expenses.Remove(couple, id)
	return nil
}

// ToggleExpensePaid flips the paid flag of a mirrored expense. An expense
// that is not mirrored is left alone.
func (s *BudgetSynchronizer) ToggleExpensePaid(ctx context.Context, id string) error {
	couple, _, err := s.writer()
	if err != nil {
		return err
	}
	e, ok := s.expenses.Find(couple, id)
	if !ok {
		return nil
	}
	paid := !e.IsPaid
	_, err = s.UpdateExpense(ctx, id, core.ExpensePatch{IsPaid: &paid})
	return err
}
