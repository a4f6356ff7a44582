package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/storage/memory"
)

func TestBudgetAggregates(t *testing.T) {
	ctx := context.Background()
	store := memory.New().WithClock(ticking())
	s := NewBudgetSynchronizer(store, Deps{Session: signedIn("c1", "u1")})

	_, err := s.SetTotalBudget(ctx, core.FromMajor(1000))
	require.NoError(t, err)
	_, err = s.UpsertCategoryBudget(ctx, core.BudgetPhotographyVideo, core.FromMajor(200))
	require.NoError(t, err)
	_, err = s.UpsertCategoryBudget(ctx, core.BudgetVenueCatering, core.FromMajor(100))
	require.NoError(t, err)
	_, err = s.CreateExpense(ctx, core.NewExpense{Category: core.BudgetVenueCatering, VendorName: "Villa", Amount: core.FromMajor(50), IsPaid: true})
	require.NoError(t, err)
	unpaid, err := s.CreateExpense(ctx, core.NewExpense{Category: core.BudgetPhotographyVideo, VendorName: "Studio", Amount: core.FromMajor(30)})
	require.NoError(t, err)

	s.FetchAll(ctx)
	require.Empty(t, s.Status().Err)

	sum := s.Summary()
	assert.Equal(t, core.FromMajor(1000), sum.Total)
	assert.Equal(t, core.FromMajor(300), sum.Estimated)
	assert.Equal(t, core.FromMajor(80), sum.Spent)
	assert.Equal(t, core.FromMajor(50), sum.Paid)
	assert.Equal(t, core.FromMajor(920), sum.Remaining)
	assert.Equal(t, 8, sum.Progress)

	cats := s.Categories()
	require.Len(t, cats, 2)
	assert.Equal(t, core.BudgetVenueCatering, cats[0].Category, "allocations follow sort order")

	exps := s.Expenses()
	require.Len(t, exps, 2)
	assert.Equal(t, unpaid.ID, exps[0].ID, "expenses are newest first")

	assert.Equal(t, core.FromMajor(200), s.CategoryEstimated(core.BudgetPhotographyVideo))
	assert.Equal(t, core.FromMajor(30), s.CategorySpent(core.BudgetPhotographyVideo))
	assert.Equal(t, core.Money{}, s.CategoryPaid(core.BudgetPhotographyVideo))
	assert.Len(t, s.CategoryExpenses(core.BudgetVenueCatering), 1)
	assert.Len(t, s.Breakdown(), len(core.BudgetCategories))

	require.NoError(t, s.ToggleExpensePaid(ctx, unpaid.ID))
	assert.Equal(t, core.FromMajor(80), s.Summary().Paid)
	require.NoError(t, s.ToggleExpensePaid(ctx, "not-mirrored"))

	require.NoError(t, s.RemoveExpense(ctx, unpaid.ID))
	for _, e := range s.Expenses() {
		assert.NotEqual(t, unpaid.ID, e.ID)
	}
	assert.Equal(t, core.FromMajor(50), s.Summary().Spent)
}

func TestBudgetZeroTotalHasZeroProgress(t *testing.T) {
	ctx := context.Background()
	s := NewBudgetSynchronizer(memory.New(), Deps{Session: signedIn("c1", "u1")})
	s.FetchAll(ctx)
	_, err := s.CreateExpense(ctx, core.NewExpense{Category: core.BudgetMiscellaneous, VendorName: "Misc", Amount: core.FromMajor(10)})
	require.NoError(t, err)

	assert.Nil(t, s.Budget())
	assert.Equal(t, 0, s.Summary().Progress)
	assert.Equal(t, core.FromMajor(-10), s.Summary().Remaining)
}

func TestBudgetPartialFetchFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyBudget{BudgetStore: memory.New().WithClock(ticking())}
	s := NewBudgetSynchronizer(store, Deps{Session: signedIn("c1", "u1")})

	_, err := s.CreateExpense(ctx, core.NewExpense{Category: core.BudgetMiscellaneous, VendorName: "Cake", Amount: core.FromMajor(40)})
	require.NoError(t, err)
	s.FetchAll(ctx)
	require.Len(t, s.Expenses(), 1)

	_, err = store.UpsertBudget(ctx, "c1", core.FromMajor(500))
	require.NoError(t, err)
	store.failExpenses.Store(true)
	s.FetchAll(ctx)

	st := s.Status()
	assert.False(t, st.Loading)
	assert.Contains(t, st.Err, errBackend.Error())
	require.NotNil(t, s.Budget(), "succeeding reads still apply")
	assert.Equal(t, core.FromMajor(500), s.Budget().Total)
	assert.Len(t, s.Expenses(), 1, "failed read keeps the previous mirror")

	store.failExpenses.Store(false)
	s.FetchAll(ctx)
	assert.Empty(t, s.Status().Err)
}

func TestBudgetFetchReportsEveryFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyBudget{BudgetStore: memory.New().WithClock(ticking())}
	s := NewBudgetSynchronizer(store, Deps{Session: signedIn("c1", "u1")})

	store.failCategories.Store(true)
	store.failExpenses.Store(true)
	s.FetchAll(ctx)

	st := s.Status()
	assert.False(t, st.Loading)
	assert.Contains(t, st.Err, "fetch categories")
	assert.Contains(t, st.Err, "fetch expenses")
	assert.NotContains(t, st.Err, "fetch budget")
}

func TestBudgetWithoutTenant(t *testing.T) {
	ctx := context.Background()
	// A nil store panics on use, proving no remote call is made.
	s := NewBudgetSynchronizer(nil, Deps{Session: &fakeSession{s: core.Session{}}})

	s.FetchAll(ctx)
	assert.Empty(t, s.Expenses())
	assert.Nil(t, s.Budget())

	_, err := s.CreateExpense(ctx, core.NewExpense{Category: core.BudgetMiscellaneous, VendorName: "x", Amount: core.FromMajor(1)})
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	_, err = s.SetTotalBudget(ctx, core.FromMajor(1))
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.ErrorIs(t, s.RemoveExpense(ctx, "e1"), core.ErrNotAuthenticated)
	assert.ErrorIs(t, s.ToggleExpensePaid(ctx, "e1"), core.ErrNotAuthenticated)
}

func TestBudgetWriteErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	s := NewBudgetSynchronizer(memory.New(), Deps{Session: signedIn("c1", "u1")})

	_, err := s.UpdateExpense(ctx, "missing", core.ExpensePatch{})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.RemoveExpense(ctx, "missing"), core.ErrNotFound)

	_, err = s.UpsertCategoryBudget(ctx, core.BudgetCategory("cake"), core.FromMajor(1))
	assert.ErrorIs(t, err, core.ErrUnknownCategory)
}

func TestBudgetMirrorFollowsTenant(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sess := signedIn("c1", "u1")
	s := NewBudgetSynchronizer(store, Deps{Session: sess})

	_, err := s.CreateExpense(ctx, core.NewExpense{Category: core.BudgetMiscellaneous, VendorName: "Cake", Amount: core.FromMajor(40)})
	require.NoError(t, err)
	s.FetchAll(ctx)
	require.Len(t, s.Expenses(), 1)

	sess.set(core.Authenticated(core.Membership{CoupleID: "c2", UserID: "u2", DisplayName: "Luca"}))
	assert.Empty(t, s.Expenses(), "another couple never sees the mirror")
	_, err = s.CreateExpense(ctx, core.NewExpense{Category: core.BudgetMiscellaneous, VendorName: "Band", Amount: core.FromMajor(5)})
	require.NoError(t, err)

	sess.set(core.Authenticated(core.Membership{CoupleID: "c1", UserID: "u1", DisplayName: "Anna"}))
	require.Len(t, s.Expenses(), 1)
	assert.Equal(t, "Cake", s.Expenses()[0].VendorName)
}
