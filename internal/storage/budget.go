package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
)

const (
	budgetColumns   = "id, couple_id, total_budget, created_at, updated_at"
	categoryColumns = "id, couple_id, category, estimated_amount, sort_order, created_at, updated_at"
	expenseColumns  = "id, couple_id, category, vendor_name, description, amount, is_paid, date, created_by, created_at, updated_at"
)

func scanBudget(row rowScanner) (core.Budget, error) {
	var b core.Budget
	err := row.Scan(&b.ID, &b.CoupleID, &b.Total.Cents, timeText{&b.CreatedAt}, timeText{&b.UpdatedAt})
	return b, err
}

func scanCategory(row rowScanner) (core.CategoryAllocation, error) {
	var c core.CategoryAllocation
	var category string
	err := row.Scan(&c.ID, &c.CoupleID, &category, &c.Estimated.Cents, &c.SortOrder, timeText{&c.CreatedAt}, timeText{&c.UpdatedAt})
	c.Category = core.BudgetCategory(category)
	return c, err
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e        core.Expense
		category string
		date     core.Date
	)
	err := row.Scan(&e.ID, &e.CoupleID, &category, &e.VendorName, &e.Description, &e.Amount.Cents,
		&e.IsPaid, &date, &e.CreatedBy, timeText{&e.CreatedAt}, timeText{&e.UpdatedAt})
	e.Category = core.BudgetCategory(category)
	if !date.IsEmpty() {
		e.Date = &date
	}
	return e, err
}

func (r *Repository) GetBudget(ctx context.Context, coupleID string) (*core.Budget, error) {
	row := r.db.QueryRowContext(ctx, r.q("SELECT "+budgetColumns+" FROM budgets WHERE couple_id = ?"), coupleID)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &b, nil
}

func (r *Repository) UpsertBudget(ctx context.Context, coupleID string, total core.Money) (core.Budget, error) {
	now := r.timestamp()
	row := r.db.QueryRowContext(ctx, r.q(`INSERT INTO budgets (id, couple_id, total_budget, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (couple_id) DO UPDATE SET total_budget = excluded.total_budget, updated_at = excluded.updated_at
		RETURNING `+budgetColumns),
		uuid.NewString(), coupleID, total.Cents, now, now)
	b, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", mapError(err))
	}
	r.logger.DebugContext(ctx, "Budget total saved", "couple_id", coupleID, "amount_cents", total.Cents)
	return b, nil
}

func (r *Repository) ListCategories(ctx context.Context, coupleID string) ([]core.CategoryAllocation, error) {
	rows, err := r.db.QueryContext(ctx, r.q("SELECT "+categoryColumns+" FROM budget_categories WHERE couple_id = ? ORDER BY sort_order ASC, category ASC"), coupleID)
	if err != nil {
		return nil, fmt.Errorf("list budget categories: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryAllocation{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertCategory(ctx context.Context, coupleID string, category core.BudgetCategory, estimated core.Money, sortOrder int) (core.CategoryAllocation, error) {
	now := r.timestamp()
	row := r.db.QueryRowContext(ctx, r.q(`INSERT INTO budget_categories (id, couple_id, category, estimated_amount, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (couple_id, category) DO UPDATE SET
			estimated_amount = excluded.estimated_amount,
			sort_order = excluded.sort_order,
			updated_at = excluded.updated_at
		RETURNING `+categoryColumns),
		uuid.NewString(), coupleID, string(category), estimated.Cents, sortOrder, now, now)
	c, err := scanCategory(row)
	if err != nil {
		return core.CategoryAllocation{}, fmt.Errorf("upsert budget category: %w", mapError(err))
	}
	return c, nil
}

func (r *Repository) ListExpenses(ctx context.Context, coupleID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, r.q("SELECT "+expenseColumns+" FROM budget_expenses WHERE couple_id = ? ORDER BY created_at DESC, id DESC"), coupleID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) InsertExpense(ctx context.Context, coupleID, createdBy string, e core.NewExpense) (core.Expense, error) {
	now := r.timestamp()
	row := r.db.QueryRowContext(ctx, r.q(`INSERT INTO budget_expenses
		(id, couple_id, category, vendor_name, description, amount, is_paid, date, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+expenseColumns),
		uuid.NewString(), coupleID, string(e.Category), e.VendorName, e.Description, e.Amount.Cents,
		e.IsPaid, nullableDate(e.Date), createdBy, now, now)
	out, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", mapError(err))
	}
	r.logger.DebugContext(ctx, "Expense saved", "couple_id", coupleID, "record_id", out.ID, "amount_cents", out.Amount.Cents)
	return out, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, coupleID, id string, p core.ExpensePatch) (core.Expense, error) {
	var (
		sets []string
		args []any
	)
	if p.Category != nil {
		sets, args = append(sets, "category = ?"), append(args, string(*p.Category))
	}
	if p.VendorName != nil {
		sets, args = append(sets, "vendor_name = ?"), append(args, *p.VendorName)
	}
	if p.Description != nil {
		sets, args = append(sets, "description = ?"), append(args, *p.Description)
	}
	if p.Amount != nil {
		sets, args = append(sets, "amount = ?"), append(args, p.Amount.Cents)
	}
	if p.IsPaid != nil {
		sets, args = append(sets, "is_paid = ?"), append(args, *p.IsPaid)
	}
	if p.Date != nil {
		sets, args = append(sets, "date = ?"), append(args, nullableDate(p.Date))
	}
	sets, args = append(sets, "updated_at = ?"), append(args, r.timestamp())
	args = append(args, id, coupleID)

	row := r.db.QueryRowContext(ctx, r.q("UPDATE budget_expenses SET "+strings.Join(sets, ", ")+
		" WHERE id = ? AND couple_id = ? RETURNING "+expenseColumns), args...)
	out, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, mapError(err))
	}
	return out, nil
}

func (r *Repository) DeleteExpense(ctx context.Context, coupleID, id string) error {
	return r.deleteRow(ctx, "budget_expenses", coupleID, id)
}

// deleteRow removes one tenant row; table is always a package constant.
func (r *Repository) deleteRow(ctx context.Context, table, coupleID, id string) error {
	res, err := r.db.ExecContext(ctx, r.q("DELETE FROM "+table+" WHERE id = ? AND couple_id = ?"), id, coupleID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("delete from %s %s: %w", table, id, core.ErrNotFound)
	}
	return nil
}
