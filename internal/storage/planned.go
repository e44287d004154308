package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"famspese/internal/core"
)

const plannedColumns = `id, plan_id, description, amount, payment_type, designated_payer, static_share_fallback,
	category_id, subcategory_id, priority, due_date, notes, is_recurring, total_installments,
	installment_number, parent_recurring_id, recurring_frequency, created_at`

func (r *SQLiteRepository) CreatePlannedExpense(ctx context.Context, e *core.PlannedExpense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO planned_expenses (`+plannedColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PlanID, e.Description, e.Amount, string(e.PaymentType), nullString(e.DesignatedPayer),
		e.StaticShareFallback, nullID(e.CategoryID), nullID(e.SubcategoryID), string(e.Priority),
		nullDate(e.DueDate), e.Notes, boolInt(e.IsRecurring), e.TotalInstallments, e.InstallmentNumber,
		e.ParentRecurringID, string(e.RecurringFrequency), e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("create planned expense: %w", mapError(err))
	}

	slog.InfoContext(ctx, "Planned expense saved to SQLite",
		"id", e.ID,
		"plan_id", e.PlanID,
		"amount", e.Amount.StringFixed(2),
		"payment_type", e.PaymentType)
	return nil
}

func (r *SQLiteRepository) GetPlannedExpense(ctx context.Context, id string) (core.PlannedExpense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+plannedColumns+` FROM planned_expenses WHERE id = ?`, id)
	e, err := scanPlanned(row)
	if err != nil {
		return core.PlannedExpense{}, fmt.Errorf("get planned expense %s: %w", id, mapError(err))
	}
	return e, nil
}

func (r *SQLiteRepository) UpdatePlannedExpense(ctx context.Context, e core.PlannedExpense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE planned_expenses SET description = ?, amount = ?, payment_type = ?, designated_payer = ?,
			static_share_fallback = ?, category_id = ?, subcategory_id = ?, priority = ?, due_date = ?,
			notes = ?, is_recurring = ?, total_installments = ?, installment_number = ?,
			parent_recurring_id = ?, recurring_frequency = ?
		 WHERE id = ?`,
		e.Description, e.Amount, string(e.PaymentType), nullString(e.DesignatedPayer),
		e.StaticShareFallback, nullID(e.CategoryID), nullID(e.SubcategoryID), string(e.Priority),
		nullDate(e.DueDate), e.Notes, boolInt(e.IsRecurring), e.TotalInstallments, e.InstallmentNumber,
		e.ParentRecurringID, string(e.RecurringFrequency), e.ID)
	if err != nil {
		return fmt.Errorf("update planned expense %s: %w", e.ID, mapError(err))
	}
	if err := ensureAffected(res); err != nil {
		return fmt.Errorf("update planned expense %s: %w", e.ID, err)
	}
	return nil
}

// DeletePlannedExpense removes the entry; its payments go with it through
// the ON DELETE CASCADE foreign key.
func (r *SQLiteRepository) DeletePlannedExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM planned_expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete planned expense %s: %w", id, err)
	}
	if err := ensureAffected(res); err != nil {
		return fmt.Errorf("delete planned expense %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Planned expense deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) PlannedExpensesByPlan(ctx context.Context, planID string) ([]core.PlannedExpense, error) {
	out, err := r.queryPlanned(ctx,
		`SELECT `+plannedColumns+` FROM planned_expenses WHERE plan_id = ?
		 ORDER BY due_date IS NULL, due_date, created_at`, planID)
	if err != nil {
		return nil, fmt.Errorf("list planned expenses of plan %s: %w", planID, err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListRecurringPlannedExpenses(ctx context.Context) ([]core.PlannedExpense, error) {
	out, err := r.queryPlanned(ctx,
		`SELECT `+plannedColumns+` FROM planned_expenses
		 WHERE is_recurring = 1 AND total_installments > 1 AND installment_number = 1
		 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list recurring planned expenses: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CountInstallments(ctx context.Context, parentRecurringID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM planned_expenses WHERE parent_recurring_id = ?`, parentRecurringID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count installments of %s: %w", parentRecurringID, err)
	}
	return n, nil
}

func (r *SQLiteRepository) SetParentRecurringID(ctx context.Context, entryID, parentID string) (string, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE planned_expenses SET parent_recurring_id = ?
		 WHERE id = ? AND parent_recurring_id = ''`, parentID, entryID)
	if err != nil {
		return "", fmt.Errorf("set parent recurring id of %s: %w", entryID, mapError(err))
	}
	var current string
	err = r.db.QueryRowContext(ctx,
		`SELECT parent_recurring_id FROM planned_expenses WHERE id = ?`, entryID).Scan(&current)
	if err != nil {
		return "", fmt.Errorf("set parent recurring id of %s: %w", entryID, mapError(err))
	}
	return current, nil
}

func (r *SQLiteRepository) queryPlanned(ctx context.Context, query string, args ...any) ([]core.PlannedExpense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.PlannedExpense
	for rows.Next() {
		e, err := scanPlanned(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanPlanned(s scanner) (core.PlannedExpense, error) {
	var (
		e                     core.PlannedExpense
		paymentType, priority string
		frequency             string
		payer, due            sql.NullString
		category, subcategory sql.NullInt64
		recurring             int
		created               sql.NullInt64
	)
	if err := s.Scan(&e.ID, &e.PlanID, &e.Description, &e.Amount, &paymentType, &payer, &e.StaticShareFallback,
		&category, &subcategory, &priority, &due, &e.Notes, &recurring, &e.TotalInstallments,
		&e.InstallmentNumber, &e.ParentRecurringID, &frequency, &created); err != nil {
		return core.PlannedExpense{}, err
	}
	var err error
	if e.DueDate, err = parseDate(due); err != nil {
		return core.PlannedExpense{}, err
	}
	e.PaymentType = core.PaymentType(paymentType)
	e.DesignatedPayer = payer.String
	e.CategoryID = category.Int64
	e.SubcategoryID = subcategory.Int64
	e.Priority = core.Priority(priority)
	e.IsRecurring = recurring == 1
	e.RecurringFrequency = core.Frequency(frequency)
	e.CreatedAt = unixTime(created)
	return e, nil
}
