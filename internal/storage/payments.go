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

const paymentColumns = `id, amount, payer_id, planned_expense_id, plan_id, description, date, payment_type,
	designated_payer, my_share_amount, category_id, subcategory_id, payment_method, created_at, exported_at`

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p *core.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Amount, p.PayerID, nullString(p.PlannedExpenseID), nullString(p.PlanID), p.Description,
		p.Date.String(), string(p.PaymentType), nullString(p.DesignatedPayer), p.MyShareAmount,
		nullID(p.CategoryID), nullID(p.SubcategoryID), string(p.PaymentMethod), p.CreatedAt.Unix(),
		nullTime(p.ExportedAt))
	if err != nil {
		return fmt.Errorf("create payment: %w", mapError(err))
	}

	slog.InfoContext(ctx, "Payment saved to SQLite",
		"id", p.ID,
		"payer_id", p.PayerID,
		"planned_expense_id", p.PlannedExpenseID,
		"amount", p.Amount.StringFixed(2))
	return nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment %s: %w", id, mapError(err))
	}
	return p, nil
}

// UpdatePayment rewrites the payment and clears its export mark so the
// change is synced again.
func (r *SQLiteRepository) UpdatePayment(ctx context.Context, p core.Payment) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET amount = ?, payer_id = ?, planned_expense_id = ?, plan_id = ?, description = ?,
			date = ?, payment_type = ?, designated_payer = ?, my_share_amount = ?, category_id = ?,
			subcategory_id = ?, payment_method = ?, exported_at = NULL
		 WHERE id = ?`,
		p.Amount, p.PayerID, nullString(p.PlannedExpenseID), nullString(p.PlanID), p.Description,
		p.Date.String(), string(p.PaymentType), nullString(p.DesignatedPayer), p.MyShareAmount,
		nullID(p.CategoryID), nullID(p.SubcategoryID), string(p.PaymentMethod), p.ID)
	if err != nil {
		return fmt.Errorf("update payment %s: %w", p.ID, mapError(err))
	}
	if err := ensureAffected(res); err != nil {
		return fmt.Errorf("update payment %s: %w", p.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment %s: %w", id, err)
	}
	if err := ensureAffected(res); err != nil {
		return fmt.Errorf("delete payment %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Payment deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) PaymentsByEntryAndMember(ctx context.Context, entryID, memberID string) ([]core.Payment, error) {
	out, err := r.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE planned_expense_id = ? AND payer_id = ? ORDER BY date, created_at`,
		entryID, memberID)
	if err != nil {
		return nil, fmt.Errorf("payments of %s on %s: %w", memberID, entryID, err)
	}
	return out, nil
}

func (r *SQLiteRepository) StandalonePaymentsByPlan(ctx context.Context, planID string) ([]core.Payment, error) {
	out, err := r.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE plan_id = ? AND planned_expense_id IS NULL ORDER BY date, created_at`,
		planID)
	if err != nil {
		return nil, fmt.Errorf("stand-alone payments of plan %s: %w", planID, err)
	}
	return out, nil
}

func (r *SQLiteRepository) PaymentsByEntry(ctx context.Context, entryID string) ([]core.Payment, error) {
	out, err := r.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE planned_expense_id = ? ORDER BY date, created_at`, entryID)
	if err != nil {
		return nil, fmt.Errorf("payments of %s: %w", entryID, err)
	}
	return out, nil
}

// PaymentsByEntries groups the payments of several planned expenses in a
// single query. Entries without payments are absent from the map.
func (r *SQLiteRepository) PaymentsByEntries(ctx context.Context, entryIDs []string) (map[string][]core.Payment, error) {
	out := make(map[string][]core.Payment, len(entryIDs))
	if len(entryIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(entryIDs))
	for i, id := range entryIDs {
		args[i] = id
	}
	payments, err := r.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE planned_expense_id IN (`+placeholders(len(entryIDs))+`)
		 ORDER BY date, created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("batch payments: %w", err)
	}
	for _, p := range payments {
		out[p.PlannedExpenseID] = append(out[p.PlannedExpenseID], p)
	}
	return out, nil
}

func (r *SQLiteRepository) PaymentsByPlan(ctx context.Context, planID string) ([]core.Payment, error) {
	out, err := r.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE plan_id = ? ORDER BY date DESC, created_at DESC`, planID)
	if err != nil {
		return nil, fmt.Errorf("payments of plan %s: %w", planID, err)
	}
	return out, nil
}

func (r *SQLiteRepository) PaymentsByPayer(ctx context.Context, payerID string) ([]core.Payment, error) {
	out, err := r.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE payer_id = ? ORDER BY date DESC, created_at DESC`, payerID)
	if err != nil {
		return nil, fmt.Errorf("payments of payer %s: %w", payerID, err)
	}
	return out, nil
}

// UnexportedPayments returns up to limit payments not yet synced to the
// spreadsheet, oldest first.
func (r *SQLiteRepository) UnexportedPayments(ctx context.Context, limit int) ([]core.Payment, error) {
	out, err := r.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE exported_at IS NULL ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("unexported payments: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkPaymentExported(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payments SET exported_at = ? WHERE id = ?`, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("mark payment %s exported: %w", id, err)
	}
	if err := ensureAffected(res); err != nil {
		return fmt.Errorf("mark payment %s exported: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) queryPayments(ctx context.Context, query string, args ...any) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(s scanner) (core.Payment, error) {
	var (
		p                        core.Payment
		entry, plan, payer, date sql.NullString
		paymentType, method      string
		category, subcategory    sql.NullInt64
		created, exported        sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Amount, &p.PayerID, &entry, &plan, &p.Description, &date, &paymentType,
		&payer, &p.MyShareAmount, &category, &subcategory, &method, &created, &exported); err != nil {
		return core.Payment{}, err
	}
	var err error
	if p.Date, err = parseDate(date); err != nil {
		return core.Payment{}, err
	}
	p.PlannedExpenseID = entry.String
	p.PlanID = plan.String
	p.PaymentType = core.PaymentType(paymentType)
	p.DesignatedPayer = payer.String
	p.CategoryID = category.Int64
	p.SubcategoryID = subcategory.Int64
	p.PaymentMethod = core.PaymentMethod(method)
	p.CreatedAt = unixTime(created)
	p.ExportedAt = unixTime(exported)
	return p, nil
}
