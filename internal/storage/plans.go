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

const planColumns = `id, name, description, plan_type, start_date, end_date, total_budget,
	is_active, is_shared, is_hidden, auto_generated, created_by, created_at`

// CreatePlan inserts the plan and its members. The creator is always a member.
func (r *SQLiteRepository) CreatePlan(ctx context.Context, p *core.SpendingPlan) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.CreatedBy != "" && !p.HasMember(p.CreatedBy) {
		p.MemberIDs = append([]string{p.CreatedBy}, p.MemberIDs...)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create plan: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO spending_plans (`+planColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, string(p.PlanType), p.StartDate.String(), p.EndDate.String(), p.TotalBudget,
		boolInt(p.IsActive), boolInt(p.IsShared), boolInt(p.IsHidden), boolInt(p.AutoGenerated),
		p.CreatedBy, p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("create plan: %w", mapError(err))
	}

	for _, memberID := range p.MemberIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO plan_members (plan_id, member_id) VALUES (?, ?)`, p.ID, memberID); err != nil {
			return fmt.Errorf("add plan member %s: %w", memberID, mapError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create plan: %w", err)
	}

	slog.InfoContext(ctx, "Spending plan saved to SQLite",
		"id", p.ID,
		"name", p.Name,
		"members", len(p.MemberIDs))
	return nil
}

func (r *SQLiteRepository) GetPlan(ctx context.Context, id string) (core.SpendingPlan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM spending_plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if err != nil {
		return core.SpendingPlan{}, fmt.Errorf("get plan %s: %w", id, mapError(err))
	}
	if p.MemberIDs, err = r.planMembers(ctx, id); err != nil {
		return core.SpendingPlan{}, err
	}
	return p, nil
}

// UpdatePlan rewrites the plan's own fields; membership is managed by AddPlanMember.
func (r *SQLiteRepository) UpdatePlan(ctx context.Context, p core.SpendingPlan) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE spending_plans SET name = ?, description = ?, plan_type = ?, start_date = ?, end_date = ?,
			total_budget = ?, is_active = ?, is_shared = ?, is_hidden = ?
		 WHERE id = ?`,
		p.Name, p.Description, string(p.PlanType), p.StartDate.String(), p.EndDate.String(), p.TotalBudget,
		boolInt(p.IsActive), boolInt(p.IsShared), boolInt(p.IsHidden), p.ID)
	if err != nil {
		return fmt.Errorf("update plan %s: %w", p.ID, mapError(err))
	}
	if err := ensureAffected(res); err != nil {
		return fmt.Errorf("update plan %s: %w", p.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeletePlan(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM spending_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete plan %s: %w", id, err)
	}
	if err := ensureAffected(res); err != nil {
		return fmt.Errorf("delete plan %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Spending plan deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) ListPlansForMember(ctx context.Context, memberID string, includeHidden bool) ([]core.SpendingPlan, error) {
	query := `SELECT ` + planColumns + ` FROM spending_plans
		WHERE id IN (SELECT plan_id FROM plan_members WHERE member_id = ?)`
	if !includeHidden {
		query += ` AND is_hidden = 0`
	}
	query += ` ORDER BY start_date DESC, name`

	plans, err := r.queryPlans(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("list plans for member %s: %w", memberID, err)
	}
	return plans, nil
}

func (r *SQLiteRepository) FindMonthlyPlan(ctx context.Context, year, month int, memberIDs []string) (core.SpendingPlan, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	plans, err := r.queryPlans(ctx,
		`SELECT `+planColumns+` FROM spending_plans
		 WHERE plan_type = 'monthly' AND substr(start_date, 1, 8) = ?
		 ORDER BY created_at, id`, prefix)
	if err != nil {
		return core.SpendingPlan{}, fmt.Errorf("find monthly plan %s: %w", prefix, err)
	}
	for _, p := range plans {
		if p.HasSameMembers(memberIDs) {
			return p, nil
		}
	}
	return core.SpendingPlan{}, fmt.Errorf("find monthly plan %s: %w", prefix, ErrNotFound)
}

func (r *SQLiteRepository) AddPlanMember(ctx context.Context, planID, memberID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO plan_members (plan_id, member_id) VALUES (?, ?)`, planID, memberID)
	if err != nil {
		return fmt.Errorf("add member %s to plan %s: %w", memberID, planID, mapError(err))
	}
	return nil
}

// queryPlans reads every plan row first, then loads memberships, so no two
// statements hold connections at once.
func (r *SQLiteRepository) queryPlans(ctx context.Context, query string, args ...any) ([]core.SpendingPlan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var plans []core.SpendingPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range plans {
		if plans[i].MemberIDs, err = r.planMembers(ctx, plans[i].ID); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

func (r *SQLiteRepository) planMembers(ctx context.Context, planID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT member_id FROM plan_members WHERE plan_id = ? ORDER BY member_id`, planID)
	if err != nil {
		return nil, fmt.Errorf("get plan members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan plan member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanPlan(s scanner) (core.SpendingPlan, error) {
	var (
		p                               core.SpendingPlan
		planType                        string
		start, end                      sql.NullString
		active, shared, hidden, autoGen int
		created                         sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &planType, &start, &end, &p.TotalBudget,
		&active, &shared, &hidden, &autoGen, &p.CreatedBy, &created); err != nil {
		return core.SpendingPlan{}, err
	}
	var err error
	if p.StartDate, err = parseDate(start); err != nil {
		return core.SpendingPlan{}, err
	}
	if p.EndDate, err = parseDate(end); err != nil {
		return core.SpendingPlan{}, err
	}
	p.PlanType = core.PlanType(planType)
	p.IsActive = active == 1
	p.IsShared = shared == 1
	p.IsHidden = hidden == 1
	p.AutoGenerated = autoGen == 1
	p.CreatedAt = unixTime(created)
	return p, nil
}
