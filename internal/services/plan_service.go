package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"famspese/internal/core"
	"famspese/internal/share"
	"famspese/internal/storage"
)

// PlanService manages spending plans and their membership and builds the
// per-member plan summary.
type PlanService struct {
	store storage.Store
	agg   *share.Aggregator
}

func NewPlanService(store storage.Store) *PlanService {
	return &PlanService{store: store, agg: share.NewAggregator(store)}
}

// Aggregator returns the share aggregator backed by the service's store.
func (s *PlanService) Aggregator() *share.Aggregator {
	return s.agg
}

// Authorize loads the plan and checks that memberID belongs to it.
func (s *PlanService) Authorize(ctx context.Context, memberID, planID string) (core.SpendingPlan, error) {
	p, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return core.SpendingPlan{}, err
	}
	if !p.HasMember(memberID) {
		return core.SpendingPlan{}, fmt.Errorf("plan %s: %w", planID, ErrForbidden)
	}
	return p, nil
}

// CreatePlan creates a plan owned by memberID. Every listed member must exist.
func (s *PlanService) CreatePlan(ctx context.Context, memberID string, p core.SpendingPlan) (core.SpendingPlan, error) {
	p.ID = ""
	p.CreatedBy = memberID
	p.AutoGenerated = false
	if p.PlanType == "" {
		p.PlanType = core.PlanCustom
	}
	if err := p.Validate(); err != nil {
		return core.SpendingPlan{}, invalid(err)
	}
	for _, id := range p.MemberIDs {
		if _, err := s.store.GetMember(ctx, id); err != nil {
			return core.SpendingPlan{}, invalid(fmt.Errorf("member %s: %w", id, err))
		}
	}

	if err := s.store.CreatePlan(ctx, &p); err != nil {
		return core.SpendingPlan{}, fmt.Errorf("save plan: %w", err)
	}
	slog.InfoContext(ctx, "Spending plan created",
		"plan_id", p.ID,
		"member_id", memberID,
		"plan_type", p.PlanType,
		"members", len(p.MemberIDs))
	return p, nil
}

func (s *PlanService) GetPlan(ctx context.Context, memberID, planID string) (core.SpendingPlan, error) {
	return s.Authorize(ctx, memberID, planID)
}

// UpdatePlan rewrites the editable fields. Ownership and membership are kept.
func (s *PlanService) UpdatePlan(ctx context.Context, memberID string, p core.SpendingPlan) (core.SpendingPlan, error) {
	existing, err := s.Authorize(ctx, memberID, p.ID)
	if err != nil {
		return core.SpendingPlan{}, err
	}
	p.CreatedBy = existing.CreatedBy
	p.CreatedAt = existing.CreatedAt
	p.MemberIDs = existing.MemberIDs
	p.AutoGenerated = existing.AutoGenerated
	if p.PlanType == "" {
		p.PlanType = existing.PlanType
	}
	if err := p.Validate(); err != nil {
		return core.SpendingPlan{}, invalid(err)
	}
	if err := s.store.UpdatePlan(ctx, p); err != nil {
		return core.SpendingPlan{}, fmt.Errorf("update plan: %w", err)
	}
	return p, nil
}

// DeletePlan removes the plan with everything it owns.
func (s *PlanService) DeletePlan(ctx context.Context, memberID, planID string) error {
	if _, err := s.Authorize(ctx, memberID, planID); err != nil {
		return err
	}
	if err := s.store.DeletePlan(ctx, planID); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	slog.InfoContext(ctx, "Spending plan deleted", "plan_id", planID, "member_id", memberID)
	return nil
}

func (s *PlanService) ListPlans(ctx context.Context, memberID string, includeHidden bool) ([]core.SpendingPlan, error) {
	plans, err := s.store.ListPlansForMember(ctx, memberID, includeHidden)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// AddMember adds the member referenced by id or e-mail address to the plan.
func (s *PlanService) AddMember(ctx context.Context, memberID, planID, ref string) (core.SpendingPlan, error) {
	if _, err := s.Authorize(ctx, memberID, planID); err != nil {
		return core.SpendingPlan{}, err
	}

	ref = strings.TrimSpace(ref)
	var (
		newMember core.Member
		err       error
	)
	if strings.Contains(ref, "@") {
		newMember, err = s.store.GetMemberByEmail(ctx, ref)
	} else {
		newMember, err = s.store.GetMember(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.SpendingPlan{}, invalid(fmt.Errorf("member %q: %w", ref, storage.ErrNotFound))
		}
		return core.SpendingPlan{}, err
	}

	if err := s.store.AddPlanMember(ctx, planID, newMember.ID); err != nil {
		return core.SpendingPlan{}, fmt.Errorf("add member: %w", err)
	}
	slog.InfoContext(ctx, "Plan member added", "plan_id", planID, "member_id", newMember.ID)
	return s.store.GetPlan(ctx, planID)
}

// Summary computes the plan totals as seen by memberID. Member totals come
// from the share aggregator and are recomputed on every call.
func (s *PlanService) Summary(ctx context.Context, memberID, planID string) (core.PlanSummary, error) {
	plan, err := s.Authorize(ctx, memberID, planID)
	if err != nil {
		return core.PlanSummary{}, err
	}

	entries, err := s.store.PlannedExpensesByPlan(ctx, planID)
	if err != nil {
		return core.PlanSummary{}, fmt.Errorf("read planned expenses: %w", err)
	}
	payments, err := s.store.PaymentsByPlan(ctx, planID)
	if err != nil {
		return core.PlanSummary{}, fmt.Errorf("read payments: %w", err)
	}
	mine, err := s.agg.ComputeAssignedTotal(ctx, planID, memberID)
	if err != nil {
		return core.PlanSummary{}, fmt.Errorf("compute assigned total: %w", err)
	}
	totals, err := s.agg.ComputeMemberTotals(ctx, plan)
	if err != nil {
		return core.PlanSummary{}, fmt.Errorf("compute member totals: %w", err)
	}

	sum := core.PlanSummary{
		PlanID:          planID,
		MyAssignedTotal: mine,
		MemberTotals:    totals,
		TotalPlanned:    decimal.Zero,
		TotalPaid:       decimal.Zero,
		TotalStandalone: decimal.Zero,
		PlannedCount:    len(entries),
	}

	byEntry := make(map[string][]core.Payment)
	for _, p := range payments {
		sum.TotalPaid = sum.TotalPaid.Add(p.Amount)
		if p.IsStandalone() {
			sum.TotalStandalone = sum.TotalStandalone.Add(p.Amount)
			continue
		}
		byEntry[p.PlannedExpenseID] = append(byEntry[p.PlannedExpenseID], p)
	}
	for _, e := range entries {
		sum.TotalPlanned = sum.TotalPlanned.Add(e.Amount)
		if core.ComputeProgress(e, byEntry[e.ID]).Status == core.StatusCompleted {
			sum.CompletedCount++
		}
	}

	if plan.TotalBudget.Valid {
		budget := plan.TotalBudget.Decimal
		sum.RemainingBudget = decimal.NewNullDecimal(budget.Sub(sum.TotalPlanned))
		if budget.IsPositive() {
			sum.BudgetProgress = sum.TotalPaid.Div(budget).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
		}
	}
	return sum, nil
}
