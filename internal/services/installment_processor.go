package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"famspese/internal/core"
	"famspese/internal/metrics"
	"famspese/internal/storage"
)

// InstallmentProcessor expands recurring planned expenses into one planned
// expense per installment, each placed in the monthly plan of its due month
// shared by the same members as the series' own plan.
//
// Generate is serialized within the process; across processes the store
// rejects a second copy of an installment with storage.ErrDuplicate.
type InstallmentProcessor struct {
	mu      sync.Mutex
	store   storage.Store
	metrics *metrics.Metrics
}

func NewInstallmentProcessor(store storage.Store, m *metrics.Metrics) *InstallmentProcessor {
	return &InstallmentProcessor{store: store, metrics: m}
}

// Generate creates the missing installments of the recurring entry entryID
// and returns how many were (or, with dryRun, would be) created. Running it
// again once the series is complete creates nothing.
func (p *InstallmentProcessor) Generate(ctx context.Context, entryID string, dryRun bool) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := p.store.GetPlannedExpense(ctx, entryID)
	if err != nil {
		return 0, fmt.Errorf("get planned expense: %w", err)
	}
	if !e.IsRecurring || e.TotalInstallments <= 1 {
		return 0, fmt.Errorf("planned expense %s: %w", entryID, ErrNotRecurring)
	}
	if e.InstallmentNumber != 1 {
		// Later installments are generated from the first one.
		return 0, nil
	}
	scheduler, err := GetInstallmentScheduler(e.RecurringFrequency)
	if err != nil {
		return 0, err
	}
	template, err := p.store.GetPlan(ctx, e.PlanID)
	if err != nil {
		return 0, fmt.Errorf("get plan: %w", err)
	}

	existing := 1
	if e.ParentRecurringID == "" && dryRun {
		e.ParentRecurringID = uuid.New().String()
	} else {
		if e.ParentRecurringID == "" {
			// Another process may claim the series first; its id wins.
			e.ParentRecurringID, err = p.store.SetParentRecurringID(ctx, e.ID, uuid.New().String())
			if err != nil {
				return 0, fmt.Errorf("set parent recurring id: %w", err)
			}
		}
		existing, err = p.store.CountInstallments(ctx, e.ParentRecurringID)
		if err != nil {
			return 0, fmt.Errorf("count installments: %w", err)
		}
	}

	if existing >= e.TotalInstallments {
		slog.DebugContext(ctx, "All installments already generated",
			"id", e.ID,
			"total", e.TotalInstallments)
		return 0, nil
	}

	created := 0
	for i := existing + 1; i <= e.TotalInstallments; i++ {
		due := scheduler.DueDate(template.StartDate, i)
		plan, found, err := p.monthlyPlan(ctx, due, template, dryRun)
		if err != nil {
			return created, err
		}
		if dryRun {
			slog.InfoContext(ctx, "Would create installment",
				"parent_recurring_id", e.ParentRecurringID,
				"installment", i,
				"due_date", due.String(),
				"plan", planName(due),
				"plan_exists", found)
			created++
			continue
		}

		inst := installment(e, plan, i, due)
		err = p.store.CreatePlannedExpense(ctx, &inst)
		if errors.Is(err, storage.ErrDuplicate) {
			slog.InfoContext(ctx, "Installment already generated",
				"parent_recurring_id", e.ParentRecurringID,
				"installment", i)
			continue
		}
		if err != nil {
			return created, fmt.Errorf("create installment %d/%d: %w", i, e.TotalInstallments, err)
		}
		created++
		slog.InfoContext(ctx, "Created installment",
			"id", inst.ID,
			"parent_recurring_id", e.ParentRecurringID,
			"installment", i,
			"plan_id", plan.ID)
	}

	if !dryRun {
		p.metrics.InstallmentsGenerated(created)
	}
	return created, nil
}

// ProcessAll runs Generate over every first installment of a recurring
// series. Failures of one series do not stop the others.
func (p *InstallmentProcessor) ProcessAll(ctx context.Context, dryRun bool) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	entries, err := p.store.ListRecurringPlannedExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring planned expenses: %w", err)
	}
	slog.InfoContext(ctx, "Processing recurring planned expenses",
		"total", len(entries),
		"dry_run", dryRun)

	var (
		total int
		errs  []error
	)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := p.Generate(ctx, e.ID, dryRun)
		total += n
		if err != nil {
			slog.ErrorContext(ctx, "Failed to generate installments",
				"id", e.ID,
				"description", e.Description,
				"error", err)
			errs = append(errs, fmt.Errorf("%s: %w", e.ID, err))
		}
	}

	slog.InfoContext(ctx, "Installment generation complete",
		"created", total,
		"checked", len(entries),
		"failed", len(errs))
	return total, errors.Join(errs...)
}

// monthlyPlan finds the monthly plan of due's month with the template's
// members, creating it from the template plan when missing. With dryRun nothing is created and found
// reports whether the plan exists.
func (p *InstallmentProcessor) monthlyPlan(ctx context.Context, due core.Date, template core.SpendingPlan, dryRun bool) (core.SpendingPlan, bool, error) {
	plan, err := p.store.FindMonthlyPlan(ctx, due.Year(), int(due.Month()), template.MemberIDs)
	if err == nil {
		return plan, true, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return core.SpendingPlan{}, false, fmt.Errorf("find monthly plan: %w", err)
	}
	if dryRun {
		return core.SpendingPlan{}, false, nil
	}

	first, last := due.MonthBounds()
	name := planName(due)
	plan = core.SpendingPlan{
		Name:          name,
		Description:   "Auto-generated plan for " + name,
		PlanType:      core.PlanMonthly,
		StartDate:     first,
		EndDate:       last,
		TotalBudget:   template.TotalBudget,
		IsActive:      true,
		IsShared:      template.IsShared,
		IsHidden:      true,
		AutoGenerated: true,
		CreatedBy:     template.CreatedBy,
		MemberIDs:     append([]string(nil), template.MemberIDs...),
	}
	if err := p.store.CreatePlan(ctx, &plan); err != nil {
		return core.SpendingPlan{}, false, fmt.Errorf("create monthly plan %s: %w", name, err)
	}
	slog.InfoContext(ctx, "Created monthly plan", "plan_id", plan.ID, "name", name)
	return plan, false, nil
}

func installment(e core.PlannedExpense, plan core.SpendingPlan, n int, due core.Date) core.PlannedExpense {
	inst := core.PlannedExpense{
		PlanID:              plan.ID,
		Description:         fmt.Sprintf("%s (installment %d/%d)", e.Description, n, e.TotalInstallments),
		Amount:              e.Amount,
		PaymentType:         e.PaymentType,
		StaticShareFallback: e.StaticShareFallback,
		CategoryID:          e.CategoryID,
		SubcategoryID:       e.SubcategoryID,
		Priority:            e.Priority,
		DueDate:             due,
		Notes:               fmt.Sprintf("Installment %d of %d, auto-generated", n, e.TotalInstallments),
		IsRecurring:         true,
		TotalInstallments:   e.TotalInstallments,
		InstallmentNumber:   n,
		ParentRecurringID:   e.ParentRecurringID,
		RecurringFrequency:  e.RecurringFrequency,
	}
	if plan.HasMember(e.DesignatedPayer) {
		inst.DesignatedPayer = e.DesignatedPayer
	}
	return inst
}

// planName renders "January 2026".
func planName(d core.Date) string {
	return fmt.Sprintf("%s %d", d.Month(), d.Year())
}
