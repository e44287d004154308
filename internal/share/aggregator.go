package share

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"famspese/internal/core"
)

// Aggregator sums member shares over a whole spending plan.
type Aggregator struct {
	plans PlanReader
	calc  *Calculator
}

func NewAggregator(plans PlanReader) *Aggregator {
	return &Aggregator{plans: plans, calc: NewCalculator(plans)}
}

// Calculator exposes the calculator the aggregator uses.
func (a *Aggregator) Calculator() *Calculator {
	return a.calc
}

// planEntries loads the planned expenses and the stand-alone payments of a
// plan as share entries.
func (a *Aggregator) planEntries(ctx context.Context, planID string) ([]Entry, error) {
	var (
		planned    []core.PlannedExpense
		standalone []core.Payment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		planned, err = a.plans.PlannedExpensesByPlan(gctx, planID)
		if err != nil {
			return fmt.Errorf("read planned expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		standalone, err = a.plans.StandalonePaymentsByPlan(gctx, planID)
		if err != nil {
			return fmt.Errorf("read stand-alone payments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(planned)+len(standalone))
	for _, e := range planned {
		entries = append(entries, FromPlanned(e))
	}
	for _, p := range standalone {
		entries = append(entries, FromStandalone(p))
	}
	return entries, nil
}

// ComputeAssignedTotal returns the member's total assigned cost over the plan:
// designated individual entries count in full, partial entries count the
// member's share and shared entries count nothing. Stand-alone payments of the
// plan follow the same rules using their own terms.
func (a *Aggregator) ComputeAssignedTotal(ctx context.Context, planID, memberID string) (decimal.Decimal, error) {
	entries, err := a.planEntries(ctx, planID)
	if err != nil {
		return decimal.Zero, err
	}
	return a.sum(ctx, entries, memberID)
}

// ComputeMemberTotals returns the assigned total of every member of the plan.
func (a *Aggregator) ComputeMemberTotals(ctx context.Context, plan core.SpendingPlan) (map[string]decimal.Decimal, error) {
	entries, err := a.planEntries(ctx, plan.ID)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal, len(plan.MemberIDs))
	for _, memberID := range plan.MemberIDs {
		total, err := a.sum(ctx, entries, memberID)
		if err != nil {
			return nil, err
		}
		totals[memberID] = total
	}
	return totals, nil
}

func (a *Aggregator) sum(ctx context.Context, entries []Entry, memberID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range entries {
		s, err := a.calc.ComputeShare(ctx, e, memberID)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(s)
	}
	return total, nil
}
