package core

import "github.com/shopspring/decimal"

const (
	StatusPending   PaymentStatus = "pending"
	StatusPartial   PaymentStatus = "partial"
	StatusCompleted PaymentStatus = "completed"
)

var hundred = decimal.NewFromInt(100)

type (
	PaymentStatus string

	// Progress describes how much of a planned expense has been paid,
	// by anyone. It is always derived from the linked payments.
	Progress struct {
		TotalPaid            decimal.Decimal
		Remaining            decimal.Decimal
		Status               PaymentStatus
		CompletionPercentage float64
	}
)

// ComputeProgress sums the payments linked to the entry and classifies it.
// Payments linked to other entries are ignored.
func ComputeProgress(e PlannedExpense, payments []Payment) Progress {
	paid := decimal.Zero
	for _, pay := range payments {
		if pay.PlannedExpenseID == e.ID {
			paid = paid.Add(pay.Amount)
		}
	}

	p := Progress{TotalPaid: paid, Remaining: e.Amount.Sub(paid)}
	if p.Remaining.IsNegative() {
		p.Remaining = decimal.Zero
	}

	switch {
	case !paid.IsPositive():
		p.Status = StatusPending
	case paid.LessThan(e.Amount):
		p.Status = StatusPartial
	default:
		p.Status = StatusCompleted
	}

	if e.Amount.IsPositive() {
		pct := decimal.Min(paid.Div(e.Amount).Mul(hundred), hundred)
		p.CompletionPercentage = pct.Round(1).InexactFloat64()
	}
	return p
}

// PlanSummary aggregates a plan for one requesting member.
type PlanSummary struct {
	PlanID          string
	MyAssignedTotal decimal.Decimal
	MemberTotals    map[string]decimal.Decimal
	TotalPlanned    decimal.Decimal
	TotalPaid       decimal.Decimal
	TotalStandalone decimal.Decimal
	RemainingBudget decimal.NullDecimal
	BudgetProgress  float64
	CompletedCount  int
	PlannedCount    int
}
