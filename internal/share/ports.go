package share

import (
	"context"

	"famspese/internal/core"
)

// Storage reads the share logic depends on.
type (
	RecordReader interface {
		// PaymentsByEntryAndMember returns the payments made by memberID and
		// linked to the planned expense entryID.
		PaymentsByEntryAndMember(ctx context.Context, entryID, memberID string) ([]core.Payment, error)
	}

	PlanReader interface {
		RecordReader
		PlannedExpensesByPlan(ctx context.Context, planID string) ([]core.PlannedExpense, error)
		// StandalonePaymentsByPlan returns the plan's payments that are not
		// linked to any planned expense.
		StandalonePaymentsByPlan(ctx context.Context, planID string) ([]core.Payment, error)
	}
)
