// Package share derives how much of an expense is attributed to a member.
//
// Nothing here is cached or written back: every value is recomputed from the
// payments currently in the store, so callers may invoke the calculator
// concurrently and always observe committed writes.
package share

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"famspese/internal/core"
)

// Entry is the split-relevant view of a planned expense or of a stand-alone
// payment.
type Entry struct {
	ID              string
	Amount          decimal.Decimal
	PaymentType     core.PaymentType
	DesignatedPayer string
	Fallback        decimal.NullDecimal

	// linked is false for stand-alone payments, which can never have
	// payments of their own.
	linked bool
}

// FromPlanned builds the entry of a planned expense.
func FromPlanned(e core.PlannedExpense) Entry {
	return Entry{
		ID:              e.ID,
		Amount:          e.Amount,
		PaymentType:     e.PaymentType,
		DesignatedPayer: e.DesignatedPayer,
		Fallback:        e.StaticShareFallback,
		linked:          true,
	}
}

// FromStandalone builds the entry of a payment using its own split terms.
func FromStandalone(p core.Payment) Entry {
	return Entry{
		ID:              p.ID,
		Amount:          p.Amount,
		PaymentType:     p.PaymentType,
		DesignatedPayer: p.DesignatedPayer,
		Fallback:        p.MyShareAmount,
	}
}

type Calculator struct {
	records RecordReader
}

func NewCalculator(records RecordReader) *Calculator {
	return &Calculator{records: records}
}

// ComputeShare returns memberID's share of the entry:
//
//   - individual: the full amount for the designated payer, zero otherwise;
//   - shared: always zero;
//   - partial: the sum of the member's linked payments when positive (never
//     capped at the amount), else the static fallback when set, else half of
//     the amount.
//
// An empty memberID always yields zero. The only error is a failed store read.
func (c *Calculator) ComputeShare(ctx context.Context, e Entry, memberID string) (decimal.Decimal, error) {
	if memberID == "" {
		return decimal.Zero, nil
	}

	switch e.PaymentType {
	case core.Individual:
		if e.DesignatedPayer == memberID {
			return e.Amount, nil
		}
		return decimal.Zero, nil
	case core.Partial:
		paid, err := c.paidBy(ctx, e, memberID)
		if err != nil {
			return decimal.Zero, err
		}
		if paid.IsPositive() {
			return paid, nil
		}
		if e.Fallback.Valid {
			return e.Fallback.Decimal, nil
		}
		return core.HalfOf(e.Amount), nil
	default:
		return decimal.Zero, nil
	}
}

func (c *Calculator) paidBy(ctx context.Context, e Entry, memberID string) (decimal.Decimal, error) {
	if !e.linked || e.ID == "" {
		return decimal.Zero, nil
	}
	records, err := c.records.PaymentsByEntryAndMember(ctx, e.ID, memberID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read payments of %s: %w", e.ID, err)
	}
	paid := decimal.Zero
	for _, r := range records {
		// Only the member's payments to this entry count.
		if r.PlannedExpenseID != e.ID || r.PayerID != memberID {
			continue
		}
		paid = paid.Add(r.Amount)
	}
	return paid, nil
}

// OtherShare is what remains of the amount once myShare is taken out. It is
// negative when the member overpaid.
func OtherShare(e Entry, myShare decimal.Decimal) decimal.Decimal {
	return e.Amount.Sub(myShare)
}
