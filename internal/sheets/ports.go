// Package sheets exports payments to a spreadsheet.
package sheets

import (
	"context"

	"github.com/shopspring/decimal"

	"famspese/internal/core"
)

// PaymentRow is a payment flattened for a spreadsheet: names instead of ids.
type PaymentRow struct {
	PaymentID   string
	Date        core.Date
	Description string
	Amount      decimal.Decimal
	Payer       string
	Plan        string
	Category    string
	PaymentType core.PaymentType
}

// Values returns the row cells in column order: date, description, amount,
// payer, plan, category, payment type.
func (r PaymentRow) Values() []any {
	return []any{
		r.Date.String(),
		r.Description,
		r.Amount.StringFixed(2),
		r.Payer,
		r.Plan,
		r.Category,
		string(r.PaymentType),
	}
}

// Ports for outbound adapters.
type PaymentExporter interface {
	AppendPayment(ctx context.Context, row PaymentRow) (ref string, err error)
}
