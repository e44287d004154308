package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"famspese/internal/core"
	"famspese/internal/sheets"
)

func TestExporterAppend(t *testing.T) {
	e := New()
	row := sheets.PaymentRow{
		PaymentID:   "p1",
		Date:        core.NewDate(2026, 2, 3),
		Description: "groceries",
		Amount:      decimal.RequireFromString("12.5"),
		PaymentType: core.Shared,
	}

	ref, err := e.AppendPayment(context.Background(), row)
	if err != nil || ref != "mem:1" {
		t.Fatalf("AppendPayment = %q, %v", ref, err)
	}
	if _, err := e.AppendPayment(context.Background(), sheets.PaymentRow{}); err == nil {
		t.Fatal("row without payment id should be rejected")
	}

	rows := e.Rows()
	if len(rows) != 1 || rows[0].PaymentID != "p1" {
		t.Fatalf("Rows = %+v", rows)
	}
	if got := rows[0].Values(); got[0] != "2026-02-03" || got[2] != "12.50" || got[6] != "shared" {
		t.Errorf("Values = %v", got)
	}
}
