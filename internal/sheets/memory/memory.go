// Package memory is a PaymentExporter that keeps rows in process, used by
// tests and when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"famspese/internal/sheets"
)

var _ sheets.PaymentExporter = (*Exporter)(nil)

type Exporter struct {
	mu   sync.Mutex
	rows []sheets.PaymentRow
}

func New() *Exporter {
	return &Exporter{}
}

// AppendPayment stores the row and returns a synthetic row reference.
func (e *Exporter) AppendPayment(_ context.Context, row sheets.PaymentRow) (string, error) {
	if row.PaymentID == "" {
		return "", fmt.Errorf("append payment: missing payment id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = append(e.rows, row)
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// Rows returns a copy of the exported rows in append order.
func (e *Exporter) Rows() []sheets.PaymentRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sheets.PaymentRow(nil), e.rows...)
}
