package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"famspese/internal/amqp"
	"famspese/internal/core"
	"famspese/internal/metrics"
	"famspese/internal/sheets"
	"famspese/internal/storage"
)

// ExportWorker copies payments to the spreadsheet and marks them exported.
// The sheet is append-only: an edited payment is pending again and its new
// version lands on a new row next to the old one.
type ExportWorker struct {
	store     storage.Store
	exporter  sheets.PaymentExporter
	metrics   *metrics.Metrics
	batchSize int
}

func NewExportWorker(store storage.Store, exporter sheets.PaymentExporter, m *metrics.Metrics, batchSize int) *ExportWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &ExportWorker{
		store:     store,
		exporter:  exporter,
		metrics:   m,
		batchSize: batchSize,
	}
}

// HandleEvent exports the payment named by a payment event. Payments that
// no longer exist or are already exported are acknowledged without work.
func (w *ExportWorker) HandleEvent(ctx context.Context, e amqp.Event) error {
	if e.Type != amqp.PaymentCreated && e.Type != amqp.PaymentUpdated {
		slog.WarnContext(ctx, "Ignoring event on export queue", "type", e.Type, "entity_id", e.EntityID)
		return nil
	}
	slog.InfoContext(ctx, "Processing export event",
		"id", e.EntityID,
		"type", e.Type,
		"version", e.Version)

	p, err := w.store.GetPayment(ctx, e.EntityID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Payment no longer exists, skipping export", "id", e.EntityID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get payment from storage: %w", err)
	}
	if !p.ExportedAt.IsZero() {
		slog.DebugContext(ctx, "Payment already exported", "id", p.ID)
		return nil
	}
	return w.export(ctx, p)
}

// ProcessPendingExports exports up to one batch of payments that have not
// been exported yet. It is the backup path for lost messages.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupExportCheck runs a larger pending pass to catch up after downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize*5)
}

func (w *ExportWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.store.UnexportedPayments(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending payments: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending payments", "count", len(pending))
	exported := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		if err := w.export(ctx, p); err != nil {
			slog.ErrorContext(ctx, "Failed to export payment", "id", p.ID, "error", err)
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Pending export pass completed",
		"total", len(pending),
		"exported", exported,
		"errors", len(pending)-exported)
	return exported, nil
}

// RunPeriodic runs the startup check and then a pending pass every interval
// until ctx is done.
func (w *ExportWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	if _, err := w.StartupExportCheck(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup export check failed", "error", err)
	}
	return every(ctx, interval, func(ctx context.Context) {
		if _, err := w.ProcessPendingExports(ctx); err != nil {
			slog.ErrorContext(ctx, "Pending export pass failed", "error", err)
		}
	})
}

func (w *ExportWorker) export(ctx context.Context, p core.Payment) error {
	row, err := w.buildRow(ctx, p)
	if err != nil {
		return err
	}

	ref, err := w.exporter.AppendPayment(ctx, row)
	if err != nil {
		w.metrics.ExportFailed()
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.store.MarkPaymentExported(ctx, p.ID); err != nil {
		// The row is written; the next pending pass would export it twice.
		slog.ErrorContext(ctx, "Failed to mark payment as exported", "id", p.ID, "error", err)
		return fmt.Errorf("mark exported: %w", err)
	}
	w.metrics.PaymentExported()

	slog.InfoContext(ctx, "Successfully exported payment",
		"id", p.ID,
		"sheets_ref", ref,
		"amount", p.Amount.StringFixed(2))
	return nil
}

// buildRow resolves the names a spreadsheet reader needs. Lookups that fail
// leave the cell empty (or the raw id for the payer) rather than blocking
// the export.
func (w *ExportWorker) buildRow(ctx context.Context, p core.Payment) (sheets.PaymentRow, error) {
	row := sheets.PaymentRow{
		PaymentID:   p.ID,
		Date:        p.Date,
		Description: p.Description,
		Amount:      p.Amount,
		Payer:       p.PayerID,
		PaymentType: p.PaymentType,
	}

	if m, err := w.store.GetMember(ctx, p.PayerID); err == nil {
		row.Payer = m.DisplayName
		if row.Payer == "" {
			row.Payer = m.Email
		}
	}
	if p.PlanID != "" {
		if plan, err := w.store.GetPlan(ctx, p.PlanID); err == nil {
			row.Plan = plan.Name
		}
	}
	if !p.IsStandalone() {
		e, err := w.store.GetPlannedExpense(ctx, p.PlannedExpenseID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return sheets.PaymentRow{}, fmt.Errorf("get planned expense: %w", err)
		}
		if err == nil {
			row.PaymentType = e.PaymentType
			if row.Description == "" {
				row.Description = e.Description
			}
		}
	}
	row.Category = w.categoryName(ctx, p.CategoryID, p.SubcategoryID)
	return row, nil
}

func (w *ExportWorker) categoryName(ctx context.Context, categoryID, subcategoryID int64) string {
	if categoryID == 0 {
		return ""
	}
	cat, err := w.store.GetCategory(ctx, categoryID)
	if err != nil {
		return ""
	}
	if subcategoryID == 0 {
		return cat.Name
	}
	sub, err := w.store.GetSubcategory(ctx, subcategoryID)
	if err != nil {
		return cat.Name
	}
	return cat.Name + " / " + sub.Name
}
