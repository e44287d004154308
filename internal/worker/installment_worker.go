package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"famspese/internal/amqp"
	"famspese/internal/services"
	"famspese/internal/storage"
)

// InstallmentWorker expands newly created recurring planned expenses.
type InstallmentWorker struct {
	store     storage.Store
	processor *services.InstallmentProcessor
}

func NewInstallmentWorker(store storage.Store, processor *services.InstallmentProcessor) *InstallmentWorker {
	return &InstallmentWorker{store: store, processor: processor}
}

// HandleEvent generates the installments of the created entry when it is
// the first of a recurring series. Any other entry is acknowledged as is.
func (w *InstallmentWorker) HandleEvent(ctx context.Context, e amqp.Event) error {
	if e.Type != amqp.PlannedExpenseCreated {
		slog.WarnContext(ctx, "Ignoring event on installment queue", "type", e.Type, "entity_id", e.EntityID)
		return nil
	}

	entry, err := w.store.GetPlannedExpense(ctx, e.EntityID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Planned expense no longer exists", "id", e.EntityID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get planned expense: %w", err)
	}
	if !entry.IsRecurring || entry.TotalInstallments <= 1 {
		return nil
	}

	n, err := w.processor.Generate(ctx, entry.ID, false)
	if err != nil {
		return fmt.Errorf("generate installments: %w", err)
	}
	slog.InfoContext(ctx, "Installments generated", "id", entry.ID, "created", n)
	return nil
}

// RunPeriodic re-runs generation over every recurring series each interval,
// catching series whose event was lost.
func (w *InstallmentWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	return every(ctx, interval, func(ctx context.Context) {
		if _, err := w.processor.ProcessAll(ctx, false); err != nil {
			slog.ErrorContext(ctx, "Periodic installment pass failed", "error", err)
		}
	})
}
