package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"famspese/internal/amqp"
	"famspese/internal/core"
	"famspese/internal/services"
	"famspese/internal/sheets"
	sheetsmem "famspese/internal/sheets/memory"
	"famspese/internal/storage/memory"
)

type failingExporter struct{}

func (failingExporter) AppendPayment(context.Context, sheets.PaymentRow) (string, error) {
	return "", errors.New("quota exceeded")
}

type fixture struct {
	store *memory.Store
	anna  core.Member
	plan  core.SpendingPlan
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: memory.New()}
	f.anna = core.Member{Email: "anna@example.com", DisplayName: "Anna"}
	if err := f.store.CreateMember(ctx, &f.anna); err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	f.plan = core.SpendingPlan{
		Name:      "January 2026",
		PlanType:  core.PlanMonthly,
		StartDate: core.NewDate(2026, 1, 1),
		EndDate:   core.NewDate(2026, 1, 31),
		IsActive:  true,
		CreatedBy: f.anna.ID,
	}
	if err := f.store.CreatePlan(ctx, &f.plan); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	return f
}

func (f *fixture) entry(t *testing.T, e core.PlannedExpense) core.PlannedExpense {
	t.Helper()
	e.PlanID = f.plan.ID
	if e.TotalInstallments == 0 {
		e.TotalInstallments = 1
	}
	e.InstallmentNumber = 1
	if err := f.store.CreatePlannedExpense(context.Background(), &e); err != nil {
		t.Fatalf("CreatePlannedExpense: %v", err)
	}
	return e
}

func (f *fixture) payment(t *testing.T, p core.Payment) core.Payment {
	t.Helper()
	p.PayerID = f.anna.ID
	p.PlanID = f.plan.ID
	if p.Date.IsZero() {
		p.Date = core.NewDate(2026, 1, 12)
	}
	if err := f.store.CreatePayment(context.Background(), &p); err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	return p
}

func TestExportHandleEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exporter := sheetsmem.New()
	w := NewExportWorker(f.store, exporter, nil, 10)

	e := f.entry(t, core.PlannedExpense{Description: "Rent", Amount: decimal.NewFromInt(800), PaymentType: core.Partial})
	p := f.payment(t, core.Payment{PlannedExpenseID: e.ID, Amount: decimal.NewFromInt(400)})

	if err := w.HandleEvent(ctx, amqp.NewEvent(amqp.PaymentCreated, p.ID, 1)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	rows := exporter.Rows()
	if len(rows) != 1 {
		t.Fatalf("exported %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.Payer != "Anna" || row.Plan != "January 2026" || row.PaymentType != core.Partial || row.Description != "Rent" {
		t.Errorf("row = %+v", row)
	}

	stored, err := f.store.GetPayment(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if stored.ExportedAt.IsZero() {
		t.Fatal("payment not marked exported")
	}

	// Redelivery is a no-op.
	if err := w.HandleEvent(ctx, amqp.NewEvent(amqp.PaymentCreated, p.ID, 1)); err != nil {
		t.Fatalf("HandleEvent again: %v", err)
	}
	if len(exporter.Rows()) != 1 {
		t.Errorf("redelivery exported again")
	}

	if err := w.HandleEvent(ctx, amqp.NewEvent(amqp.PaymentCreated, "gone", 1)); err != nil {
		t.Errorf("missing payment should be acknowledged, got %v", err)
	}
}

func TestUpdatedPaymentIsAppendedAsNewRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exporter := sheetsmem.New()
	w := NewExportWorker(f.store, exporter, nil, 10)

	p := f.payment(t, core.Payment{Description: "Groceries", Amount: decimal.NewFromInt(40), PaymentType: core.Shared})
	if err := w.HandleEvent(ctx, amqp.NewEvent(amqp.PaymentCreated, p.ID, 1)); err != nil {
		t.Fatalf("HandleEvent created: %v", err)
	}

	p.Amount = decimal.NewFromInt(45)
	if err := f.store.UpdatePayment(ctx, p); err != nil {
		t.Fatalf("UpdatePayment: %v", err)
	}
	if err := w.HandleEvent(ctx, amqp.NewEvent(amqp.PaymentUpdated, p.ID, 2)); err != nil {
		t.Fatalf("HandleEvent updated: %v", err)
	}

	rows := exporter.Rows()
	if len(rows) != 2 {
		t.Fatalf("exported %d rows, want 2", len(rows))
	}
	if !rows[0].Amount.Equal(decimal.NewFromInt(40)) || !rows[1].Amount.Equal(decimal.NewFromInt(45)) {
		t.Errorf("rows = %s then %s, want 40 then 45", rows[0].Amount, rows[1].Amount)
	}
	if rows[0].PaymentID != p.ID || rows[1].PaymentID != p.ID {
		t.Errorf("both rows should reference payment %s", p.ID)
	}
}

func TestExportFailureKeepsPaymentPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := NewExportWorker(f.store, failingExporter{}, nil, 10)

	p := f.payment(t, core.Payment{Amount: decimal.NewFromInt(5), Description: "bus", PaymentType: core.Shared})
	if err := w.HandleEvent(ctx, amqp.NewEvent(amqp.PaymentUpdated, p.ID, 2)); err == nil {
		t.Fatal("expected export error so the message is requeued")
	}
	pending, err := f.store.UnexportedPayments(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %d, %v, want 1", len(pending), err)
	}
}

func TestProcessPendingExports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exporter := sheetsmem.New()
	w := NewExportWorker(f.store, exporter, nil, 2)

	cats, err := f.store.ListCategories(ctx)
	if err != nil || len(cats) == 0 {
		t.Fatalf("ListCategories: %v", err)
	}
	for i := 0; i < 3; i++ {
		f.payment(t, core.Payment{
			Amount: decimal.NewFromInt(int64(10 + i)), Description: "standalone",
			PaymentType: core.Shared, CategoryID: cats[0].ID,
		})
	}

	n, err := w.ProcessPendingExports(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first pass = %d, %v, want one batch of 2", n, err)
	}
	n, err = w.ProcessPendingExports(ctx)
	if err != nil || n != 1 {
		t.Fatalf("second pass = %d, %v, want 1", n, err)
	}
	n, err = w.ProcessPendingExports(ctx)
	if err != nil || n != 0 {
		t.Fatalf("third pass = %d, %v, want 0", n, err)
	}

	rows := exporter.Rows()
	if len(rows) != 3 || rows[0].Category != cats[0].Name {
		t.Errorf("rows = %+v", rows)
	}
}

func TestInstallmentHandleEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := NewInstallmentWorker(f.store, services.NewInstallmentProcessor(f.store, nil))

	plain := f.entry(t, core.PlannedExpense{Description: "Gift", Amount: decimal.NewFromInt(30), PaymentType: core.Shared})
	if err := w.HandleEvent(ctx, amqp.NewEvent(amqp.PlannedExpenseCreated, plain.ID, 1)); err != nil {
		t.Fatalf("HandleEvent for plain entry: %v", err)
	}

	loan := f.entry(t, core.PlannedExpense{
		Description: "Loan", Amount: decimal.NewFromInt(250), PaymentType: core.Shared,
		IsRecurring: true, RecurringFrequency: core.Monthly, TotalInstallments: 3,
	})
	if err := w.HandleEvent(ctx, amqp.NewEvent(amqp.PlannedExpenseCreated, loan.ID, 1)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	stored, err := f.store.GetPlannedExpense(ctx, loan.ID)
	if err != nil {
		t.Fatalf("GetPlannedExpense: %v", err)
	}
	n, err := f.store.CountInstallments(ctx, stored.ParentRecurringID)
	if err != nil || n != 3 {
		t.Fatalf("installments = %d, %v, want 3", n, err)
	}
}

type fakeConsumer struct {
	events map[string][]amqp.Event
	done   sync.WaitGroup

	mu     sync.Mutex
	queues []string
}

func (c *fakeConsumer) Consume(ctx context.Context, queue string, handler amqp.Handler) error {
	c.mu.Lock()
	c.queues = append(c.queues, queue)
	c.mu.Unlock()

	for _, e := range c.events[queue] {
		_ = handler(ctx, e)
	}
	c.done.Done()
	<-ctx.Done()
	return ctx.Err()
}

func TestRunDispatchesQueues(t *testing.T) {
	f := newFixture(t)
	exporter := sheetsmem.New()
	p := f.payment(t, core.Payment{Amount: decimal.NewFromInt(7), Description: "ice cream", PaymentType: core.Shared})

	routes := amqp.Routes{Installments: "installments", Export: "payments_export"}
	consumer := &fakeConsumer{events: map[string][]amqp.Event{
		"payments_export": {amqp.NewEvent(amqp.PaymentCreated, p.ID, 1)},
	}}
	consumer.done.Add(2)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx,
			consumer,
			NewInstallmentWorker(f.store, services.NewInstallmentProcessor(f.store, nil)),
			NewExportWorker(f.store, exporter, nil, 10),
			Options{Routes: routes})
	}()

	consumer.done.Wait()
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run = %v, want clean shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if len(consumer.queues) != 2 {
		t.Errorf("consumed queues = %v", consumer.queues)
	}
	stored, err := f.store.GetPayment(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if stored.ExportedAt.IsZero() || len(exporter.Rows()) == 0 {
		t.Error("payment was not exported")
	}
}
