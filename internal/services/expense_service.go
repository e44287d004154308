package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"famspese/internal/amqp"
	"famspese/internal/core"
	"famspese/internal/metrics"
	"famspese/internal/share"
	"famspese/internal/storage"
)

// MaxBatchIDs bounds BatchPayments.
const MaxBatchIDs = 50

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, e amqp.Event) error
}

// PlannedExpenseView is a planned expense as seen by one member.
type PlannedExpenseView struct {
	core.PlannedExpense
	MyShare    decimal.Decimal
	OtherShare decimal.Decimal
	Progress   core.Progress
}

// ExpenseService orchestrates planned expenses and payments across the store
// and the event pipeline. Writes are committed before events are published.
type ExpenseService struct {
	store     storage.Store
	plans     *PlanService
	calc      *share.Calculator
	publisher EventPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewExpenseService wires the service. publisher and m may be nil.
func NewExpenseService(store storage.Store, plans *PlanService, publisher EventPublisher, m *metrics.Metrics) *ExpenseService {
	return &ExpenseService{
		store:     store,
		plans:     plans,
		calc:      plans.Aggregator().Calculator(),
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// CreatePlannedExpense validates and stores a new entry in a plan memberID
// belongs to, then announces it so the worker can expand installments.
func (s *ExpenseService) CreatePlannedExpense(ctx context.Context, memberID string, e core.PlannedExpense) (core.PlannedExpense, error) {
	plan, err := s.plans.Authorize(ctx, memberID, e.PlanID)
	if err != nil {
		return core.PlannedExpense{}, err
	}
	e.ID = ""
	e.ParentRecurringID = ""
	if err := s.preparePlanned(ctx, plan, &e); err != nil {
		return core.PlannedExpense{}, err
	}

	if err := s.store.CreatePlannedExpense(ctx, &e); err != nil {
		return core.PlannedExpense{}, fmt.Errorf("save planned expense: %w", err)
	}
	slog.InfoContext(ctx, "Planned expense created",
		"id", e.ID,
		"plan_id", e.PlanID,
		"payment_type", e.PaymentType,
		"amount", e.Amount.StringFixed(2),
		"recurring", e.IsRecurring)

	s.publish(ctx, amqp.PlannedExpenseCreated, e.ID)
	return e, nil
}

func (s *ExpenseService) GetPlannedExpense(ctx context.Context, memberID, id string) (PlannedExpenseView, error) {
	e, err := s.authorizeEntry(ctx, memberID, id)
	if err != nil {
		return PlannedExpenseView{}, err
	}
	payments, err := s.store.PaymentsByEntry(ctx, e.ID)
	if err != nil {
		return PlannedExpenseView{}, fmt.Errorf("read payments: %w", err)
	}
	return s.view(ctx, memberID, e, payments)
}

// UpdatePlannedExpense rewrites an entry. The plan and the recurring lineage
// of an entry never change.
func (s *ExpenseService) UpdatePlannedExpense(ctx context.Context, memberID string, e core.PlannedExpense) (core.PlannedExpense, error) {
	existing, err := s.authorizeEntry(ctx, memberID, e.ID)
	if err != nil {
		return core.PlannedExpense{}, err
	}
	plan, err := s.store.GetPlan(ctx, existing.PlanID)
	if err != nil {
		return core.PlannedExpense{}, err
	}
	e.PlanID = existing.PlanID
	e.ParentRecurringID = existing.ParentRecurringID
	e.CreatedAt = existing.CreatedAt
	if err := s.preparePlanned(ctx, plan, &e); err != nil {
		return core.PlannedExpense{}, err
	}

	if err := s.store.UpdatePlannedExpense(ctx, e); err != nil {
		return core.PlannedExpense{}, fmt.Errorf("update planned expense: %w", err)
	}
	slog.InfoContext(ctx, "Planned expense updated", "id", e.ID, "plan_id", e.PlanID)
	return e, nil
}

// DeletePlannedExpense removes the entry together with its payments.
func (s *ExpenseService) DeletePlannedExpense(ctx context.Context, memberID, id string) error {
	if _, err := s.authorizeEntry(ctx, memberID, id); err != nil {
		return err
	}
	if err := s.store.DeletePlannedExpense(ctx, id); err != nil {
		return fmt.Errorf("delete planned expense: %w", err)
	}
	slog.InfoContext(ctx, "Planned expense deleted", "id", id, "member_id", memberID)
	return nil
}

// ListPlannedExpenses returns the plan's entries with memberID's share and
// the derived payment progress of each.
func (s *ExpenseService) ListPlannedExpenses(ctx context.Context, memberID, planID string) ([]PlannedExpenseView, error) {
	if _, err := s.plans.Authorize(ctx, memberID, planID); err != nil {
		return nil, err
	}
	entries, err := s.store.PlannedExpensesByPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("list planned expenses: %w", err)
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	byEntry, err := s.store.PaymentsByEntries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("read payments: %w", err)
	}

	views := make([]PlannedExpenseView, 0, len(entries))
	for _, e := range entries {
		v, err := s.view(ctx, memberID, e, byEntry[e.ID])
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// EntryPayments lists the payments linked to a planned expense.
func (s *ExpenseService) EntryPayments(ctx context.Context, memberID, entryID string) ([]core.Payment, error) {
	if _, err := s.authorizeEntry(ctx, memberID, entryID); err != nil {
		return nil, err
	}
	return s.store.PaymentsByEntry(ctx, entryID)
}

// CreatePayment records a payment made by memberID unless another payer is
// named. A linked payment always belongs to its entry's plan.
func (s *ExpenseService) CreatePayment(ctx context.Context, memberID string, p core.Payment) (core.Payment, error) {
	p.ID = ""
	p.ExportedAt = time.Time{}
	if p.PayerID == "" {
		p.PayerID = memberID
	}
	if err := s.preparePayment(ctx, memberID, &p); err != nil {
		return core.Payment{}, err
	}

	if err := s.store.CreatePayment(ctx, &p); err != nil {
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}
	s.metrics.PaymentRecorded(p.IsStandalone())
	slog.InfoContext(ctx, "Payment recorded",
		"id", p.ID,
		"payer_id", p.PayerID,
		"planned_expense_id", p.PlannedExpenseID,
		"plan_id", p.PlanID,
		"amount", p.Amount.StringFixed(2))

	s.publish(ctx, amqp.PaymentCreated, p.ID)
	return p, nil
}

func (s *ExpenseService) GetPayment(ctx context.Context, memberID, id string) (core.Payment, error) {
	return s.authorizePayment(ctx, memberID, id)
}

// UpdatePayment rewrites a payment and queues it for export again.
func (s *ExpenseService) UpdatePayment(ctx context.Context, memberID string, p core.Payment) (core.Payment, error) {
	existing, err := s.authorizePayment(ctx, memberID, p.ID)
	if err != nil {
		return core.Payment{}, err
	}
	if p.PayerID == "" {
		p.PayerID = existing.PayerID
	}
	p.CreatedAt = existing.CreatedAt
	p.ExportedAt = time.Time{}
	if err := s.preparePayment(ctx, memberID, &p); err != nil {
		return core.Payment{}, err
	}

	if err := s.store.UpdatePayment(ctx, p); err != nil {
		return core.Payment{}, fmt.Errorf("update payment: %w", err)
	}
	slog.InfoContext(ctx, "Payment updated", "id", p.ID, "member_id", memberID)

	s.publish(ctx, amqp.PaymentUpdated, p.ID)
	return p, nil
}

func (s *ExpenseService) DeletePayment(ctx context.Context, memberID, id string) error {
	if _, err := s.authorizePayment(ctx, memberID, id); err != nil {
		return err
	}
	if err := s.store.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	slog.InfoContext(ctx, "Payment deleted", "id", id, "member_id", memberID)
	return nil
}

// ListPayments returns the payments of a plan, or the member's own payments
// when planID is empty.
func (s *ExpenseService) ListPayments(ctx context.Context, memberID, planID string) ([]core.Payment, error) {
	if planID == "" {
		return s.store.PaymentsByPayer(ctx, memberID)
	}
	if _, err := s.plans.Authorize(ctx, memberID, planID); err != nil {
		return nil, err
	}
	return s.store.PaymentsByPlan(ctx, planID)
}

// BatchPayments maps each accessible entry id to its payments. Unknown or
// foreign ids are left out; accessible entries without payments map to an
// empty list.
func (s *ExpenseService) BatchPayments(ctx context.Context, memberID string, entryIDs []string) (map[string][]core.Payment, error) {
	if len(entryIDs) > MaxBatchIDs {
		return nil, invalid(ErrTooManyIDs)
	}

	allowed := make([]string, 0, len(entryIDs))
	planAccess := map[string]bool{}
	for _, id := range entryIDs {
		e, err := s.store.GetPlannedExpense(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ok, seen := planAccess[e.PlanID]
		if !seen {
			_, err := s.plans.Authorize(ctx, memberID, e.PlanID)
			ok = err == nil
			planAccess[e.PlanID] = ok
		}
		if ok {
			allowed = append(allowed, id)
		}
	}

	byEntry, err := s.store.PaymentsByEntries(ctx, allowed)
	if err != nil {
		return nil, fmt.Errorf("read payments: %w", err)
	}
	out := make(map[string][]core.Payment, len(allowed))
	for _, id := range allowed {
		list := byEntry[id]
		if list == nil {
			list = []core.Payment{}
		}
		out[id] = list
	}
	return out, nil
}

func (s *ExpenseService) view(ctx context.Context, memberID string, e core.PlannedExpense, payments []core.Payment) (PlannedExpenseView, error) {
	entry := share.FromPlanned(e)
	mine, err := s.calc.ComputeShare(ctx, entry, memberID)
	if err != nil {
		return PlannedExpenseView{}, fmt.Errorf("compute share: %w", err)
	}
	return PlannedExpenseView{
		PlannedExpense: e,
		MyShare:        mine,
		OtherShare:     share.OtherShare(entry, mine),
		Progress:       core.ComputeProgress(e, payments),
	}, nil
}

func (s *ExpenseService) authorizeEntry(ctx context.Context, memberID, id string) (core.PlannedExpense, error) {
	e, err := s.store.GetPlannedExpense(ctx, id)
	if err != nil {
		return core.PlannedExpense{}, err
	}
	if _, err := s.plans.Authorize(ctx, memberID, e.PlanID); err != nil {
		return core.PlannedExpense{}, err
	}
	return e, nil
}

// authorizePayment lets the payer and the members of the payment's plan in.
func (s *ExpenseService) authorizePayment(ctx context.Context, memberID, id string) (core.Payment, error) {
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return core.Payment{}, err
	}
	if p.PayerID == memberID {
		return p, nil
	}
	if p.PlanID != "" {
		if _, err := s.plans.Authorize(ctx, memberID, p.PlanID); err == nil {
			return p, nil
		} else if !errors.Is(err, ErrForbidden) {
			return core.Payment{}, err
		}
	}
	return core.Payment{}, fmt.Errorf("payment %s: %w", id, ErrForbidden)
}

func (s *ExpenseService) preparePlanned(ctx context.Context, plan core.SpendingPlan, e *core.PlannedExpense) error {
	if e.Priority == "" {
		e.Priority = core.PriorityMedium
	}
	if e.TotalInstallments == 0 {
		e.TotalInstallments = 1
	}
	if e.InstallmentNumber == 0 {
		e.InstallmentNumber = 1
	}
	if e.IsRecurring && e.RecurringFrequency == "" {
		e.RecurringFrequency = core.Monthly
	}
	if err := e.Validate(); err != nil {
		return invalid(err)
	}
	if e.DesignatedPayer != "" && !plan.HasMember(e.DesignatedPayer) {
		return invalid(ErrPayerNotMember)
	}
	return s.resolveCategory(ctx, &e.CategoryID, &e.SubcategoryID)
}

// preparePayment applies the payment defaults, validates and checks that the
// payer may pay into the target plan.
func (s *ExpenseService) preparePayment(ctx context.Context, memberID string, p *core.Payment) error {
	if p.Date.IsZero() {
		now := s.now().UTC()
		p.Date = core.NewDate(now.Year(), int(now.Month()), now.Day())
	}

	if !p.IsStandalone() {
		entry, err := s.store.GetPlannedExpense(ctx, p.PlannedExpenseID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return invalid(fmt.Errorf("planned expense %s: %w", p.PlannedExpenseID, storage.ErrNotFound))
			}
			return err
		}
		p.PlanID = entry.PlanID
		// Linked payments take their split terms from the entry.
		p.PaymentType = ""
		p.DesignatedPayer = ""
		p.MyShareAmount = decimal.NullDecimal{}
		if p.CategoryID == 0 && p.SubcategoryID == 0 {
			p.CategoryID, p.SubcategoryID = entry.CategoryID, entry.SubcategoryID
		}
		if p.Description == "" {
			p.Description = entry.Description
		}
	} else {
		if p.PaymentType == "" {
			p.PaymentType = core.Shared
		}
		if p.PaymentType == core.Individual && p.DesignatedPayer == "" {
			p.DesignatedPayer = p.PayerID
		}
	}

	if err := p.Validate(); err != nil {
		return invalid(err)
	}

	if p.PlanID != "" {
		plan, err := s.plans.Authorize(ctx, memberID, p.PlanID)
		if err != nil {
			return err
		}
		if !plan.HasMember(p.PayerID) {
			return invalid(ErrPayerNotMember)
		}
		if p.DesignatedPayer != "" && !plan.HasMember(p.DesignatedPayer) {
			return invalid(ErrPayerNotMember)
		}
	} else if p.PayerID != memberID {
		return fmt.Errorf("pay on behalf of %s: %w", p.PayerID, ErrForbidden)
	}
	return s.resolveCategory(ctx, &p.CategoryID, &p.SubcategoryID)
}

// resolveCategory checks that the referenced category and subcategory exist
// and agree. A bare subcategory fills in its category.
func (s *ExpenseService) resolveCategory(ctx context.Context, categoryID, subcategoryID *int64) error {
	if *subcategoryID != 0 {
		sub, err := s.store.GetSubcategory(ctx, *subcategoryID)
		if errors.Is(err, storage.ErrNotFound) {
			return invalid(ErrUnknownCategory)
		}
		if err != nil {
			return err
		}
		if *categoryID == 0 {
			*categoryID = sub.CategoryID
		} else if *categoryID != sub.CategoryID {
			return invalid(core.ErrSubcategoryMismatch)
		}
	}
	if *categoryID != 0 {
		_, err := s.store.GetCategory(ctx, *categoryID)
		if errors.Is(err, storage.ErrNotFound) {
			return invalid(ErrUnknownCategory)
		}
		return err
	}
	return nil
}

// publish announces a committed write. Failures are logged and counted; the
// write itself already succeeded.
func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, id string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping event", "type", t, "id", id)
		return
	}
	e := amqp.NewEvent(t, id, s.now().UnixMilli())
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.metrics.PublishFailed(string(t))
		slog.ErrorContext(ctx, "Failed to publish event",
			"type", t,
			"id", id,
			"error", err)
	}
}
