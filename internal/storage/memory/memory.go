// Package memory is an in-process storage.Store used by tests and by
// DATA_BACKEND=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"famspese/internal/core"
	"famspese/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu         sync.Mutex
	members    map[string]core.Member
	plans      map[string]core.SpendingPlan
	entries    map[string]core.PlannedExpense
	payments   map[string]core.Payment
	categories []core.Category
	subs       []core.Subcategory
}

// New returns an empty store seeded with storage.DefaultCategories.
func New() *Store {
	s := newEmpty()
	s.seed(storage.DefaultCategories())
	return s
}

// NewWithCategories returns an empty store seeded with the given taxonomy.
func NewWithCategories(seed []storage.CategorySeed) *Store {
	s := newEmpty()
	s.seed(seed)
	return s
}

func newEmpty() *Store {
	return &Store{
		members:  map[string]core.Member{},
		plans:    map[string]core.SpendingPlan{},
		entries:  map[string]core.PlannedExpense{},
		payments: map[string]core.Payment{},
	}
}

func (s *Store) CreateMember(_ context.Context, m *core.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	for _, existing := range s.members {
		if existing.Email == m.Email {
			return fmt.Errorf("create member: %w", storage.ErrDuplicate)
		}
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.members[m.ID] = *m
	return nil
}

func (s *Store) GetMember(_ context.Context, id string) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return core.Member{}, fmt.Errorf("get member %s: %w", id, storage.ErrNotFound)
	}
	return m, nil
}

func (s *Store) GetMemberByEmail(_ context.Context, email string) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, m := range s.members {
		if m.Email == email {
			return m, nil
		}
	}
	return core.Member{}, fmt.Errorf("get member %s: %w", email, storage.ErrNotFound)
}

func (s *Store) CreatePlan(_ context.Context, p *core.SpendingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if _, ok := s.plans[p.ID]; ok {
		return fmt.Errorf("create plan: %w", storage.ErrDuplicate)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.CreatedBy != "" && !p.HasMember(p.CreatedBy) {
		p.MemberIDs = append([]string{p.CreatedBy}, p.MemberIDs...)
	}
	s.plans[p.ID] = clonePlan(*p)
	return nil
}

func (s *Store) GetPlan(_ context.Context, id string) (core.SpendingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return core.SpendingPlan{}, fmt.Errorf("get plan %s: %w", id, storage.ErrNotFound)
	}
	return clonePlan(p), nil
}

func (s *Store) UpdatePlan(_ context.Context, p core.SpendingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.plans[p.ID]
	if !ok {
		return fmt.Errorf("update plan %s: %w", p.ID, storage.ErrNotFound)
	}
	p.MemberIDs = old.MemberIDs
	p.CreatedBy = old.CreatedBy
	p.CreatedAt = old.CreatedAt
	p.AutoGenerated = old.AutoGenerated
	s.plans[p.ID] = clonePlan(p)
	return nil
}

// DeletePlan removes the plan with its planned expenses and payments.
func (s *Store) DeletePlan(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return fmt.Errorf("delete plan %s: %w", id, storage.ErrNotFound)
	}
	delete(s.plans, id)
	for eid, e := range s.entries {
		if e.PlanID == id {
			s.deleteEntryLocked(eid)
		}
	}
	for pid, p := range s.payments {
		if p.PlanID == id {
			delete(s.payments, pid)
		}
	}
	return nil
}

func (s *Store) ListPlansForMember(_ context.Context, memberID string, includeHidden bool) ([]core.SpendingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.SpendingPlan
	for _, p := range s.plans {
		if !p.HasMember(memberID) || (p.IsHidden && !includeHidden) {
			continue
		}
		out = append(out, clonePlan(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate.Time) {
			return out[i].StartDate.After(out[j].StartDate.Time)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) AddPlanMember(_ context.Context, planID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return fmt.Errorf("add plan member: %w", storage.ErrNotFound)
	}
	if _, ok := s.members[memberID]; !ok {
		return fmt.Errorf("add plan member: %w", storage.ErrNotFound)
	}
	if !p.HasMember(memberID) {
		p.MemberIDs = append(append([]string(nil), p.MemberIDs...), memberID)
		s.plans[planID] = p
	}
	return nil
}

func (s *Store) FindMonthlyPlan(_ context.Context, year, month int, memberIDs []string) (core.SpendingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *core.SpendingPlan
	for _, p := range s.plans {
		if p.PlanType != core.PlanMonthly || p.StartDate.Year() != year || int(p.StartDate.Month()) != month {
			continue
		}
		if !p.HasSameMembers(memberIDs) {
			continue
		}
		if found == nil || p.CreatedAt.Before(found.CreatedAt) ||
			(p.CreatedAt.Equal(found.CreatedAt) && p.ID < found.ID) {
			p := p
			found = &p
		}
	}
	if found == nil {
		return core.SpendingPlan{}, fmt.Errorf("find monthly plan %04d-%02d: %w", year, month, storage.ErrNotFound)
	}
	return clonePlan(*found), nil
}

func (s *Store) CreatePlannedExpense(_ context.Context, e *core.PlannedExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[e.PlanID]; !ok {
		return fmt.Errorf("create planned expense: plan %s: %w", e.PlanID, storage.ErrNotFound)
	}
	if e.PaymentType == core.Partial && e.DesignatedPayer != "" {
		return fmt.Errorf("create planned expense: %w", core.ErrPartialWithPayer)
	}
	if s.hasInstallmentLocked(e.ParentRecurringID, e.InstallmentNumber, "") {
		return fmt.Errorf("create planned expense: installment %d of %s: %w",
			e.InstallmentNumber, e.ParentRecurringID, storage.ErrDuplicate)
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.entries[e.ID] = *e
	return nil
}

// hasInstallmentLocked reports whether an entry other than skipID already
// holds installment n of the series.
func (s *Store) hasInstallmentLocked(parentID string, n int, skipID string) bool {
	if parentID == "" {
		return false
	}
	for id, e := range s.entries {
		if id != skipID && e.ParentRecurringID == parentID && e.InstallmentNumber == n {
			return true
		}
	}
	return false
}

func (s *Store) GetPlannedExpense(_ context.Context, id string) (core.PlannedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return core.PlannedExpense{}, fmt.Errorf("get planned expense %s: %w", id, storage.ErrNotFound)
	}
	return e, nil
}

func (s *Store) UpdatePlannedExpense(_ context.Context, e core.PlannedExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.entries[e.ID]
	if !ok {
		return fmt.Errorf("update planned expense %s: %w", e.ID, storage.ErrNotFound)
	}
	if e.PaymentType == core.Partial && e.DesignatedPayer != "" {
		return fmt.Errorf("update planned expense: %w", core.ErrPartialWithPayer)
	}
	if s.hasInstallmentLocked(e.ParentRecurringID, e.InstallmentNumber, e.ID) {
		return fmt.Errorf("update planned expense: installment %d of %s: %w",
			e.InstallmentNumber, e.ParentRecurringID, storage.ErrDuplicate)
	}
	e.PlanID = old.PlanID
	e.CreatedAt = old.CreatedAt
	s.entries[e.ID] = e
	return nil
}

// DeletePlannedExpense removes the entry and its linked payments.
func (s *Store) DeletePlannedExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("delete planned expense %s: %w", id, storage.ErrNotFound)
	}
	s.deleteEntryLocked(id)
	return nil
}

func (s *Store) deleteEntryLocked(id string) {
	delete(s.entries, id)
	for pid, p := range s.payments {
		if p.PlannedExpenseID == id {
			delete(s.payments, pid)
		}
	}
}

func (s *Store) PlannedExpensesByPlan(_ context.Context, planID string) ([]core.PlannedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.PlannedExpense
	for _, e := range s.entries {
		if e.PlanID == planID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DueDate.IsZero() != b.DueDate.IsZero() {
			return !a.DueDate.IsZero()
		}
		if !a.DueDate.Equal(b.DueDate.Time) {
			return a.DueDate.Before(b.DueDate.Time)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

func (s *Store) ListRecurringPlannedExpenses(_ context.Context) ([]core.PlannedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.PlannedExpense
	for _, e := range s.entries {
		if e.IsRecurring && e.TotalInstallments > 1 && e.InstallmentNumber == 1 {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountInstallments(_ context.Context, parentRecurringID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.ParentRecurringID == parentRecurringID {
			n++
		}
	}
	return n, nil
}

func (s *Store) SetParentRecurringID(_ context.Context, entryID, parentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok {
		return "", fmt.Errorf("set parent recurring id of %s: %w", entryID, storage.ErrNotFound)
	}
	if e.ParentRecurringID == "" {
		e.ParentRecurringID = parentID
		s.entries[entryID] = e
	}
	return e.ParentRecurringID, nil
}

func (s *Store) CreatePayment(_ context.Context, p *core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.PlannedExpenseID != "" {
		if _, ok := s.entries[p.PlannedExpenseID]; !ok {
			return fmt.Errorf("create payment: planned expense %s: %w", p.PlannedExpenseID, storage.ErrNotFound)
		}
	}
	if p.PaymentType == core.Partial && p.DesignatedPayer != "" {
		return fmt.Errorf("create payment: %w", core.ErrPartialWithPayer)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.payments[p.ID] = *p
	return nil
}

func (s *Store) GetPayment(_ context.Context, id string) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return core.Payment{}, fmt.Errorf("get payment %s: %w", id, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) UpdatePayment(_ context.Context, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.payments[p.ID]
	if !ok {
		return fmt.Errorf("update payment %s: %w", p.ID, storage.ErrNotFound)
	}
	if p.PaymentType == core.Partial && p.DesignatedPayer != "" {
		return fmt.Errorf("update payment: %w", core.ErrPartialWithPayer)
	}
	p.CreatedAt = old.CreatedAt
	p.ExportedAt = time.Time{}
	s.payments[p.ID] = p
	return nil
}

func (s *Store) DeletePayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return fmt.Errorf("delete payment %s: %w", id, storage.ErrNotFound)
	}
	delete(s.payments, id)
	return nil
}

func (s *Store) PaymentsByEntryAndMember(_ context.Context, entryID, memberID string) ([]core.Payment, error) {
	return s.filterPayments(func(p core.Payment) bool {
		return p.PlannedExpenseID == entryID && p.PayerID == memberID
	}, false), nil
}

func (s *Store) StandalonePaymentsByPlan(_ context.Context, planID string) ([]core.Payment, error) {
	return s.filterPayments(func(p core.Payment) bool {
		return p.PlanID == planID && p.IsStandalone()
	}, false), nil
}

func (s *Store) PaymentsByEntry(_ context.Context, entryID string) ([]core.Payment, error) {
	return s.filterPayments(func(p core.Payment) bool { return p.PlannedExpenseID == entryID }, false), nil
}

func (s *Store) PaymentsByEntries(_ context.Context, entryIDs []string) (map[string][]core.Payment, error) {
	want := make(map[string]bool, len(entryIDs))
	for _, id := range entryIDs {
		want[id] = true
	}
	out := make(map[string][]core.Payment, len(entryIDs))
	for _, p := range s.filterPayments(func(p core.Payment) bool { return want[p.PlannedExpenseID] }, false) {
		out[p.PlannedExpenseID] = append(out[p.PlannedExpenseID], p)
	}
	return out, nil
}

func (s *Store) PaymentsByPlan(_ context.Context, planID string) ([]core.Payment, error) {
	return s.filterPayments(func(p core.Payment) bool { return p.PlanID == planID }, true), nil
}

func (s *Store) PaymentsByPayer(_ context.Context, payerID string) ([]core.Payment, error) {
	return s.filterPayments(func(p core.Payment) bool { return p.PayerID == payerID }, true), nil
}

func (s *Store) UnexportedPayments(_ context.Context, limit int) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Payment
	for _, p := range s.payments {
		if p.ExportedAt.IsZero() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkPaymentExported(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return fmt.Errorf("mark payment %s exported: %w", id, storage.ErrNotFound)
	}
	p.ExportedAt = time.Now().UTC()
	s.payments[id] = p
	return nil
}

// filterPayments returns matching payments by date, newest first when desc.
func (s *Store) filterPayments(match func(core.Payment) bool, desc bool) []core.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Payment
	for _, p := range s.payments {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if desc {
			a, b = b, a
		}
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date.Time)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("get category %d: %w", id, storage.ErrNotFound)
}

func (s *Store) GetSubcategory(_ context.Context, id int64) (core.Subcategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range s.subs {
		if sc.ID == id {
			return sc, nil
		}
	}
	return core.Subcategory{}, fmt.Errorf("get subcategory %d: %w", id, storage.ErrNotFound)
}

func (s *Store) SubcategoriesByCategory(_ context.Context, categoryID int64) ([]core.Subcategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Subcategory
	for _, sc := range s.subs {
		if sc.CategoryID == categoryID && sc.IsActive {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SeedCategories(_ context.Context, seed []storage.CategorySeed) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seedLocked(seed), nil
}

func (s *Store) seed(seed []storage.CategorySeed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedLocked(seed)
}

func (s *Store) seedLocked(seed []storage.CategorySeed) int {
	added := 0
	for _, c := range seed {
		var categoryID int64
		for _, existing := range s.categories {
			if existing.Name == c.Name {
				categoryID = existing.ID
				break
			}
		}
		if categoryID == 0 {
			kind := c.Kind
			if kind == "" {
				kind = core.KindNecessary
			}
			categoryID = int64(len(s.categories) + 1)
			s.categories = append(s.categories, core.Category{
				ID: categoryID, Name: c.Name, Kind: kind, Icon: c.Icon, Color: c.Color, IsActive: true,
			})
			added++
		}
		for _, name := range c.Subcategories {
			if s.hasSubLocked(categoryID, name) {
				continue
			}
			s.subs = append(s.subs, core.Subcategory{
				ID: int64(len(s.subs) + 1), CategoryID: categoryID, Name: name, IsActive: true,
			})
			added++
		}
	}
	return added
}

func (s *Store) hasSubLocked(categoryID int64, name string) bool {
	for _, sc := range s.subs {
		if sc.CategoryID == categoryID && sc.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = map[string]core.SpendingPlan{}
	s.entries = map[string]core.PlannedExpense{}
	s.payments = map[string]core.Payment{}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func clonePlan(p core.SpendingPlan) core.SpendingPlan {
	p.MemberIDs = append([]string(nil), p.MemberIDs...)
	return p
}
