package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"famspese/internal/core"
	"famspese/internal/storage"
)

func seedPlan(t *testing.T, s *Store) (core.Member, core.SpendingPlan) {
	t.Helper()
	ctx := context.Background()
	m := core.Member{Email: "Anna@Example.com", DisplayName: "Anna"}
	if err := s.CreateMember(ctx, &m); err != nil {
		t.Fatalf("create member: %v", err)
	}
	p := core.SpendingPlan{
		Name: "Ottobre", PlanType: core.PlanMonthly, CreatedBy: m.ID,
		StartDate: core.NewDate(2024, 10, 1), EndDate: core.NewDate(2024, 10, 31),
	}
	if err := s.CreatePlan(ctx, &p); err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return m, p
}

func TestMemberEmailIsUniqueAndLowercased(t *testing.T) {
	s := New()
	m, _ := seedPlan(t, s)
	if m.Email != "anna@example.com" {
		t.Fatalf("email not normalised: %q", m.Email)
	}
	dup := core.Member{Email: "ANNA@example.com"}
	if err := s.CreateMember(context.Background(), &dup); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	got, err := s.GetMemberByEmail(context.Background(), " anna@EXAMPLE.com ")
	if err != nil || got.ID != m.ID {
		t.Fatalf("lookup by email: %+v %v", got, err)
	}
}

func TestCreatorIsPlanMember(t *testing.T) {
	s := New()
	m, p := seedPlan(t, s)
	got, err := s.GetPlan(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if !got.HasMember(m.ID) {
		t.Fatalf("creator missing from %v", got.MemberIDs)
	}
	plans, _ := s.ListPlansForMember(context.Background(), m.ID, false)
	if len(plans) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(plans))
	}
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	m, p := seedPlan(t, s)

	e := core.PlannedExpense{PlanID: p.ID, Description: "Spesa", Amount: decimal.NewFromInt(100),
		PaymentType: core.Shared, TotalInstallments: 1, InstallmentNumber: 1}
	if err := s.CreatePlannedExpense(ctx, &e); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	linked := core.Payment{Amount: decimal.NewFromInt(40), PayerID: m.ID, PlannedExpenseID: e.ID,
		PlanID: p.ID, Date: core.NewDate(2024, 10, 3)}
	standalone := core.Payment{Amount: decimal.NewFromInt(10), PayerID: m.ID, PlanID: p.ID,
		Description: "Caffè", PaymentType: core.Shared, Date: core.NewDate(2024, 10, 4)}
	for _, pay := range []*core.Payment{&linked, &standalone} {
		if err := s.CreatePayment(ctx, pay); err != nil {
			t.Fatalf("create payment: %v", err)
		}
	}

	if err := s.DeletePlannedExpense(ctx, e.ID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if _, err := s.GetPayment(ctx, linked.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("linked payment survived entry delete: %v", err)
	}
	if _, err := s.GetPayment(ctx, standalone.ID); err != nil {
		t.Fatalf("stand-alone payment removed: %v", err)
	}

	if err := s.DeletePlan(ctx, p.ID); err != nil {
		t.Fatalf("delete plan: %v", err)
	}
	if _, err := s.GetPayment(ctx, standalone.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("stand-alone payment survived plan delete: %v", err)
	}
}

func TestPartialWithPayerRejected(t *testing.T) {
	s := New()
	m, p := seedPlan(t, s)
	e := core.PlannedExpense{PlanID: p.ID, Description: "Regalo", Amount: decimal.NewFromInt(50),
		PaymentType: core.Partial, DesignatedPayer: m.ID, TotalInstallments: 1, InstallmentNumber: 1}
	if err := s.CreatePlannedExpense(context.Background(), &e); !errors.Is(err, core.ErrPartialWithPayer) {
		t.Fatalf("expected ErrPartialWithPayer, got %v", err)
	}
}

func TestUnexportedPaymentsAndMark(t *testing.T) {
	ctx := context.Background()
	s := New()
	m, p := seedPlan(t, s)
	for i := 0; i < 3; i++ {
		pay := core.Payment{Amount: decimal.NewFromInt(int64(i + 1)), PayerID: m.ID, PlanID: p.ID,
			Description: "x", PaymentType: core.Shared, Date: core.NewDate(2024, 10, i+1)}
		if err := s.CreatePayment(ctx, &pay); err != nil {
			t.Fatalf("create payment: %v", err)
		}
	}
	batch, _ := s.UnexportedPayments(ctx, 2)
	if len(batch) != 2 {
		t.Fatalf("limit not honoured: %d", len(batch))
	}
	for _, pay := range batch {
		if err := s.MarkPaymentExported(ctx, pay.ID); err != nil {
			t.Fatalf("mark: %v", err)
		}
	}
	rest, _ := s.UnexportedPayments(ctx, 10)
	if len(rest) != 1 {
		t.Fatalf("expected 1 pending payment, got %d", len(rest))
	}

	// Editing an exported payment queues it again.
	edited := batch[0]
	edited.Description = "y"
	if err := s.UpdatePayment(ctx, edited); err != nil {
		t.Fatalf("update: %v", err)
	}
	rest, _ = s.UnexportedPayments(ctx, 10)
	if len(rest) != 2 {
		t.Fatalf("expected 2 pending payments after edit, got %d", len(rest))
	}
}

func TestResetKeepsMembersAndTaxonomy(t *testing.T) {
	ctx := context.Background()
	s := New()
	m, p := seedPlan(t, s)
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := s.GetPlan(ctx, p.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("plan survived reset: %v", err)
	}
	if _, err := s.GetMember(ctx, m.ID); err != nil {
		t.Fatalf("member removed by reset: %v", err)
	}
	cats, _ := s.ListCategories(ctx)
	if len(cats) == 0 {
		t.Fatalf("taxonomy removed by reset")
	}
}

func TestNewWithCategories(t *testing.T) {
	ctx := context.Background()
	s := NewWithCategories([]storage.CategorySeed{
		{Name: "Casa", Subcategories: []string{"Bollette", "Affitto"}},
		{Name: "Svago"},
	})
	cats, _ := s.ListCategories(ctx)
	if len(cats) != 2 || cats[0].Name != "Casa" || cats[1].Name != "Svago" {
		t.Fatalf("unexpected categories: %+v", cats)
	}
	subs, _ := s.SubcategoriesByCategory(ctx, cats[0].ID)
	if len(subs) != 2 || subs[0].Name != "Affitto" || subs[1].Name != "Bollette" {
		t.Fatalf("unexpected subcategories: %+v", subs)
	}

	added, _ := s.SeedCategories(ctx, []storage.CategorySeed{{Name: "Casa", Subcategories: []string{"Bollette", "Tasse"}}})
	if added != 1 {
		t.Fatalf("expected 1 new row, got %d", added)
	}
}

func TestFindMonthlyPlanMatchesMembers(t *testing.T) {
	s := New()
	ctx := context.Background()
	anna, plan := seedPlan(t, s)

	eve := core.Member{Email: "eve@example.com", DisplayName: "Eve"}
	if err := s.CreateMember(ctx, &eve); err != nil {
		t.Fatalf("create member: %v", err)
	}
	other := core.SpendingPlan{
		Name: "Eve", PlanType: core.PlanMonthly, CreatedBy: eve.ID,
		StartDate: core.NewDate(2024, 10, 1), EndDate: core.NewDate(2024, 10, 31),
	}
	if err := s.CreatePlan(ctx, &other); err != nil {
		t.Fatalf("create plan: %v", err)
	}

	if got, err := s.FindMonthlyPlan(ctx, 2024, 10, []string{anna.ID}); err != nil || got.ID != plan.ID {
		t.Fatalf("anna's plan: %+v %v", got, err)
	}
	if got, err := s.FindMonthlyPlan(ctx, 2024, 10, []string{eve.ID}); err != nil || got.ID != other.ID {
		t.Fatalf("eve's plan: %+v %v", got, err)
	}
	if _, err := s.FindMonthlyPlan(ctx, 2024, 10, []string{anna.ID, eve.ID}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInstallmentSeriesIsUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, plan := seedPlan(t, s)

	first := core.PlannedExpense{
		PlanID: plan.ID, Description: "Rata", Amount: decimal.NewFromInt(50),
		PaymentType: core.Shared, IsRecurring: true, TotalInstallments: 2, InstallmentNumber: 1,
		RecurringFrequency: core.Monthly,
	}
	if err := s.CreatePlannedExpense(ctx, &first); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if id, _ := s.SetParentRecurringID(ctx, first.ID, "series-a"); id != "series-a" {
		t.Fatalf("claim = %q", id)
	}
	if id, _ := s.SetParentRecurringID(ctx, first.ID, "series-b"); id != "series-a" {
		t.Fatalf("second claim = %q, want the first id", id)
	}

	second := first
	second.ID, second.InstallmentNumber, second.ParentRecurringID = "", 2, "series-a"
	if err := s.CreatePlannedExpense(ctx, &second); err != nil {
		t.Fatalf("create installment: %v", err)
	}
	dup := second
	dup.ID = ""
	if err := s.CreatePlannedExpense(ctx, &dup); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("duplicate installment: %v", err)
	}
}
