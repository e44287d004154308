package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateAddMonths(t *testing.T) {
	cases := []struct {
		start Date
		n     int
		want  string
	}{
		{NewDate(2025, 1, 15), 1, "2025-02-15"},
		{NewDate(2025, 1, 31), 1, "2025-02-28"},
		{NewDate(2024, 1, 31), 1, "2024-02-29"},
		{NewDate(2025, 11, 30), 3, "2026-02-28"},
		{NewDate(2025, 6, 1), 0, "2025-06-01"},
	}
	for _, tc := range cases {
		if got := tc.start.AddMonths(tc.n).String(); got != tc.want {
			t.Fatalf("%s + %d months = %s, want %s", tc.start, tc.n, got, tc.want)
		}
	}
}

func TestDateMonthBounds(t *testing.T) {
	first, last := NewDate(2024, 2, 10).MonthBounds()
	if first.String() != "2024-02-01" || last.String() != "2024-02-29" {
		t.Fatalf("unexpected bounds %s..%s", first, last)
	}
}

func validPlanned() PlannedExpense {
	return PlannedExpense{
		Description:       "School fee",
		Amount:            decimal.RequireFromString("400"),
		PaymentType:       Partial,
		Priority:          PriorityMedium,
		TotalInstallments: 1,
		InstallmentNumber: 1,
	}
}

func TestPlannedExpenseValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*PlannedExpense)
		want   error
	}{
		{"valid", func(*PlannedExpense) {}, nil},
		{"empty description", func(e *PlannedExpense) { e.Description = "  " }, ErrEmptyDescription},
		{"long description", func(e *PlannedExpense) { e.Description = strings.Repeat("x", 201) }, ErrDescriptionTooLong},
		{"zero amount", func(e *PlannedExpense) { e.Amount = decimal.Zero }, ErrInvalidAmount},
		{"sub-cent amount", func(e *PlannedExpense) { e.Amount = decimal.RequireFromString("10.005") }, ErrInvalidAmount},
		{"bad payment type", func(e *PlannedExpense) { e.PaymentType = "split" }, ErrInvalidPaymentType},
		{"partial with payer", func(e *PlannedExpense) { e.DesignatedPayer = "m1" }, ErrPartialWithPayer},
		{"individual with payer", func(e *PlannedExpense) {
			e.PaymentType = Individual
			e.DesignatedPayer = "m1"
		}, nil},
		{"negative fallback", func(e *PlannedExpense) {
			e.StaticShareFallback = decimal.NewNullDecimal(decimal.NewFromInt(-1))
		}, ErrInvalidFallback},
		{"sub-cent fallback", func(e *PlannedExpense) {
			e.StaticShareFallback = decimal.NewNullDecimal(decimal.RequireFromString("0.004"))
		}, ErrInvalidFallback},
		{"bad priority", func(e *PlannedExpense) { e.Priority = "someday" }, ErrInvalidPriority},
		{"installment out of range", func(e *PlannedExpense) { e.InstallmentNumber = 2 }, ErrInvalidInstallments},
		{"recurring without frequency", func(e *PlannedExpense) {
			e.IsRecurring = true
			e.TotalInstallments = 3
		}, ErrInvalidFrequency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validPlanned()
			tc.mutate(&e)
			err := e.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPaymentValidate(t *testing.T) {
	linked := Payment{
		Amount:           decimal.RequireFromString("300"),
		PayerID:          "m1",
		PlannedExpenseID: "pe1",
		Date:             NewDate(2025, 3, 1),
	}
	if err := linked.Validate(); err != nil {
		t.Fatalf("linked payment should be valid without split terms, got %v", err)
	}

	standalone := linked
	standalone.PlannedExpenseID = ""
	standalone.Description = "Pharmacy"
	if err := standalone.Validate(); !errors.Is(err, ErrInvalidPaymentType) {
		t.Fatalf("stand-alone payment needs a payment type, got %v", err)
	}
	standalone.PaymentType = Partial
	standalone.DesignatedPayer = "m2"
	if err := standalone.Validate(); !errors.Is(err, ErrPartialWithPayer) {
		t.Fatalf("expected ErrPartialWithPayer, got %v", err)
	}
	standalone.DesignatedPayer = ""
	if err := standalone.Validate(); err != nil {
		t.Fatalf("expected valid stand-alone payment, got %v", err)
	}

	tiny := linked
	tiny.Amount = decimal.RequireFromString("0.004")
	if err := tiny.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("sub-cent payment should be rejected, got %v", err)
	}

	noPayer := linked
	noPayer.PayerID = ""
	if err := noPayer.Validate(); !errors.Is(err, ErrMissingPayer) {
		t.Fatalf("expected ErrMissingPayer, got %v", err)
	}
}

func TestSpendingPlanValidate(t *testing.T) {
	p := SpendingPlan{
		Name:      "March",
		PlanType:  PlanMonthly,
		StartDate: NewDate(2025, 3, 1),
		EndDate:   NewDate(2025, 3, 31),
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	p.EndDate = NewDate(2025, 2, 1)
	if err := p.Validate(); !errors.Is(err, ErrInvalidPlanPeriod) {
		t.Fatalf("expected ErrInvalidPlanPeriod, got %v", err)
	}
	p.EndDate = NewDate(2025, 3, 31)
	p.TotalBudget = decimal.NewNullDecimal(decimal.Zero)
	if err := p.Validate(); !errors.Is(err, ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
}

func TestValidEmail(t *testing.T) {
	for in, want := range map[string]bool{
		"anna@example.com": true,
		"anna":             false,
		"@example.com":     false,
		"anna@":            false,
		"a@b@c":            false,
	} {
		if got := ValidEmail(in); got != want {
			t.Fatalf("ValidEmail(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHasSameMembers(t *testing.T) {
	p := SpendingPlan{MemberIDs: []string{"anna", "marco"}}
	tests := []struct {
		ids  []string
		want bool
	}{
		{[]string{"marco", "anna"}, true},
		{[]string{"anna", "marco", "anna"}, true},
		{[]string{"anna"}, false},
		{[]string{"anna", "marco", "eve"}, false},
		{[]string{"anna", "eve"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := p.HasSameMembers(tt.ids); got != tt.want {
			t.Errorf("HasSameMembers(%v) = %v, want %v", tt.ids, got, tt.want)
		}
	}
}
