package share

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"famspese/internal/core"
)

// householdPlan gives anna 300 + 125 + 133 + 388 = 946.
func householdPlan() *fakeStore {
	rent := planned("rent", "1000", core.Shared)

	school := planned("school", "500", core.Partial)

	groceries := planned("groceries", "250", core.Partial)

	car := planned("car", "133", core.Individual)
	car.DesignatedPayer = "anna"

	gym := planned("gym", "60", core.Individual)
	gym.DesignatedPayer = "marco"

	holiday := planned("holiday", "800", core.Partial)
	holiday.StaticShareFallback = decimal.NewNullDecimal(dec("388"))

	store := &fakeStore{planned: []core.PlannedExpense{rent, school, groceries, car, gym, holiday}}
	store.add(linked("p1", "school", "anna", "300"))
	store.add(linked("p2", "school", "marco", "200"))
	store.add(linked("p3", "rent", "anna", "500"))
	return store
}

func TestComputeAssignedTotal(t *testing.T) {
	agg := NewAggregator(householdPlan())
	got, err := agg.ComputeAssignedTotal(context.Background(), "plan", "anna")
	if err != nil {
		t.Fatalf("ComputeAssignedTotal: %v", err)
	}
	if core.FormatAmount(got) != "946.00" {
		t.Fatalf("assigned total = %s, want 946.00", core.FormatAmount(got))
	}
}

func TestComputeAssignedTotal_EqualsSumOfShares(t *testing.T) {
	store := householdPlan()
	agg := NewAggregator(store)
	ctx := context.Background()

	for _, member := range []string{"anna", "marco", "giulia"} {
		want := decimal.Zero
		for _, e := range store.planned {
			s, err := agg.Calculator().ComputeShare(ctx, FromPlanned(e), member)
			if err != nil {
				t.Fatalf("ComputeShare: %v", err)
			}
			want = want.Add(s)
		}
		got, err := agg.ComputeAssignedTotal(ctx, "plan", member)
		if err != nil {
			t.Fatalf("ComputeAssignedTotal: %v", err)
		}
		if !got.Equal(want) {
			t.Fatalf("%s: total %s != sum of shares %s", member, got, want)
		}
	}
}

func TestComputeAssignedTotal_OrderIndependent(t *testing.T) {
	store := householdPlan()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		rng.Shuffle(len(store.planned), func(a, b int) {
			store.planned[a], store.planned[b] = store.planned[b], store.planned[a]
		})
		rng.Shuffle(len(store.payments), func(a, b int) {
			store.payments[a], store.payments[b] = store.payments[b], store.payments[a]
		})
		got, err := NewAggregator(store).ComputeAssignedTotal(context.Background(), "plan", "anna")
		if err != nil {
			t.Fatalf("ComputeAssignedTotal: %v", err)
		}
		if core.FormatAmount(got) != "946.00" {
			t.Fatalf("shuffle %d: total = %s, want 946.00", i, core.FormatAmount(got))
		}
	}
}

func TestComputeAssignedTotal_IncludesStandalonePayments(t *testing.T) {
	store := &fakeStore{}
	store.add(core.Payment{ID: "s1", PlanID: "plan", PayerID: "anna", Amount: dec("40"),
		PaymentType: core.Individual, DesignatedPayer: "anna"})
	store.add(core.Payment{ID: "s2", PlanID: "plan", PayerID: "anna", Amount: dec("90"),
		PaymentType: core.Partial})
	store.add(core.Payment{ID: "s3", PlanID: "plan", PayerID: "marco", Amount: dec("70"),
		PaymentType: core.Shared})
	store.add(core.Payment{ID: "s4", PlanID: "other", PayerID: "anna", Amount: dec("1000"),
		PaymentType: core.Individual, DesignatedPayer: "anna"})

	agg := NewAggregator(store)
	cases := map[string]string{
		"anna":  "85.00", // 40 + 45
		"marco": "45.00", // half of the partial one
		"":      "0.00",
	}
	for member, want := range cases {
		got, err := agg.ComputeAssignedTotal(context.Background(), "plan", member)
		if err != nil {
			t.Fatalf("ComputeAssignedTotal: %v", err)
		}
		if core.FormatAmount(got) != want {
			t.Fatalf("%q: total = %s, want %s", member, core.FormatAmount(got), want)
		}
	}
}

func TestComputeAssignedTotal_RecomputedOnEveryCall(t *testing.T) {
	store := householdPlan()
	agg := NewAggregator(store)
	ctx := context.Background()

	store.add(linked("p9", "groceries", "anna", "90"))
	got, err := agg.ComputeAssignedTotal(ctx, "plan", "anna")
	if err != nil {
		t.Fatalf("ComputeAssignedTotal: %v", err)
	}
	// groceries switches from the 125 default to the 90 actually paid.
	if core.FormatAmount(got) != "911.00" {
		t.Fatalf("total = %s, want 911.00", core.FormatAmount(got))
	}
}

func TestComputeMemberTotals(t *testing.T) {
	agg := NewAggregator(householdPlan())
	plan := core.SpendingPlan{ID: "plan", MemberIDs: []string{"anna", "marco"}}
	totals, err := agg.ComputeMemberTotals(context.Background(), plan)
	if err != nil {
		t.Fatalf("ComputeMemberTotals: %v", err)
	}
	// marco: school 200 + groceries 125 + gym 60 + holiday 388.
	want := map[string]string{"anna": "946.00", "marco": "773.00"}
	for member, w := range want {
		if got := core.FormatAmount(totals[member]); got != w {
			t.Fatalf("%s total = %s, want %s", member, got, w)
		}
	}
}

func TestComputeAssignedTotal_StoreError(t *testing.T) {
	agg := NewAggregator(&fakeStore{err: errStoreDown})
	if _, err := agg.ComputeAssignedTotal(context.Background(), "plan", "anna"); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
}
