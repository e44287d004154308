package share

import (
	"context"
	"errors"
	"sync"

	"famspese/internal/core"
)

type fakeStore struct {
	mu       sync.Mutex
	planned  []core.PlannedExpense
	payments []core.Payment
	err      error
}

func (f *fakeStore) add(p core.Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, p)
}

func (f *fakeStore) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.payments {
		if p.ID == id {
			f.payments = append(f.payments[:i], f.payments[i+1:]...)
			return
		}
	}
}

func (f *fakeStore) PaymentsByEntryAndMember(_ context.Context, entryID, memberID string) ([]core.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []core.Payment
	for _, p := range f.payments {
		if p.PlannedExpenseID == entryID && p.PayerID == memberID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) PlannedExpensesByPlan(_ context.Context, planID string) ([]core.PlannedExpense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []core.PlannedExpense
	for _, e := range f.planned {
		if e.PlanID == planID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) StandalonePaymentsByPlan(_ context.Context, planID string) ([]core.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []core.Payment
	for _, p := range f.payments {
		if p.PlanID == planID && p.IsStandalone() {
			out = append(out, p)
		}
	}
	return out, nil
}

var errStoreDown = errors.New("store unavailable")
