// Package storage persists members, spending plans, planned expenses,
// payments and the category taxonomy.
package storage

import (
	"context"
	"errors"

	"famspese/internal/core"
	"famspese/internal/share"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Store is implemented by SQLiteRepository and by memory.Store.
//
// Create methods assign an ID (and CreatedAt) when the given one is empty.
// Deleting a planned expense deletes its payments; deleting a plan deletes
// everything it owns. Creating a second installment with the same parent
// recurring id and number fails with ErrDuplicate.
type Store interface {
	share.PlanReader

	CreateMember(ctx context.Context, m *core.Member) error
	GetMember(ctx context.Context, id string) (core.Member, error)
	GetMemberByEmail(ctx context.Context, email string) (core.Member, error)

	CreatePlan(ctx context.Context, p *core.SpendingPlan) error
	GetPlan(ctx context.Context, id string) (core.SpendingPlan, error)
	UpdatePlan(ctx context.Context, p core.SpendingPlan) error
	DeletePlan(ctx context.Context, id string) error
	ListPlansForMember(ctx context.Context, memberID string, includeHidden bool) ([]core.SpendingPlan, error)
	AddPlanMember(ctx context.Context, planID, memberID string) error
	// FindMonthlyPlan returns the oldest monthly plan starting in the given
	// month whose member set equals memberIDs.
	FindMonthlyPlan(ctx context.Context, year, month int, memberIDs []string) (core.SpendingPlan, error)

	CreatePlannedExpense(ctx context.Context, e *core.PlannedExpense) error
	GetPlannedExpense(ctx context.Context, id string) (core.PlannedExpense, error)
	UpdatePlannedExpense(ctx context.Context, e core.PlannedExpense) error
	DeletePlannedExpense(ctx context.Context, id string) error
	ListRecurringPlannedExpenses(ctx context.Context) ([]core.PlannedExpense, error)
	CountInstallments(ctx context.Context, parentRecurringID string) (int, error)
	// SetParentRecurringID stores parentID on the entry unless it already has
	// one, and returns the id the entry ends up with.
	SetParentRecurringID(ctx context.Context, entryID, parentID string) (string, error)

	CreatePayment(ctx context.Context, p *core.Payment) error
	GetPayment(ctx context.Context, id string) (core.Payment, error)
	// UpdatePayment clears the export mark so the edit is exported again.
	UpdatePayment(ctx context.Context, p core.Payment) error
	DeletePayment(ctx context.Context, id string) error
	PaymentsByEntry(ctx context.Context, entryID string) ([]core.Payment, error)
	PaymentsByEntries(ctx context.Context, entryIDs []string) (map[string][]core.Payment, error)
	PaymentsByPlan(ctx context.Context, planID string) ([]core.Payment, error)
	PaymentsByPayer(ctx context.Context, payerID string) ([]core.Payment, error)
	UnexportedPayments(ctx context.Context, limit int) ([]core.Payment, error)
	MarkPaymentExported(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	GetSubcategory(ctx context.Context, id int64) (core.Subcategory, error)
	SubcategoriesByCategory(ctx context.Context, categoryID int64) ([]core.Subcategory, error)
	SeedCategories(ctx context.Context, seed []CategorySeed) (int, error)

	// Reset deletes payments, planned expenses and plans, keeping members
	// and the category taxonomy.
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
