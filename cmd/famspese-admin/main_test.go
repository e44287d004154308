package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"famspese/internal/core"
	applog "famspese/internal/log"
	"famspese/internal/storage/memory"
)

func TestRunCommands(t *testing.T) {
	ctx := context.Background()
	logger := applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard})
	store := memory.New()

	owner := core.Member{Email: "anna@example.com", DisplayName: "Anna"}
	if err := store.CreateMember(ctx, &owner); err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	plan := core.SpendingPlan{
		Name:      "January 2026",
		PlanType:  core.PlanMonthly,
		StartDate: core.NewDate(2026, 1, 1),
		EndDate:   core.NewDate(2026, 1, 31),
		IsActive:  true,
		CreatedBy: owner.ID,
		MemberIDs: []string{owner.ID},
	}
	if err := store.CreatePlan(ctx, &plan); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	entry := core.PlannedExpense{
		PlanID:             plan.ID,
		Description:        "Car loan",
		Amount:             decimal.NewFromInt(200),
		PaymentType:        core.Shared,
		Priority:           core.PriorityHigh,
		DueDate:            core.NewDate(2026, 1, 15),
		IsRecurring:        true,
		TotalInstallments:  3,
		InstallmentNumber:  1,
		RecurringFrequency: core.Monthly,
	}
	if err := store.CreatePlannedExpense(ctx, &entry); err != nil {
		t.Fatalf("CreatePlannedExpense: %v", err)
	}

	if err := run(ctx, logger, store, "", "generate-installments", []string{"-dry-run"}); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if n, _ := store.CountInstallments(ctx, entry.ID); n > 1 {
		t.Fatalf("dry run created installments")
	}

	if err := run(ctx, logger, store, "", "generate-installments", nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := store.FindMonthlyPlan(ctx, 2026, 3, plan.MemberIDs); err != nil {
		t.Fatalf("March plan should exist after generation: %v", err)
	}

	if err := run(ctx, logger, store, "", "seed-categories", nil); err != nil {
		t.Fatalf("seed-categories: %v", err)
	}

	if err := run(ctx, logger, store, "", "reset", nil); err != nil {
		t.Fatalf("reset: %v", err)
	}
	plans, err := store.ListPlansForMember(ctx, owner.ID, true)
	if err != nil || len(plans) != 0 {
		t.Fatalf("plans after reset: %d %v", len(plans), err)
	}
	if _, err := store.GetMember(ctx, owner.ID); err != nil {
		t.Fatalf("reset must keep members: %v", err)
	}

	if err := run(ctx, logger, store, "", "bogus", nil); err == nil {
		t.Fatal("unknown command should fail")
	}
}
