package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"moneymanager/internal/core"
)

func TestStorePlanVersions(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := core.NewPlan("u1", "Household", []core.PlanCategory{{Name: "Rent", DefaultBudget: core.Money{Cents: 100}}})
	saved, err := s.SavePlan(ctx, p)
	if err != nil || saved.Version != 1 {
		t.Fatalf("insert: saved=%+v err=%v", saved, err)
	}
	if _, err := s.SavePlan(ctx, core.NewPlan("u1", "Again", nil)); !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("duplicate scope: want ErrAlreadyExists, got %v", err)
	}

	next, err := s.SavePlan(ctx, saved)
	if err != nil || next.Version != 2 {
		t.Fatalf("update: next=%+v err=%v", next, err)
	}
	if _, err := s.SavePlan(ctx, saved); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("stale update: want ErrConflict, got %v", err)
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	plan := core.NewPlan("u1", "Household", []core.PlanCategory{{Name: "Fun", DefaultBudget: core.Money{Cents: 500}}})
	b, err := s.CreateMonthlyBudget(ctx, core.Materialize(2024, 2, "u1", plan))
	if err != nil {
		t.Fatalf("CreateMonthlyBudget: %v", err)
	}

	b.Categories[0].Budget = core.Money{Cents: 1}
	got, _ := s.GetMonthlyBudget(ctx, b.ID)
	if got.Categories[0].Budget.Cents != 500 {
		t.Fatalf("caller mutation leaked into store: %+v", got.Categories)
	}
}

func TestStoreMonthlyBudgetKeyIsUnique(t *testing.T) {
	ctx := context.Background()
	s := New()
	plan := core.NewPlan("u1", "Household", nil)

	first, err := s.CreateMonthlyBudget(ctx, core.Materialize(2024, 2, "u1", plan))
	if err != nil {
		t.Fatalf("CreateMonthlyBudget: %v", err)
	}
	if _, err := s.CreateMonthlyBudget(ctx, core.Materialize(2024, 2, "u1", plan)); !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
	if _, err := s.CreateMonthlyBudget(ctx, core.Materialize(2024, 2, "u2", plan)); err != nil {
		t.Fatalf("other scope should not collide: %v", err)
	}

	found, err := s.FindMonthlyBudget(ctx, 2024, 2, "u1")
	if err != nil || found.ID != first.ID {
		t.Fatalf("FindMonthlyBudget = %+v, %v", found, err)
	}

	if err := s.DeleteMonthlyBudget(ctx, first.ID); err != nil {
		t.Fatalf("DeleteMonthlyBudget: %v", err)
	}
	if _, err := s.FindMonthlyBudget(ctx, 2024, 2, "u1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("after delete: want ErrNotFound, got %v", err)
	}
	if _, err := s.GetMonthlyBudget(ctx, first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get after delete: want ErrNotFound, got %v", err)
	}
	if err := s.DeleteMonthlyBudget(ctx, first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
	if _, err := s.CreateMonthlyBudget(ctx, core.Materialize(2024, 2, "u1", plan)); err != nil {
		t.Fatalf("key should be free after delete: %v", err)
	}
}

func TestStoreEvents(t *testing.T) {
	ctx := context.Background()
	s := New()
	b := core.MonthlyBudget{ID: "b1", UserScope: "u1", Year: 2024, Month: 1}

	older := core.NewMonthEvent(core.EventMonthMaterialized, b, nil)
	older.OccurredAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := core.NewMonthEvent(core.EventMonthCategoriesReplaced, b, nil)
	newer.OccurredAt = older.OccurredAt.Add(time.Minute)
	other := core.NewMonthEvent(core.EventMonthMaterialized, core.MonthlyBudget{ID: "b2"}, nil)

	for _, ev := range []core.BudgetEvent{newer, older, older, other} {
		if err := s.RecordEvent(ctx, ev); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}
	events, _ := s.ListEvents(ctx, "b1", 0)
	if len(events) != 2 || events[0].ID != newer.ID || events[1].ID != older.ID {
		t.Fatalf("ListEvents = %+v", events)
	}
	limited, _ := s.ListEvents(ctx, "b1", 1)
	if len(limited) != 1 || limited[0].ID != newer.ID {
		t.Fatalf("limited = %+v", limited)
	}
}
