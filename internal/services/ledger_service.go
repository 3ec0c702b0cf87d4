package services

import (
	"context"
	"fmt"
	"log/slog"

	"moneymanager/internal/core"
)

// LedgerService adds, edits and removes budget items. Every call is one
// load-modify-save of the parent budget.
type LedgerService struct {
	store     MonthlyBudgetStore
	publisher Publisher
}

func NewLedgerService(store MonthlyBudgetStore, publisher Publisher) *LedgerService {
	return &LedgerService{store: store, publisher: publisher}
}

// UpsertItem appends a new item when itemID is empty and otherwise merges patch
// onto the existing item. It returns the whole updated budget.
func (s *LedgerService) UpsertItem(ctx context.Context, budgetID string, patch core.ItemPatch, itemID string) (core.MonthlyBudget, error) {
	b, err := s.store.GetMonthlyBudget(ctx, budgetID)
	if err != nil {
		return core.MonthlyBudget{}, err
	}

	var (
		item      core.BudgetItem
		eventType core.EventType
	)
	if itemID == "" {
		item, err = b.AddItem(patch)
		eventType = core.EventItemAdded
	} else {
		item, err = b.EditItem(itemID, patch)
		eventType = core.EventItemUpdated
	}
	if err != nil {
		return core.MonthlyBudget{}, err
	}

	saved, err := s.store.SaveMonthlyBudget(ctx, b)
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("save item: %w", err)
	}

	slog.InfoContext(ctx, "Budget item saved",
		"budget_id", saved.ID,
		"item_id", item.ID,
		"category", item.CategoryName,
		"amount_cents", item.Amount.Cents,
		"created", itemID == "")
	publish(ctx, s.publisher, core.NewMonthEvent(eventType, saved, &item))
	return saved, nil
}

// DeleteItem removes one item and returns the updated budget.
func (s *LedgerService) DeleteItem(ctx context.Context, budgetID, itemID string) (core.MonthlyBudget, error) {
	b, err := s.store.GetMonthlyBudget(ctx, budgetID)
	if err != nil {
		return core.MonthlyBudget{}, err
	}
	removed, err := b.RemoveItem(itemID)
	if err != nil {
		return core.MonthlyBudget{}, err
	}

	saved, err := s.store.SaveMonthlyBudget(ctx, b)
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("delete item: %w", err)
	}

	slog.InfoContext(ctx, "Budget item deleted",
		"budget_id", saved.ID,
		"item_id", removed.ID)
	publish(ctx, s.publisher, core.NewMonthEvent(core.EventItemDeleted, saved, &removed))
	return saved, nil
}
