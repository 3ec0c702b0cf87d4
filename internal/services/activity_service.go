package services

import (
	"context"
	"fmt"

	"moneymanager/internal/core"
)

// ActivityService records budget events and serves them back per budget.
// It also satisfies Publisher so a process without a broker can record
// events directly.
type ActivityService struct {
	events EventStore
	months MonthlyBudgetStore
}

func NewActivityService(events EventStore, months MonthlyBudgetStore) *ActivityService {
	return &ActivityService{events: events, months: months}
}

// Record stores ev. Redelivered events are ignored by the store.
func (s *ActivityService) Record(ctx context.Context, ev core.BudgetEvent) error {
	if ev.ID == "" {
		return fmt.Errorf("record event: missing id")
	}
	if err := s.events.RecordEvent(ctx, ev); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

func (s *ActivityService) PublishEvent(ctx context.Context, ev core.BudgetEvent) error {
	return s.Record(ctx, ev)
}

// ForBudget lists recent events of an existing budget, newest first.
func (s *ActivityService) ForBudget(ctx context.Context, budgetID string, limit int) ([]core.BudgetEvent, error) {
	if _, err := s.months.GetMonthlyBudget(ctx, budgetID); err != nil {
		return nil, err
	}
	return s.events.ListEvents(ctx, budgetID, limit)
}
