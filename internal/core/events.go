package core

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventPlanSaved               EventType = "plan.saved"
	EventPlanCategoryUpdated     EventType = "plan.category_updated"
	EventMonthMaterialized       EventType = "month.materialized"
	EventMonthCategoriesReplaced EventType = "month.categories_replaced"
	EventItemAdded               EventType = "item.added"
	EventItemUpdated             EventType = "item.updated"
	EventItemDeleted             EventType = "item.deleted"
)

// BudgetEvent records that a plan or monthly budget changed.
type BudgetEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	UserScope  string    `json:"userId"`
	PlanID     string    `json:"planId,omitempty"`
	BudgetID   string    `json:"budgetId,omitempty"`
	Year       int       `json:"year,omitempty"`
	Month      int       `json:"month,omitempty"`
	ItemID     string    `json:"itemId,omitempty"`
	Amount     *Money    `json:"amount,omitempty"`
	Version    int64     `json:"version"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewPlanEvent describes a change to plan p.
func NewPlanEvent(t EventType, p OverallPlan) BudgetEvent {
	return BudgetEvent{
		ID:         uuid.NewString(),
		Type:       t,
		UserScope:  p.UserScope,
		PlanID:     p.ID,
		Version:    p.Version,
		OccurredAt: time.Now().UTC(),
	}
}

// NewMonthEvent describes a change to b; item may be nil for month-level events.
func NewMonthEvent(t EventType, b MonthlyBudget, item *BudgetItem) BudgetEvent {
	ev := BudgetEvent{
		ID:         uuid.NewString(),
		Type:       t,
		UserScope:  b.UserScope,
		BudgetID:   b.ID,
		Year:       b.Year,
		Month:      b.Month,
		Version:    b.Version,
		OccurredAt: time.Now().UTC(),
	}
	if item != nil {
		amount := item.Amount
		ev.ItemID = item.ID
		ev.Amount = &amount
	}
	return ev
}
