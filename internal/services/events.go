package services

import (
	"context"
	"log/slog"

	"moneymanager/internal/core"
)

// publish hands ev to pub. Failures are logged and never reach the caller:
// the write that produced the event is already stored.
func publish(ctx context.Context, pub Publisher, ev core.BudgetEvent) {
	if pub == nil {
		return
	}
	if err := pub.PublishEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget event",
			"event_id", ev.ID,
			"type", ev.Type,
			"budget_id", ev.BudgetID,
			"error", err)
	}
}
