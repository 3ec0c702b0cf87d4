package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"moneymanager/internal/core"
)

// Recorder persists one event; ActivityService is the production implementation.
type Recorder interface {
	Record(ctx context.Context, ev core.BudgetEvent) error
}

// Consumer delivers events until ctx is done.
type Consumer interface {
	ConsumeEvents(ctx context.Context, handler func(ctx context.Context, ev core.BudgetEvent) error) error
}

// EventWorker moves budget events from the broker into the activity log.
type EventWorker struct {
	recorder Recorder
	handled  atomic.Int64
	failed   atomic.Int64
}

func NewEventWorker(recorder Recorder) *EventWorker {
	return &EventWorker{recorder: recorder}
}

// HandleEvent records ev. An error makes the broker redeliver it; recording is
// idempotent on the event id.
func (w *EventWorker) HandleEvent(ctx context.Context, ev core.BudgetEvent) error {
	if err := w.recorder.Record(ctx, ev); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("handle event %s: %w", ev.ID, err)
	}
	w.handled.Add(1)
	slog.InfoContext(ctx, "Budget event recorded",
		"event_id", ev.ID,
		"type", ev.Type,
		"budget_id", ev.BudgetID,
		"user_scope", ev.UserScope)
	return nil
}

// Run consumes until ctx is cancelled. Cancellation is not an error.
func (w *EventWorker) Run(ctx context.Context, consumer Consumer) error {
	err := consumer.ConsumeEvents(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stats returns how many events were recorded and how many failed.
func (w *EventWorker) Stats() (handled, failed int64) {
	return w.handled.Load(), w.failed.Load()
}
