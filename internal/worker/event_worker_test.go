package worker

import (
	"context"
	"errors"
	"testing"

	"moneymanager/internal/core"
	"moneymanager/internal/memory"
	"moneymanager/internal/services"
)

type fakeConsumer struct {
	events []core.BudgetEvent
	err    error
}

func (f *fakeConsumer) ConsumeEvents(ctx context.Context, handler func(context.Context, core.BudgetEvent) error) error {
	for _, ev := range f.events {
		// Broker semantics: a failed delivery is retried once.
		if err := handler(ctx, ev); err != nil {
			if err := handler(ctx, ev); err != nil {
				return err
			}
		}
	}
	return f.err
}

type flakyRecorder struct {
	calls int
	inner Recorder
}

func (r *flakyRecorder) Record(ctx context.Context, ev core.BudgetEvent) error {
	r.calls++
	if r.calls == 1 {
		return errors.New("database is locked")
	}
	return r.inner.Record(ctx, ev)
}

func TestEventWorkerRecordsIntoActivityLog(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := services.New(store, &fakePublisher{}, services.Options{})
	if _, err := svc.Plans.SavePlan(ctx, "u1", "P", []core.PlanCategory{{Name: "Fun"}}); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	b, err := svc.Months.GetOrCreate(ctx, 2024, 1, "u1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	ev := core.NewMonthEvent(core.EventMonthMaterialized, b, nil)
	recorder := &flakyRecorder{inner: svc.Activity}
	w := NewEventWorker(recorder)
	consumer := &fakeConsumer{events: []core.BudgetEvent{ev, ev}, err: context.Canceled}

	if err := w.Run(ctx, consumer); err != nil {
		t.Fatalf("Run: %v", err)
	}

	events, err := svc.Activity.ForBudget(ctx, b.ID, 10)
	if err != nil {
		t.Fatalf("ForBudget: %v", err)
	}
	if len(events) != 1 || events[0].ID != ev.ID {
		t.Fatalf("activity = %+v, want the one event", events)
	}
	handled, failed := w.Stats()
	if handled != 2 || failed != 1 {
		t.Fatalf("Stats = %d handled, %d failed", handled, failed)
	}
}

func TestEventWorkerRunReturnsConsumerError(t *testing.T) {
	w := NewEventWorker(&flakyRecorder{})
	boom := errors.New("queue deleted")
	if err := w.Run(context.Background(), &fakeConsumer{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("Run = %v, want %v", err, boom)
	}
}

type fakePublisher struct{}

func (fakePublisher) PublishEvent(context.Context, core.BudgetEvent) error { return nil }
