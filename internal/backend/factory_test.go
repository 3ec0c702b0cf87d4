package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"moneymanager/internal/config"
	"moneymanager/internal/core"
	"moneymanager/internal/services"
)

type fakePublisher struct{ closed bool }

func (p *fakePublisher) PublishEvent(context.Context, core.BudgetEvent) error { return nil }
func (p *fakePublisher) Close() error                                         { p.closed = true; return nil }

func newTestFactory() *DefaultFactory {
	return NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "db", "mm.db")}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "sheets"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestFactory().CreateBackend(context.Background(), tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer res.Cleanup()

			if res.Publisher != nil {
				t.Fatal("publisher without AMQP URL")
			}
			if _, err := res.Repository.FindPlan(context.Background(), "u1"); !errors.Is(err, core.ErrNotFound) {
				t.Fatalf("FindPlan on new backend: %v", err)
			}
		})
	}
}

func TestCreateBackendBrokerUnavailable(t *testing.T) {
	f := newTestFactory()
	f.dial = func(string, string, string) (services.Publisher, error) {
		return nil, errors.New("connection refused")
	}
	res, err := f.CreateBackend(context.Background(), Config{
		Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "x", AMQPQueue: "q",
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if res.Publisher != nil {
		t.Fatal("publisher set although broker is down")
	}
}

func TestCreateBackendWithBroker(t *testing.T) {
	pub := &fakePublisher{}
	f := newTestFactory()
	f.dial = func(string, string, string) (services.Publisher, error) { return pub, nil }

	res, err := f.CreateBackend(context.Background(), Config{
		Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "x", AMQPQueue: "q",
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if res.Publisher != pub {
		t.Fatalf("publisher = %v", res.Publisher)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if !pub.closed {
		t.Fatal("publisher not closed by cleanup")
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "memory", AMQPExchange: "x", AMQPQueue: "q"}
	c, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if c.Type != MemoryBackend || c.AMQPQueue != "q" {
		t.Fatalf("config = %+v", c)
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "mongo"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
