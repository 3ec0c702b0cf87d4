package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache is the read-through cache contract services depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically evicts expired entries from its registered caches.
type Manager struct {
	mu      sync.Mutex
	caches  map[string]Cleaner
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewManager() *Manager {
	return &Manager{caches: make(map[string]Cleaner)}
}

// Register adds a cache under name. Registering after StartCleanup is allowed.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// StartCleanup sweeps every interval until ctx is done or Stop is called.
// Calling it twice has no effect.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || interval <= 0 {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.started = true
	go m.cleanup(ctx, interval)
}

func (m *Manager) cleanup(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep cleans every registered cache once and returns how many entries went.
func (m *Manager) Sweep(ctx context.Context) int {
	m.mu.Lock()
	caches := make(map[string]Cleaner, len(m.caches))
	for name, c := range m.caches {
		caches[name] = c
	}
	m.mu.Unlock()

	total := 0
	for name, c := range caches {
		if n := c.CleanExpired(); n > 0 {
			slog.DebugContext(ctx, "Cache entries expired", "cache", name, "removed", n)
			total += n
		}
	}
	return total
}

// Stop ends the cleanup goroutine and waits for it. Safe to call when never started.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
