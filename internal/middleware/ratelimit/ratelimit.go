package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Limiter enforces a fixed per-client quota of writes per window.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	limit   int
	window  time.Duration
	now     func() time.Time

	allowed  int64
	rejected int64
}

type clientWindow struct {
	count   int
	resetAt time.Time
}

// Stats counts decisions since the limiter was created.
type Stats struct {
	Allowed  int64
	Rejected int64
	Clients  int
}

// New creates a limiter allowing limit requests per minute for each client.
func New(limit int) *Limiter {
	return NewWithWindow(limit, time.Minute)
}

func NewWithWindow(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 1
	}
	return &Limiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow reports whether client may make another request and, if not, how long
// until its window resets.
func (l *Limiter) Allow(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[client]
	if !ok || !now.Before(w.resetAt) {
		w = &clientWindow{resetAt: now.Add(l.window)}
		l.clients[client] = w
	}
	if w.count >= l.limit {
		atomic.AddInt64(&l.rejected, 1)
		return false, w.resetAt.Sub(now)
	}
	w.count++
	atomic.AddInt64(&l.allowed, 1)
	return true, 0
}

// Sweep forgets clients whose window has ended.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for client, w := range l.clients {
		if !now.Before(w.resetAt) {
			delete(l.clients, client)
			removed++
		}
	}
	return removed
}

// Run sweeps stale clients every window until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	clients := len(l.clients)
	l.mu.Unlock()
	return Stats{
		Allowed:  atomic.LoadInt64(&l.allowed),
		Rejected: atomic.LoadInt64(&l.rejected),
		Clients:  clients,
	}
}

// Middleware limits state-changing requests. Reads pass through untouched.
// onLimit is called for every rejected request and may be nil.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(*http.Request, string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			client := extractIP(r)
			ok, retryAfter := l.Allow(client)
			if !ok {
				if onLimit != nil {
					onLimit(r, client)
				}
				seconds := int(retryAfter.Round(time.Second) / time.Second)
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
