// Package memory keeps plans, monthly budgets, investments and events in
// process memory. It backs DATA_BACKEND=memory and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"moneymanager/internal/core"
)

type monthKey struct {
	year  int
	month int
	scope string
}

type Store struct {
	mu          sync.Mutex
	plans       map[string]core.OverallPlan // by user scope
	months      map[string]core.MonthlyBudget
	monthIndex  map[monthKey]string
	investments map[string]core.Investment
	events      []core.BudgetEvent
	seen        map[string]struct{}
}

func New() *Store {
	return &Store{
		plans:       make(map[string]core.OverallPlan),
		months:      make(map[string]core.MonthlyBudget),
		monthIndex:  make(map[monthKey]string),
		investments: make(map[string]core.Investment),
		seen:        make(map[string]struct{}),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) FindPlan(_ context.Context, scope string) (core.OverallPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[scope]
	if !ok {
		return core.OverallPlan{}, fmt.Errorf("plan for %q: %w", scope, core.ErrNotFound)
	}
	return p.Clone(), nil
}

// SavePlan follows the same version rules as the sqlite repository: Version 0
// inserts, anything else must match the stored version.
func (s *Store) SavePlan(_ context.Context, p core.OverallPlan) (core.OverallPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, exists := s.plans[p.UserScope]
	switch {
	case p.Version == 0 && exists:
		return core.OverallPlan{}, fmt.Errorf("plan for %q: %w", p.UserScope, core.ErrAlreadyExists)
	case p.Version != 0 && (!exists || cur.ID != p.ID):
		return core.OverallPlan{}, fmt.Errorf("plan %s: %w", p.ID, core.ErrNotFound)
	case p.Version != 0 && cur.Version != p.Version:
		return core.OverallPlan{}, fmt.Errorf("plan %s: %w", p.ID, core.ErrConflict)
	}
	saved := p.Clone()
	saved.Version++
	s.plans[p.UserScope] = saved
	return saved.Clone(), nil
}

func (s *Store) FindMonthlyBudget(_ context.Context, year, month int, scope string) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.monthIndex[monthKey{year, month, scope}]
	if !ok {
		return core.MonthlyBudget{}, fmt.Errorf("monthly budget %04d-%02d for %q: %w", year, month, scope, core.ErrNotFound)
	}
	return s.months[id].Clone(), nil
}

func (s *Store) GetMonthlyBudget(_ context.Context, id string) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.months[id]
	if !ok {
		return core.MonthlyBudget{}, fmt.Errorf("monthly budget %s: %w", id, core.ErrNotFound)
	}
	return b.Clone(), nil
}

func (s *Store) CreateMonthlyBudget(_ context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := monthKey{b.Year, b.Month, b.UserScope}
	if _, taken := s.monthIndex[key]; taken {
		return core.MonthlyBudget{}, fmt.Errorf("monthly budget %04d-%02d for %q: %w", b.Year, b.Month, b.UserScope, core.ErrAlreadyExists)
	}
	if _, taken := s.months[b.ID]; taken {
		return core.MonthlyBudget{}, fmt.Errorf("monthly budget %s: %w", b.ID, core.ErrAlreadyExists)
	}
	created := b.Clone()
	created.Version = 1
	s.months[b.ID] = created
	s.monthIndex[key] = b.ID
	return created.Clone(), nil
}

func (s *Store) SaveMonthlyBudget(_ context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.months[b.ID]
	if !ok {
		return core.MonthlyBudget{}, fmt.Errorf("monthly budget %s: %w", b.ID, core.ErrNotFound)
	}
	if cur.Version != b.Version {
		return core.MonthlyBudget{}, fmt.Errorf("monthly budget %s: %w", b.ID, core.ErrConflict)
	}
	saved := b.Clone()
	// The natural key never changes after creation.
	saved.Year, saved.Month, saved.UserScope = cur.Year, cur.Month, cur.UserScope
	saved.Version++
	s.months[b.ID] = saved
	return saved.Clone(), nil
}

func (s *Store) DeleteMonthlyBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.months[id]
	if !ok {
		return fmt.Errorf("monthly budget %s: %w", id, core.ErrNotFound)
	}
	delete(s.months, id)
	delete(s.monthIndex, monthKey{b.Year, b.Month, b.UserScope})
	return nil
}

func (s *Store) ListInvestments(context.Context) ([]core.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Investment, 0, len(s.investments))
	for _, in := range s.investments {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetInvestment(_ context.Context, id string) (core.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.investments[id]
	if !ok {
		return core.Investment{}, fmt.Errorf("investment %s: %w", id, core.ErrNotFound)
	}
	return in, nil
}

func (s *Store) CreateInvestment(_ context.Context, in core.Investment) (core.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.investments[in.ID]; taken {
		return core.Investment{}, fmt.Errorf("investment %s: %w", in.ID, core.ErrAlreadyExists)
	}
	s.investments[in.ID] = in
	return in, nil
}

func (s *Store) UpdateInvestment(_ context.Context, in core.Investment) (core.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.investments[in.ID]; !ok {
		return core.Investment{}, fmt.Errorf("investment %s: %w", in.ID, core.ErrNotFound)
	}
	s.investments[in.ID] = in
	return in, nil
}

func (s *Store) DeleteInvestment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.investments[id]; !ok {
		return fmt.Errorf("investment %s: %w", id, core.ErrNotFound)
	}
	delete(s.investments, id)
	return nil
}

// RecordEvent stores ev once per id.
func (s *Store) RecordEvent(_ context.Context, ev core.BudgetEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[ev.ID]; dup {
		return nil
	}
	s.seen[ev.ID] = struct{}{}
	s.events = append(s.events, ev)
	return nil
}

// ListEvents returns up to limit events of budgetID, newest first.
func (s *Store) ListEvents(_ context.Context, budgetID string, limit int) ([]core.BudgetEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.BudgetEvent{}
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].BudgetID == budgetID {
			out = append(out, s.events[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
