package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"moneymanager/internal/cache"
	"moneymanager/internal/core"
)

// PlanService owns the master plan of each user scope.
type PlanService struct {
	store     PlanStore
	publisher Publisher
	cache     cache.Cache[core.OverallPlan]
}

// NewPlanService wires the plan store. publisher and planCache may be nil.
func NewPlanService(store PlanStore, publisher Publisher, planCache cache.Cache[core.OverallPlan]) *PlanService {
	return &PlanService{
		store:     store,
		publisher: publisher,
		cache:     planCache,
	}
}

// GetPlan returns the plan of scope or core.ErrNotFound.
func (s *PlanService) GetPlan(ctx context.Context, scope string) (core.OverallPlan, error) {
	scope = core.ScopeOrDefault(scope)
	if s.cache != nil {
		if p, ok := s.cache.Get(scope); ok {
			return p.Clone(), nil
		}
	}

	p, err := s.store.FindPlan(ctx, scope)
	if err != nil {
		return core.OverallPlan{}, err
	}
	s.remember(p)
	return p, nil
}

// Current reads the plan of scope from the store, bypassing the cache. Month
// materialization copies from it.
func (s *PlanService) Current(ctx context.Context, scope string) (core.OverallPlan, error) {
	return s.store.FindPlan(ctx, core.ScopeOrDefault(scope))
}

// SavePlan creates the plan of scope or replaces its name and full category list.
func (s *PlanService) SavePlan(ctx context.Context, scope, name string, cats []core.PlanCategory) (core.OverallPlan, error) {
	scope = core.ScopeOrDefault(scope)
	cats = normalizePlanCategories(cats)
	name = strings.TrimSpace(name)
	if err := core.ValidatePlan(core.OverallPlan{UserScope: scope, Name: name, Categories: cats}); err != nil {
		return core.OverallPlan{}, err
	}

	saved, err := s.upsert(ctx, scope, name, cats)
	if errors.Is(err, core.ErrAlreadyExists) {
		// Another writer created the plan first; replace theirs.
		saved, err = s.upsert(ctx, scope, name, cats)
	}
	if err != nil {
		s.forget(scope)
		return core.OverallPlan{}, fmt.Errorf("save plan: %w", err)
	}

	s.remember(saved)
	slog.InfoContext(ctx, "Plan saved",
		"plan_id", saved.ID,
		"user_scope", saved.UserScope,
		"categories", len(saved.Categories),
		"version", saved.Version)
	publish(ctx, s.publisher, core.NewPlanEvent(core.EventPlanSaved, saved))
	return saved, nil
}

func (s *PlanService) upsert(ctx context.Context, scope, name string, cats []core.PlanCategory) (core.OverallPlan, error) {
	current, err := s.store.FindPlan(ctx, scope)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return s.store.SavePlan(ctx, core.NewPlan(scope, name, cats))
	case err != nil:
		return core.OverallPlan{}, err
	}
	current.Name = name
	current.Categories = cats
	return s.store.SavePlan(ctx, current)
}

// UpdateCategory patches one category of the plan in place. A missing plan or
// category yields core.ErrNotFound.
func (s *PlanService) UpdateCategory(ctx context.Context, scope, categoryName string, patch core.PlanCategoryPatch) (core.OverallPlan, error) {
	scope = core.ScopeOrDefault(scope)
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}

	// Always start from the stored version, never the cache.
	p, err := s.store.FindPlan(ctx, scope)
	if err != nil {
		return core.OverallPlan{}, err
	}
	if err := p.UpdateCategory(categoryName, patch); err != nil {
		return core.OverallPlan{}, err
	}
	saved, err := s.store.SavePlan(ctx, p)
	if err != nil {
		s.forget(scope)
		return core.OverallPlan{}, fmt.Errorf("update plan category: %w", err)
	}

	s.remember(saved)
	slog.InfoContext(ctx, "Plan category updated",
		"plan_id", saved.ID,
		"category", categoryName,
		"version", saved.Version)
	publish(ctx, s.publisher, core.NewPlanEvent(core.EventPlanCategoryUpdated, saved))
	return saved, nil
}

func (s *PlanService) remember(p core.OverallPlan) {
	if s.cache != nil {
		s.cache.Set(p.UserScope, p.Clone())
	}
}

func (s *PlanService) forget(scope string) {
	if s.cache != nil {
		s.cache.Delete(scope)
	}
}

func normalizePlanCategories(cats []core.PlanCategory) []core.PlanCategory {
	out := make([]core.PlanCategory, len(cats))
	for i, c := range cats {
		out[i] = core.PlanCategory{Name: strings.TrimSpace(c.Name), DefaultBudget: c.DefaultBudget}
	}
	return out
}
