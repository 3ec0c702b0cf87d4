package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"moneymanager/internal/core"
)

// PlanReader is the part of PlanService the materializer needs. Current must
// return the stored plan, not a cached copy.
type PlanReader interface {
	Current(ctx context.Context, scope string) (core.OverallPlan, error)
}

// MonthlyService materializes monthly budgets from the plan and edits their
// category lists.
type MonthlyService struct {
	store     MonthlyBudgetStore
	plans     PlanReader
	publisher Publisher
	inflight  singleflight.Group
}

func NewMonthlyService(store MonthlyBudgetStore, plans PlanReader, publisher Publisher) *MonthlyService {
	return &MonthlyService{
		store:     store,
		plans:     plans,
		publisher: publisher,
	}
}

// GetOrCreate returns the budget for (year, month, scope), creating it from the
// current plan on first access. An existing budget is returned as stored, even
// if the plan changed since. Without a plan the result is core.ErrNotFound.
func (s *MonthlyService) GetOrCreate(ctx context.Context, year, month int, scope string) (core.MonthlyBudget, error) {
	if err := core.ValidateYearMonth(year, month); err != nil {
		return core.MonthlyBudget{}, err
	}
	scope = core.ScopeOrDefault(scope)

	key := fmt.Sprintf("%04d-%02d/%s", year, month, scope)
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		// Shared by every caller waiting on key; one cancelled request must not fail the rest.
		return s.getOrCreate(context.WithoutCancel(ctx), year, month, scope)
	})
	if err != nil {
		return core.MonthlyBudget{}, err
	}
	return v.(core.MonthlyBudget).Clone(), nil
}

func (s *MonthlyService) getOrCreate(ctx context.Context, year, month int, scope string) (core.MonthlyBudget, error) {
	b, err := s.store.FindMonthlyBudget(ctx, year, month, scope)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.MonthlyBudget{}, fmt.Errorf("find monthly budget: %w", err)
	}

	plan, err := s.plans.Current(ctx, scope)
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("materialize %04d-%02d: %w", year, month, err)
	}

	created, err := s.store.CreateMonthlyBudget(ctx, core.Materialize(year, month, scope, plan))
	if errors.Is(err, core.ErrAlreadyExists) {
		// Lost the race to another process; its budget wins.
		return s.store.FindMonthlyBudget(ctx, year, month, scope)
	}
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("create monthly budget: %w", err)
	}

	slog.InfoContext(ctx, "Monthly budget materialized",
		"budget_id", created.ID,
		"year", year,
		"month", month,
		"user_scope", scope,
		"categories", len(created.Categories))
	publish(ctx, s.publisher, core.NewMonthEvent(core.EventMonthMaterialized, created, nil))
	return created, nil
}

// Reset deletes the stored budget for (year, month, scope) with all of its
// items. The next GetOrCreate copies the plan again.
func (s *MonthlyService) Reset(ctx context.Context, year, month int, scope string) error {
	if err := core.ValidateYearMonth(year, month); err != nil {
		return err
	}
	scope = core.ScopeOrDefault(scope)

	b, err := s.store.FindMonthlyBudget(ctx, year, month, scope)
	if err != nil {
		return err
	}
	if err := s.store.DeleteMonthlyBudget(ctx, b.ID); err != nil {
		return fmt.Errorf("reset %04d-%02d: %w", year, month, err)
	}
	slog.InfoContext(ctx, "Monthly budget reset",
		"budget_id", b.ID,
		"year", year,
		"month", month,
		"user_scope", scope,
		"items", len(b.Items))
	return nil
}

// Get loads a budget by id.
func (s *MonthlyService) Get(ctx context.Context, id string) (core.MonthlyBudget, error) {
	return s.store.GetMonthlyBudget(ctx, id)
}

// ReplaceCategories swaps the whole category list of a budget. Items are kept,
// including those whose category no longer exists.
func (s *MonthlyService) ReplaceCategories(ctx context.Context, id string, cats []core.MonthlyCategory) (core.MonthlyBudget, error) {
	b, err := s.store.GetMonthlyBudget(ctx, id)
	if err != nil {
		return core.MonthlyBudget{}, err
	}

	normalized := make([]core.MonthlyCategory, len(cats))
	for i, c := range cats {
		normalized[i] = core.MonthlyCategory{Name: strings.TrimSpace(c.Name), Budget: c.Budget}
	}
	if err := b.ReplaceCategories(normalized); err != nil {
		return core.MonthlyBudget{}, err
	}

	saved, err := s.store.SaveMonthlyBudget(ctx, b)
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("replace categories: %w", err)
	}

	slog.InfoContext(ctx, "Monthly categories replaced",
		"budget_id", saved.ID,
		"categories", len(saved.Categories),
		"version", saved.Version)
	publish(ctx, s.publisher, core.NewMonthEvent(core.EventMonthCategoriesReplaced, saved, nil))
	return saved, nil
}

// Summary derives totals and per-category figures for a budget.
func (s *MonthlyService) Summary(ctx context.Context, id string) (core.MonthSummary, error) {
	b, err := s.store.GetMonthlyBudget(ctx, id)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return core.Summarize(b), nil
}
