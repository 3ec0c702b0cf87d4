package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"moneymanager/internal/core"
)

// InvestmentService manages manually tracked holdings.
type InvestmentService struct {
	store InvestmentStore
}

func NewInvestmentService(store InvestmentStore) *InvestmentService {
	return &InvestmentService{store: store}
}

func (s *InvestmentService) List(ctx context.Context) ([]core.Investment, error) {
	return s.store.ListInvestments(ctx)
}

func (s *InvestmentService) Get(ctx context.Context, id string) (core.Investment, error) {
	return s.store.GetInvestment(ctx, id)
}

// Create validates in, assigns an id and derives its return percentage.
func (s *InvestmentService) Create(ctx context.Context, in core.Investment) (core.Investment, error) {
	in = normalizeInvestment(in)
	if err := in.Validate(); err != nil {
		return core.Investment{}, err
	}
	created, err := s.store.CreateInvestment(ctx, core.NewInvestment(in).WithReturn())
	if err != nil {
		return core.Investment{}, fmt.Errorf("create investment: %w", err)
	}
	slog.InfoContext(ctx, "Investment created",
		"id", created.ID,
		"ticker", created.Ticker,
		"value_cents", created.Value.Cents)
	return created, nil
}

// Update replaces every field of the holding with the given id.
func (s *InvestmentService) Update(ctx context.Context, id string, in core.Investment) (core.Investment, error) {
	in = normalizeInvestment(in)
	in.ID = id
	if err := in.Validate(); err != nil {
		return core.Investment{}, err
	}
	updated, err := s.store.UpdateInvestment(ctx, in.WithReturn())
	if err != nil {
		return core.Investment{}, fmt.Errorf("update investment: %w", err)
	}
	return updated, nil
}

func (s *InvestmentService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteInvestment(ctx, id); err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	slog.InfoContext(ctx, "Investment deleted", "id", id)
	return nil
}

// Summary totals every holding.
func (s *InvestmentService) Summary(ctx context.Context) (core.PortfolioSummary, error) {
	items, err := s.store.ListInvestments(ctx)
	if err != nil {
		return core.PortfolioSummary{}, err
	}
	return core.SummarizePortfolio(items), nil
}

func normalizeInvestment(in core.Investment) core.Investment {
	in.Name = strings.TrimSpace(in.Name)
	in.Ticker = strings.ToUpper(strings.TrimSpace(in.Ticker))
	return in
}
