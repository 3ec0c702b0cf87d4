package services

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"moneymanager/internal/core"
)

// RecentItemCount is how many ledger entries the dashboard shows.
const RecentItemCount = 3

// Dashboard is the home screen view of one month.
type Dashboard struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	// Summary is nil when the user has no plan yet.
	Summary     *core.MonthSummary    `json:"summary"`
	RecentItems []core.BudgetItem     `json:"recentItems"`
	Portfolio   core.PortfolioSummary `json:"portfolio"`
}

type DashboardService struct {
	months      *MonthlyService
	investments *InvestmentService
}

func NewDashboardService(months *MonthlyService, investments *InvestmentService) *DashboardService {
	return &DashboardService{months: months, investments: investments}
}

// Build loads the month (materializing it if needed) and the portfolio concurrently.
func (s *DashboardService) Build(ctx context.Context, year, month int, scope string) (Dashboard, error) {
	if err := core.ValidateYearMonth(year, month); err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{Year: year, Month: month, RecentItems: []core.BudgetItem{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.months.GetOrCreate(gctx, year, month, scope)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		summary := core.Summarize(b)
		d.Summary = &summary
		d.RecentItems = core.RecentItems(b.Items, RecentItemCount)
		return nil
	})
	g.Go(func() error {
		p, err := s.investments.Summary(gctx)
		if err != nil {
			return err
		}
		d.Portfolio = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
