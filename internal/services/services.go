package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moneymanager/internal/cache"
	"moneymanager/internal/core"
)

// Closer is implemented by publishers that hold a connection.
type Closer interface {
	Close() error
}

// Services bundles every application service over one repository and publisher.
type Services struct {
	Plans       *PlanService
	Months      *MonthlyService
	Ledger      *LedgerService
	Investments *InvestmentService
	Activity    *ActivityService
	Dashboard   *DashboardService

	repo      Repository
	publisher Publisher
	caches    *cache.Manager
}

// Options tune the service bundle.
type Options struct {
	// PlanCacheTTL is how long a plan read stays cached; 0 disables the cache.
	PlanCacheTTL  time.Duration
	PlanCacheSize int
}

// New wires the services. A nil publisher records events directly through
// the activity service.
func New(repo Repository, publisher Publisher, opts Options) *Services {
	s := &Services{repo: repo, caches: cache.NewManager()}
	s.Activity = NewActivityService(repo, repo)
	if publisher == nil {
		publisher = s.Activity
	}
	s.publisher = publisher

	var planCache cache.Cache[core.OverallPlan]
	if opts.PlanCacheTTL > 0 {
		size := opts.PlanCacheSize
		if size <= 0 {
			size = 256
		}
		lru := cache.NewLRUCache[core.OverallPlan](size, opts.PlanCacheTTL)
		s.caches.Register("plans", lru)
		planCache = lru
	}

	s.Plans = NewPlanService(repo, publisher, planCache)
	s.Months = NewMonthlyService(repo, s.Plans, publisher)
	s.Ledger = NewLedgerService(repo, publisher)
	s.Investments = NewInvestmentService(repo)
	s.Dashboard = NewDashboardService(s.Months, s.Investments)
	return s
}

// Start runs background cache cleanup until ctx is done.
func (s *Services) Start(ctx context.Context, cleanupInterval time.Duration) {
	s.caches.StartCleanup(ctx, cleanupInterval)
}

// Ready reports whether the repository answers.
func (s *Services) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Close stops cache cleanup and closes the publisher (when it holds a
// connection) and the repository.
func (s *Services) Close() error {
	var errs []error

	s.caches.Stop()

	if c, ok := s.publisher.(Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("repository: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close services: %w", errors.Join(errs...))
	}
	return nil
}
