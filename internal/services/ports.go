package services

import (
	"context"

	"moneymanager/internal/core"
)

// Ports for the persistence layer. internal/storage and internal/memory both
// satisfy Repository.
type (
	// PlanStore persists one master plan per user scope. SavePlan inserts when
	// Version is 0 and otherwise requires the stored version to match.
	PlanStore interface {
		FindPlan(ctx context.Context, scope string) (core.OverallPlan, error)
		SavePlan(ctx context.Context, p core.OverallPlan) (core.OverallPlan, error)
	}

	// MonthlyBudgetStore persists whole MonthlyBudget aggregates. CreateMonthlyBudget
	// returns core.ErrAlreadyExists when the (year, month, scope) key is taken.
	// DeleteMonthlyBudget removes the items with their budget.
	MonthlyBudgetStore interface {
		FindMonthlyBudget(ctx context.Context, year, month int, scope string) (core.MonthlyBudget, error)
		GetMonthlyBudget(ctx context.Context, id string) (core.MonthlyBudget, error)
		CreateMonthlyBudget(ctx context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error)
		SaveMonthlyBudget(ctx context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error)
		DeleteMonthlyBudget(ctx context.Context, id string) error
	}

	InvestmentStore interface {
		ListInvestments(ctx context.Context) ([]core.Investment, error)
		GetInvestment(ctx context.Context, id string) (core.Investment, error)
		CreateInvestment(ctx context.Context, in core.Investment) (core.Investment, error)
		UpdateInvestment(ctx context.Context, in core.Investment) (core.Investment, error)
		DeleteInvestment(ctx context.Context, id string) error
	}

	// EventStore keeps the activity log. RecordEvent must ignore an id it already holds.
	EventStore interface {
		RecordEvent(ctx context.Context, ev core.BudgetEvent) error
		ListEvents(ctx context.Context, budgetID string, limit int) ([]core.BudgetEvent, error)
	}

	Repository interface {
		PlanStore
		MonthlyBudgetStore
		InvestmentStore
		EventStore
		Ping(ctx context.Context) error
		Close() error
	}

	// Publisher delivers budget events. The AMQP client is the production
	// implementation; ActivityService records them in-process.
	Publisher interface {
		PublishEvent(ctx context.Context, ev core.BudgetEvent) error
	}
)
