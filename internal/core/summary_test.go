package core

import (
	"math"
	"testing"
)

func TestSummarizeEndToEnd(t *testing.T) {
	plan := NewPlan("default", "Main", []PlanCategory{{Name: "Food", DefaultBudget: Money{Cents: 30000}}})
	b := Materialize(2024, 6, "default", plan)

	if _, err := b.AddItem(ItemPatch{CategoryName: strp("Food"), Name: strp("Lunch"), Amount: moneyp(4000), Date: datep(2024, 6, 5)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	food, _ := Summarize(b).Category("Food")
	if food.Spent.Cents != 4000 || food.Overspent {
		t.Fatalf("after lunch: %+v", food)
	}

	if _, err := b.AddItem(ItemPatch{CategoryName: strp("Food"), Name: strp("Groceries"), Amount: moneyp(28000), Date: datep(2024, 6, 7)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	s := Summarize(b)
	food, _ = s.Category("Food")
	if food.Spent.Cents != 32000 || !food.Overspent {
		t.Fatalf("after groceries: %+v", food)
	}
	if math.Abs(food.PercentSpent-32000.0/30000.0) > 1e-9 {
		t.Fatalf("percent=%v", food.PercentSpent)
	}
	if s.TotalBudget.Cents != 30000 || s.TotalSpent.Cents != 32000 || s.Remaining.Cents != -2000 {
		t.Fatalf("totals: %+v", s)
	}
}

func TestSummarizeZeroBudget(t *testing.T) {
	b := MonthlyBudget{
		Categories: []MonthlyCategory{{Name: "Gifts"}},
		Items:      []BudgetItem{{CategoryName: "Gifts", Amount: Money{Cents: 999}}},
	}
	gifts, _ := Summarize(b).Category("Gifts")
	if gifts.PercentSpent != 0 || math.IsNaN(gifts.PercentSpent) || math.IsInf(gifts.PercentSpent, 0) {
		t.Fatalf("percent=%v", gifts.PercentSpent)
	}
	if !gifts.Overspent {
		t.Fatalf("expected overspent with zero budget")
	}

	empty, _ := Summarize(MonthlyBudget{Categories: []MonthlyCategory{{Name: "Idle"}}}).Category("Idle")
	if empty.PercentSpent != 0 || empty.Overspent {
		t.Fatalf("idle category: %+v", empty)
	}
}

func TestSummarizeCountsUnassignedSpend(t *testing.T) {
	b := MonthlyBudget{
		Categories: []MonthlyCategory{{Name: "Food", Budget: Money{Cents: 1000}}},
		Items: []BudgetItem{
			{CategoryName: "Food", Amount: Money{Cents: 300}},
			{CategoryName: "Removed", Amount: Money{Cents: 200}},
		},
	}
	s := Summarize(b)
	if s.TotalSpent.Cents != 500 || s.UnassignedSpent.Cents != 200 || s.Remaining.Cents != 500 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestSummarizePortfolio(t *testing.T) {
	s := SummarizePortfolio([]Investment{
		{Value: Money{Cents: 12000}, InitialInvestment: Money{Cents: 10000}},
		{Value: Money{Cents: 9000}, InitialInvestment: Money{Cents: 10000}},
	})
	if s.TotalValue.Cents != 21000 || s.TotalReturn.Cents != 1000 || math.Abs(s.ReturnPercentage-5) > 1e-9 {
		t.Fatalf("unexpected portfolio: %+v", s)
	}
	if SummarizePortfolio(nil).ReturnPercentage != 0 {
		t.Fatalf("expected 0 return for empty portfolio")
	}
}
