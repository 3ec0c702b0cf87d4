package core

// CategorySummary is the derived view of one monthly category.
type CategorySummary struct {
	Name         string  `json:"name"`
	Budget       Money   `json:"budget"`
	Spent        Money   `json:"spent"`
	Remaining    Money   `json:"remaining"`
	PercentSpent float64 `json:"percentSpent"`
	Overspent    bool    `json:"overspent"`
}

// MonthSummary is a compact summary for a specific year+month.
type MonthSummary struct {
	BudgetID    string `json:"budgetId"`
	Year        int    `json:"year"`
	Month       int    `json:"month"` // 1-12
	TotalBudget Money  `json:"totalBudget"`
	TotalSpent  Money  `json:"totalSpent"`
	Remaining   Money  `json:"remaining"`
	// UnassignedSpent is spend on items whose category is not in the month.
	UnassignedSpent Money             `json:"unassignedSpent"`
	Categories      []CategorySummary `json:"categories"`
}

// Summarize derives totals, per-category spend and overspend flags. It does no I/O.
func Summarize(b MonthlyBudget) MonthSummary {
	spent := SpentByCategory(b.Items)

	s := MonthSummary{
		BudgetID:   b.ID,
		Year:       b.Year,
		Month:      b.Month,
		Categories: make([]CategorySummary, 0, len(b.Categories)),
	}
	for _, it := range b.Items {
		s.TotalSpent = s.TotalSpent.Add(it.Amount)
	}

	assigned := Money{}
	known := make(map[string]struct{}, len(b.Categories))
	for _, c := range b.Categories {
		s.TotalBudget = s.TotalBudget.Add(c.Budget)
		catSpent := spent[c.Name]
		s.Categories = append(s.Categories, CategorySummary{
			Name:         c.Name,
			Budget:       c.Budget,
			Spent:        catSpent,
			Remaining:    c.Budget.Sub(catSpent),
			PercentSpent: PercentSpent(catSpent, c.Budget),
			Overspent:    IsOverspent(catSpent, c.Budget),
		})
		if _, dup := known[c.Name]; !dup {
			assigned = assigned.Add(catSpent)
			known[c.Name] = struct{}{}
		}
	}
	s.Remaining = s.TotalBudget.Sub(s.TotalSpent)
	s.UnassignedSpent = s.TotalSpent.Sub(assigned)
	return s
}

// SpentByCategory sums item amounts per category name.
func SpentByCategory(items []BudgetItem) map[string]Money {
	out := make(map[string]Money)
	for _, it := range items {
		out[it.CategoryName] = out[it.CategoryName].Add(it.Amount)
	}
	return out
}

// PercentSpent is spent/budget as a ratio (1.0 == fully spent). A zero budget
// yields 0 so renderers never see Inf or NaN.
func PercentSpent(spent, budget Money) float64 {
	if budget.Cents == 0 {
		return 0
	}
	return float64(spent.Cents) / float64(budget.Cents)
}

// IsOverspent reports spend strictly above budget; any spend on a zero budget counts.
func IsOverspent(spent, budget Money) bool {
	return spent.Cents > budget.Cents
}

// Category returns the summary row for name.
func (s MonthSummary) Category(name string) (CategorySummary, bool) {
	for _, c := range s.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return CategorySummary{}, false
}
