package core

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// NewPlan builds a plan ready for its first save.
func NewPlan(scope, name string, cats []PlanCategory) OverallPlan {
	return OverallPlan{
		ID:         uuid.NewString(),
		UserScope:  scope,
		Name:       name,
		Categories: append([]PlanCategory(nil), cats...),
	}
}

// UpdateCategory patches the category called name in place, keeping order.
func (p *OverallPlan) UpdateCategory(name string, patch PlanCategoryPatch) error {
	idx := -1
	for i, c := range p.Categories {
		if c.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	updated := p.Categories[idx]
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.DefaultBudget != nil {
		updated.DefaultBudget = *patch.DefaultBudget
	}
	cats := append([]PlanCategory(nil), p.Categories...)
	cats[idx] = updated
	candidate := *p
	candidate.Categories = cats
	if err := ValidatePlan(candidate); err != nil {
		return err
	}
	p.Categories = cats
	return nil
}

// Materialize snapshots the plan's current categories into a new month with no items.
// Later plan edits do not reach the returned budget.
func Materialize(year, month int, scope string, plan OverallPlan) MonthlyBudget {
	cats := make([]MonthlyCategory, len(plan.Categories))
	for i, c := range plan.Categories {
		cats[i] = MonthlyCategory{Name: c.Name, Budget: c.DefaultBudget}
	}
	return MonthlyBudget{
		ID:         uuid.NewString(),
		Year:       year,
		Month:      month,
		UserScope:  scope,
		Categories: cats,
		Items:      []BudgetItem{},
	}
}

// Clone returns a deep copy so stores and caches never share slices with callers.
func (b MonthlyBudget) Clone() MonthlyBudget {
	out := b
	out.Categories = append([]MonthlyCategory(nil), b.Categories...)
	out.Items = make([]BudgetItem, len(b.Items))
	for i, it := range b.Items {
		if it.Note != nil {
			note := *it.Note
			it.Note = &note
		}
		out.Items[i] = it
	}
	return out
}

// Clone returns a deep copy of the plan.
func (p OverallPlan) Clone() OverallPlan {
	out := p
	out.Categories = append([]PlanCategory(nil), p.Categories...)
	return out
}

// ReplaceCategories swaps the category list wholesale. Items are untouched, so an
// item whose category disappears stays in the ledger unassigned.
func (b *MonthlyBudget) ReplaceCategories(cats []MonthlyCategory) error {
	if err := ValidateMonthlyCategories(cats); err != nil {
		return err
	}
	b.Categories = append([]MonthlyCategory{}, cats...)
	return nil
}

func (b MonthlyBudget) itemIndex(id string) int {
	for i, it := range b.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Item looks up a ledger entry by id.
func (b MonthlyBudget) Item(id string) (BudgetItem, bool) {
	if i := b.itemIndex(id); i >= 0 {
		return b.Items[i], true
	}
	return BudgetItem{}, false
}

// AddItem appends a new entry with a fresh id.
func (b *MonthlyBudget) AddItem(p ItemPatch) (BudgetItem, error) {
	if p.Amount == nil {
		return BudgetItem{}, invalid("item.amount", "is required")
	}
	it := p.Apply(BudgetItem{ID: uuid.NewString()})
	if err := it.Validate(); err != nil {
		return BudgetItem{}, err
	}
	b.Items = append(b.Items, it)
	return it, nil
}

// EditItem merges p onto the entry with the given id. The budget is left as it
// was when the id is unknown or the merged entry is invalid.
func (b *MonthlyBudget) EditItem(id string, p ItemPatch) (BudgetItem, error) {
	i := b.itemIndex(id)
	if i < 0 {
		return BudgetItem{}, fmt.Errorf("item %s: %w", id, ErrItemNotFound)
	}
	merged := p.Apply(b.Items[i])
	if err := merged.Validate(); err != nil {
		return BudgetItem{}, err
	}
	b.Items[i] = merged
	return merged, nil
}

// RemoveItem deletes the entry with the given id.
func (b *MonthlyBudget) RemoveItem(id string) (BudgetItem, error) {
	i := b.itemIndex(id)
	if i < 0 {
		return BudgetItem{}, fmt.Errorf("item %s: %w", id, ErrItemNotFound)
	}
	removed := b.Items[i]
	b.Items = append(b.Items[:i:i], b.Items[i+1:]...)
	return removed, nil
}

// SortItemsByDateDesc returns a copy of items, most recent first. Entries on the
// same day keep their ledger order.
func SortItemsByDateDesc(items []BudgetItem) []BudgetItem {
	out := append([]BudgetItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}

// RecentItems returns at most n items, most recent first.
func RecentItems(items []BudgetItem, n int) []BudgetItem {
	sorted := SortItemsByDateDesc(items)
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
