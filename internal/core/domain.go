package core

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultUserScope is used when a request carries no userId.
const DefaultUserScope = "default"

const dateLayout = "2006-01-02"

type (
	// Date is a calendar day at UTC midnight.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	PlanCategory struct {
		Name          string `json:"name"`
		DefaultBudget Money  `json:"defaultBudget"`
	}

	// PlanCategoryPatch updates one category of a plan; nil fields keep their value.
	PlanCategoryPatch struct {
		Name          *string `json:"name,omitempty"`
		DefaultBudget *Money  `json:"defaultBudget,omitempty"`
	}

	// OverallPlan is the master plan that new months are copied from.
	OverallPlan struct {
		ID         string         `json:"id"`
		UserScope  string         `json:"userId"`
		Name       string         `json:"name"`
		Categories []PlanCategory `json:"categories"`
		Version    int64          `json:"version"`
	}

	MonthlyCategory struct {
		Name   string `json:"name"`
		Budget Money  `json:"budget"`
	}

	BudgetItem struct {
		ID           string  `json:"id"`
		CategoryName string  `json:"categoryName"`
		Name         string  `json:"name"`
		Amount       Money   `json:"amount"`
		Date         Date    `json:"date"`
		Note         *string `json:"note,omitempty"`
	}

	// ItemPatch carries the fields of an item write. On insert the required
	// fields must be present; on edit nil fields keep their prior values.
	ItemPatch struct {
		CategoryName *string `json:"categoryName,omitempty"`
		Name         *string `json:"name,omitempty"`
		Amount       *Money  `json:"amount,omitempty"`
		Date         *Date   `json:"date,omitempty"`
		Note         *string `json:"note,omitempty"`
	}

	// MonthlyBudget is the aggregate root for one (year, month, userScope).
	// Items are owned by the budget and persisted with it.
	MonthlyBudget struct {
		ID         string            `json:"id"`
		Year       int               `json:"year"`
		Month      int               `json:"month"`
		UserScope  string            `json:"userId"`
		Categories []MonthlyCategory `json:"categories"`
		Items      []BudgetItem      `json:"items"`
		Version    int64             `json:"version"`
	}
)

// ScopeOrDefault trims scope and falls back to DefaultUserScope when it is empty.
func ScopeOrDefault(scope string) string {
	if s := strings.TrimSpace(scope); s != "" {
		return s
	}
	return DefaultUserScope
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts "2006-01-02" or an RFC 3339 timestamp; the time of day is dropped.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: must be YYYY-MM-DD", ErrInvalidDate)
	}
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(d.Format(dateLayout))), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Date{}
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("%w: must be a string", ErrInvalidDate)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ValidateYearMonth checks the key of a monthly budget.
func ValidateYearMonth(year, month int) error {
	if year < 1 || year > 9999 {
		return ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// ValidatePlan checks a plan before it is saved.
func ValidatePlan(p OverallPlan) error {
	if strings.TrimSpace(p.UserScope) == "" {
		return invalid("userId", "is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name", "is required")
	}
	seen := make(map[string]struct{}, len(p.Categories))
	for i, c := range p.Categories {
		field := "categories[" + strconv.Itoa(i) + "]"
		if strings.TrimSpace(c.Name) == "" {
			return invalid(field+".name", "is required")
		}
		if _, dup := seen[c.Name]; dup {
			return invalid(field+".name", "duplicate category %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.DefaultBudget.IsNegative() {
			return invalid(field+".defaultBudget", "must not be negative")
		}
	}
	return nil
}

// ValidateMonthlyCategories checks a category list of a monthly budget.
func ValidateMonthlyCategories(cats []MonthlyCategory) error {
	seen := make(map[string]struct{}, len(cats))
	for i, c := range cats {
		field := "categories[" + strconv.Itoa(i) + "]"
		if strings.TrimSpace(c.Name) == "" {
			return invalid(field+".name", "is required")
		}
		if _, dup := seen[c.Name]; dup {
			return invalid(field+".name", "duplicate category %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Budget.IsNegative() {
			return invalid(field+".budget", "must not be negative")
		}
	}
	return nil
}

// Validate checks the fields the ledger requires on every stored item.
// Amount sign and category membership are not enforced.
func (it BudgetItem) Validate() error {
	if strings.TrimSpace(it.CategoryName) == "" {
		return invalid("item.categoryName", "is required")
	}
	if strings.TrimSpace(it.Name) == "" {
		return invalid("item.name", "is required")
	}
	if len(it.Name) > 200 {
		return invalid("item.name", "too long (max 200 characters)")
	}
	if it.Date.IsZero() {
		return invalid("item.date", "is required")
	}
	return nil
}

// Apply merges the non-nil fields of p onto it.
func (p ItemPatch) Apply(it BudgetItem) BudgetItem {
	if p.CategoryName != nil {
		it.CategoryName = strings.TrimSpace(*p.CategoryName)
	}
	if p.Name != nil {
		it.Name = strings.TrimSpace(*p.Name)
	}
	if p.Amount != nil {
		it.Amount = *p.Amount
	}
	if p.Date != nil {
		it.Date = *p.Date
	}
	if p.Note != nil {
		if note := strings.TrimSpace(*p.Note); note != "" {
			it.Note = &note
		} else {
			it.Note = nil
		}
	}
	return it
}
