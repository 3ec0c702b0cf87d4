package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"moneymanager/internal/core"
)

func sampleBudget() core.MonthlyBudget {
	note := "weekly shop"
	return core.MonthlyBudget{
		ID:        "b1",
		Year:      2024,
		Month:     3,
		UserScope: "u1",
		Categories: []core.MonthlyCategory{
			{Name: "Groceries", Budget: core.Money{Cents: 30000}},
			{Name: "Fun", Budget: core.Money{Cents: 0}},
		},
		Items: []core.BudgetItem{
			{ID: "i1", CategoryName: "Groceries", Name: "Market", Amount: core.Money{Cents: 4050}, Date: core.NewDate(2024, 3, 5), Note: &note},
			{ID: "i2", CategoryName: "Fun", Name: "Caffè", Amount: core.Money{Cents: 350}, Date: core.NewDate(2024, 3, 9)},
			{ID: "i3", CategoryName: "Gone", Name: "Orphan", Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 3, 1)},
		},
	}
}

func TestMonth(t *testing.T) {
	var buf bytes.Buffer
	if err := Month(&buf, sampleBudget(), time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Month: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
}

func TestMonthEmpty(t *testing.T) {
	var buf bytes.Buffer
	b := core.MonthlyBudget{Year: 2024, Month: 1, UserScope: "default"}
	if err := Month(&buf, b, time.Now()); err != nil {
		t.Fatalf("Month: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty output")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "2024-03.pdf")
	if err := WriteFile(path, sampleBudget(), time.Now()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("file is not a PDF")
	}
}
