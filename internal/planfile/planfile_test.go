package planfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"moneymanager/internal/core"
)

const yamlPlan = `
name: Household
userId: u1
categories:
  - name: Groceries
    defaultBudget: 300.50
  - name: " Rent "
    defaultBudget: "1200"
  - name: Fun
    defaultBudget: 0
`

const tomlPlan = `
name = "Household"
userId = "u1"

[[categories]]
name = "Groceries"
defaultBudget = 300.5

[[categories]]
name = "Rent"
defaultBudget = 1200

[[categories]]
name = "Fun"
defaultBudget = "0"
`

var wantCategories = []core.PlanCategory{
	{Name: "Groceries", DefaultBudget: core.Money{Cents: 30050}},
	{Name: "Rent", DefaultBudget: core.Money{Cents: 120000}},
	{Name: "Fun", DefaultBudget: core.Money{Cents: 0}},
}

func TestDecode(t *testing.T) {
	tests := []struct {
		format Format
		doc    string
	}{
		{YAML, yamlPlan},
		{TOML, tomlPlan},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f, err := Decode(strings.NewReader(tt.doc), tt.format)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if f.Name != "Household" || f.UserID != "u1" {
				t.Fatalf("file = %+v", f)
			}
			if got := f.PlanCategories(); !reflect.DeepEqual(got, wantCategories) {
				t.Fatalf("categories = %+v, want %+v", got, wantCategories)
			}
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		doc    string
	}{
		{"unknown yaml field", YAML, "name: P\ncolour: red\n"},
		{"bad yaml amount", YAML, "name: P\ncategories:\n  - name: A\n    defaultBudget: lots\n"},
		{"duplicate category", YAML, "name: P\ncategories:\n  - name: A\n  - name: A\n"},
		{"missing name", TOML, "[[categories]]\nname = \"A\"\n"},
		{"negative budget", TOML, "name = \"P\"\n[[categories]]\nname = \"A\"\ndefaultBudget = -1\n"},
		{"broken toml", TOML, "name = \n"},
		{"unknown format", Format("ini"), "name=P"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.doc), tt.format); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	_, err := Decode(strings.NewReader("name: P\ncategories:\n  - name: A\n  - name: A\n"), YAML)
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("duplicate category: want validation error, got %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	plan := core.NewPlan("u1", "Household", wantCategories)
	for _, format := range []Format{YAML, TOML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, FromPlan(plan), format); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			f, err := Decode(&buf, format)
			if err != nil {
				t.Fatalf("Decode: %v\n%s", err, buf.String())
			}
			if !reflect.DeepEqual(f.PlanCategories(), wantCategories) {
				t.Fatalf("round trip categories = %+v", f.PlanCategories())
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yml")
	if err := os.WriteFile(path, []byte(yamlPlan), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Categories) != 3 {
		t.Fatalf("categories = %d", len(f.Categories))
	}

	if _, err := Load(filepath.Join(dir, "plan.json")); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("json file: want ErrUnknownFormat, got %v", err)
	}
}
