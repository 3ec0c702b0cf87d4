// Package planfile reads and writes master plans as YAML or TOML documents,
// so a plan can be kept under version control and loaded with moneyctl.
package planfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"moneymanager/internal/core"
)

type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

var ErrUnknownFormat = errors.New("unknown plan file format")

// File is the on-disk shape of a plan.
type File struct {
	Name       string     `yaml:"name"`
	UserID     string     `yaml:"userId,omitempty"`
	Categories []Category `yaml:"categories"`
}

type Category struct {
	Name          string `yaml:"name"`
	DefaultBudget Amount `yaml:"defaultBudget"`
}

// Amount is a budget written either as a number or a quoted decimal.
type Amount struct {
	core.Money
}

func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", node.Line)
	}
	m, err := core.ParseMoney(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: amount %q: %w", node.Line, node.Value, err)
	}
	a.Money = m
	return nil
}

func (a Amount) MarshalYAML() (any, error) {
	return a.Float64(), nil
}

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Load reads the plan file at path.
func Load(path string) (File, error) {
	format, err := FormatFor(path)
	if err != nil {
		return File{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open plan file: %w", err)
	}
	defer f.Close()
	return Decode(f, format)
}

// Decode parses a plan document and checks it the way a saved plan is checked.
func Decode(r io.Reader, format Format) (File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("read plan file: %w", err)
	}

	var file File
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return File{}, fmt.Errorf("parse yaml plan: %w", err)
		}
	case TOML:
		file, err = decodeTOML(data)
		if err != nil {
			return File{}, err
		}
	default:
		return File{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	plan := core.OverallPlan{
		UserScope:  core.ScopeOrDefault(file.UserID),
		Name:       strings.TrimSpace(file.Name),
		Categories: file.PlanCategories(),
	}
	if err := core.ValidatePlan(plan); err != nil {
		return File{}, err
	}
	return file, nil
}

// decodeTOML walks the tree by hand because TOML numbers arrive as int64 or
// float64 and budgets may also be quoted.
func decodeTOML(data []byte) (File, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return File{}, fmt.Errorf("parse toml plan: %w", err)
	}

	file := File{}
	file.Name, _ = tree.Get("name").(string)
	file.UserID, _ = tree.Get("userId").(string)

	raw := tree.Get("categories")
	if raw == nil {
		return file, nil
	}
	tables, ok := raw.([]*toml.Tree)
	if !ok {
		return File{}, fmt.Errorf("parse toml plan: categories must be an array of tables")
	}
	for i, t := range tables {
		name, _ := t.Get("name").(string)
		amount, err := tomlAmount(t.Get("defaultBudget"))
		if err != nil {
			return File{}, fmt.Errorf("parse toml plan: categories[%d].defaultBudget: %w", i, err)
		}
		file.Categories = append(file.Categories, Category{Name: name, DefaultBudget: Amount{amount}})
	}
	return file, nil
}

func tomlAmount(v any) (core.Money, error) {
	switch n := v.(type) {
	case nil:
		return core.Money{}, nil
	case int64:
		return core.ParseMoney(strconv.FormatInt(n, 10))
	case float64:
		return core.MoneyFromFloat(n)
	case string:
		return core.ParseMoney(n)
	}
	return core.Money{}, fmt.Errorf("unsupported value %v", v)
}

// PlanCategories converts the file categories, trimming names.
func (f File) PlanCategories() []core.PlanCategory {
	out := make([]core.PlanCategory, len(f.Categories))
	for i, c := range f.Categories {
		out[i] = core.PlanCategory{Name: strings.TrimSpace(c.Name), DefaultBudget: c.DefaultBudget.Money}
	}
	return out
}

// FromPlan builds the file form of a stored plan.
func FromPlan(p core.OverallPlan) File {
	f := File{Name: p.Name, UserID: p.UserScope}
	for _, c := range p.Categories {
		f.Categories = append(f.Categories, Category{Name: c.Name, DefaultBudget: Amount{c.DefaultBudget}})
	}
	return f
}

// Encode writes f in the given format.
func Encode(w io.Writer, f File, format Format) error {
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encode yaml plan: %w", err)
		}
		return enc.Close()
	case TOML:
		tree, err := toml.TreeFromMap(map[string]any{
			"name":       f.Name,
			"userId":     f.UserID,
			"categories": tomlCategories(f.Categories),
		})
		if err != nil {
			return fmt.Errorf("encode toml plan: %w", err)
		}
		_, err = tree.WriteTo(w)
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func tomlCategories(cats []Category) []map[string]any {
	out := make([]map[string]any, len(cats))
	for i, c := range cats {
		out[i] = map[string]any{"name": c.Name, "defaultBudget": c.DefaultBudget.Float64()}
	}
	return out
}
