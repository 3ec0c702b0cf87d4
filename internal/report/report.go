// Package report renders a monthly budget as a printable PDF.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"moneymanager/internal/core"
)

var (
	headerColor       = [3]int{31, 78, 121}
	headerTextColor   = [3]int{255, 255, 255}
	sectionTitleColor = [3]int{31, 78, 121}
	bodyTextColor     = [3]int{33, 33, 33}
	lineColor         = [3]int{200, 200, 200}
	overspentColor    = [3]int{192, 0, 0}
)

var categoryColumns = []struct {
	title string
	width float64
	align string
}{
	{"Category", 70, "L"},
	{"Budget", 30, "R"},
	{"Spent", 30, "R"},
	{"Remaining", 30, "R"},
	{"% spent", 30, "R"},
}

// Month writes the PDF report of b to w.
func Month(w io.Writer, b core.MonthlyBudget, generatedAt time.Time) error {
	summary := core.Summarize(b)

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Budget %04d-%02d", b.Year, b.Month), true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, "Generated "+generatedAt.Format("2006-01-02 15:04"), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
	pdf.SetTextColor(headerTextColor[0], headerTextColor[1], headerTextColor[2])
	pdf.SetFont("Arial", "B", 14)
	title := fmt.Sprintf("  Budget %s %d  (%s)", time.Month(b.Month), b.Year, b.UserScope)
	pdf.CellFormat(0, 12, tr(title), "", 1, "L", true, 0, "")
	pdf.Ln(6)

	section := func(name string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(sectionTitleColor[0], sectionTitleColor[1], sectionTitleColor[2])
		pdf.Cell(0, 8, name)
		pdf.Ln(7)
		pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
		pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+190, pdf.GetY())
		pdf.Ln(3)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	}

	section("Summary")
	pdf.SetFont("Arial", "", 10)
	for _, row := range [][2]string{
		{"Total budget", summary.TotalBudget.String()},
		{"Total spent", summary.TotalSpent.String()},
		{"Remaining", summary.Remaining.String()},
		{"Unassigned spending", summary.UnassignedSpent.String()},
	} {
		pdf.CellFormat(60, 6, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, row[1], "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	section("Categories")
	pdf.SetFont("Arial", "B", 10)
	for _, c := range categoryColumns {
		pdf.CellFormat(c.width, 7, c.title, "B", 0, c.align, false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, c := range summary.Categories {
		if c.Overspent {
			pdf.SetTextColor(overspentColor[0], overspentColor[1], overspentColor[2])
		}
		cells := []string{
			tr(c.Name),
			c.Budget.String(),
			c.Spent.String(),
			c.Remaining.String(),
			fmt.Sprintf("%.1f%%", c.PercentSpent),
		}
		for i, col := range categoryColumns {
			pdf.CellFormat(col.width, 6, cells[i], "", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	}
	pdf.Ln(6)

	section(fmt.Sprintf("Items (%d)", len(b.Items)))
	pdf.SetFont("Arial", "", 9)
	for _, it := range core.SortItemsByDateDesc(b.Items) {
		pdf.CellFormat(25, 6, it.Date.String(), "", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, tr(it.CategoryName), "", 0, "L", false, 0, "")
		pdf.CellFormat(90, 6, tr(it.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, it.Amount.String(), "", 1, "R", false, 0, "")
		if it.Note != nil {
			pdf.SetTextColor(100, 100, 100)
			pdf.CellFormat(25, 5, "", "", 0, "L", false, 0, "")
			pdf.MultiCell(165, 5, tr(*it.Note), "", "L", false)
			pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// WriteFile renders the report of b into path, creating parent directories.
func WriteFile(path string, b core.MonthlyBudget, generatedAt time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := Month(f, b, generatedAt); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
