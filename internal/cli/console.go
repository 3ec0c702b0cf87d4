package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"moneymanager/internal/core"
)

var (
	boldRed     = color.New(color.FgRed, color.Bold).SprintFunc()
	brightGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	brightCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// console writes human readable output for moneyctl.
type console struct {
	out io.Writer
}

func (c console) success(format string, a ...any) {
	pterm.Success.WithWriter(c.out).Printfln(format, a...)
}

func (c console) info(format string, a ...any) {
	pterm.Info.WithWriter(c.out).Printfln(format, a...)
}

func (c console) table(data pterm.TableData) error {
	return pterm.DefaultTable.WithHasHeader().WithWriter(c.out).WithData(data).Render()
}

// signed colours a remaining amount: red below zero, green otherwise.
func signed(m core.Money) string {
	if m.IsNegative() {
		return boldRed(m.String())
	}
	return brightGreen(m.String())
}

func (c console) plan(p core.OverallPlan) error {
	fmt.Fprintf(c.out, "%s  %s (version %d)\n\n", brightCyan(p.Name), p.UserScope, p.Version)
	data := pterm.TableData{{"Category", "Default budget"}}
	total := core.Money{}
	for _, cat := range p.Categories {
		data = append(data, []string{cat.Name, cat.DefaultBudget.String()})
		total = total.Add(cat.DefaultBudget)
	}
	data = append(data, []string{"Total", total.String()})
	return c.table(data)
}

func (c console) month(b core.MonthlyBudget) error {
	s := core.Summarize(b)
	fmt.Fprintf(c.out, "%s  %04d-%02d  %s\n\n", brightCyan("Budget"), b.Year, b.Month, b.UserScope)

	data := pterm.TableData{{"Category", "Budget", "Spent", "Remaining", "% spent"}}
	for _, cat := range s.Categories {
		name := cat.Name
		if cat.Overspent {
			name = boldRed(name + " !")
		}
		data = append(data, []string{
			name,
			cat.Budget.String(),
			cat.Spent.String(),
			signed(cat.Remaining),
			fmt.Sprintf("%.1f", cat.PercentSpent),
		})
	}
	if !s.UnassignedSpent.IsZero() {
		data = append(data, []string{"(unassigned)", "", s.UnassignedSpent.String(), "", ""})
	}
	data = append(data, []string{"Total", s.TotalBudget.String(), s.TotalSpent.String(), signed(s.Remaining), ""})
	if err := c.table(data); err != nil {
		return err
	}

	recent := core.RecentItems(b.Items, 5)
	if len(recent) == 0 {
		return nil
	}
	fmt.Fprintln(c.out)
	items := pterm.TableData{{"Date", "Category", "Name", "Amount"}}
	for _, it := range recent {
		items = append(items, []string{it.Date.String(), it.CategoryName, it.Name, it.Amount.String()})
	}
	return c.table(items)
}

func (c console) investments(items []core.Investment, s core.PortfolioSummary) error {
	data := pterm.TableData{{"Name", "Ticker", "Type", "Value", "Invested", "Return %"}}
	for _, in := range items {
		data = append(data, []string{
			in.Name, in.Ticker, string(in.Type),
			in.Value.String(), in.InitialInvestment.String(),
			fmt.Sprintf("%.2f", in.ReturnPercentage),
		})
	}
	data = append(data, []string{"Total", "", "", s.TotalValue.String(), s.TotalInitial.String(), fmt.Sprintf("%.2f", s.ReturnPercentage)})
	return c.table(data)
}
