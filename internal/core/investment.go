package core

import (
	"strings"

	"github.com/google/uuid"
)

type InvestmentType string

const (
	Stock           InvestmentType = "Stock"
	ETF             InvestmentType = "ETF"
	MutualFund      InvestmentType = "Mutual Fund"
	Bond            InvestmentType = "Bond"
	Cryptocurrency  InvestmentType = "Cryptocurrency"
	RealEstate      InvestmentType = "Real Estate"
	Retirement      InvestmentType = "Retirement"
	OtherInvestment InvestmentType = "Other"
)

// Investment is a manually maintained holding; values are entered by the user.
type Investment struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Ticker            string         `json:"ticker"`
	Type              InvestmentType `json:"type"`
	Value             Money          `json:"value"`
	InitialInvestment Money          `json:"initialInvestment"`
	ReturnPercentage  float64        `json:"returnPercentage"`
}

// PortfolioSummary aggregates all holdings.
type PortfolioSummary struct {
	Count            int     `json:"count"`
	TotalValue       Money   `json:"totalValue"`
	TotalInitial     Money   `json:"totalInitial"`
	TotalReturn      Money   `json:"totalReturn"`
	ReturnPercentage float64 `json:"returnPercentage"`
}

func (t InvestmentType) IsValid() bool {
	switch t {
	case Stock, ETF, MutualFund, Bond, Cryptocurrency, RealEstate, Retirement, OtherInvestment:
		return true
	}
	return false
}

// NewInvestment assigns an id to a holding about to be created.
func NewInvestment(in Investment) Investment {
	in.ID = uuid.NewString()
	return in
}

// WithReturn recomputes ReturnPercentage from value and initial investment.
// Holdings with nothing invested report 0.
func (in Investment) WithReturn() Investment {
	in.ReturnPercentage = 0
	if in.InitialInvestment.Cents != 0 {
		gain := in.Value.Sub(in.InitialInvestment)
		in.ReturnPercentage = float64(gain.Cents) * 100 / float64(in.InitialInvestment.Cents)
	}
	return in
}

func (in Investment) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "is required")
	}
	if strings.TrimSpace(in.Ticker) == "" {
		return invalid("ticker", "is required")
	}
	if !in.Type.IsValid() {
		return invalid("type", "unknown investment type %q", in.Type)
	}
	if in.Value.IsNegative() {
		return invalid("value", "must not be negative")
	}
	if in.InitialInvestment.IsNegative() {
		return invalid("initialInvestment", "must not be negative")
	}
	return nil
}

// SummarizePortfolio totals the holdings. The return percentage is 0 when
// nothing was invested.
func SummarizePortfolio(items []Investment) PortfolioSummary {
	s := PortfolioSummary{Count: len(items)}
	for _, in := range items {
		s.TotalValue = s.TotalValue.Add(in.Value)
		s.TotalInitial = s.TotalInitial.Add(in.InitialInvestment)
	}
	s.TotalReturn = s.TotalValue.Sub(s.TotalInitial)
	if s.TotalInitial.Cents != 0 {
		s.ReturnPercentage = float64(s.TotalReturn.Cents) * 100 / float64(s.TotalInitial.Cents)
	}
	return s
}
