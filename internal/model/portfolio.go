package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldingValuation is a Holding enriched with pricing data. PriceSource
// records which level of the fallback chain produced the price: a live cached
// quote, the instrument's static reference price, or nothing at all. An
// instrument with no known price contributes zero value; callers surface that
// distinctly from "no holding".
const (
	PriceSourceQuote     = "quote"
	PriceSourceReference = "reference"
	PriceSourceNone      = "none"
)

// HoldingValuation adds point-in-time pricing to a Holding.
type HoldingValuation struct {
	InstrumentID          string          `json:"instrumentId"`
	Ticker                string          `json:"ticker"`
	DisplayName           string          `json:"displayName"`
	Units                 decimal.Decimal `json:"units"`
	CostBasis             decimal.Decimal `json:"costBasis"`
	AverageCost           decimal.Decimal `json:"averageCost"`
	PricePerUnit          decimal.Decimal `json:"pricePerUnit"`
	ValueAtDate           decimal.Decimal `json:"valueAtDate"`
	UnrealizedGain        decimal.Decimal `json:"unrealizedGain"`
	PercentageOfPortfolio float64         `json:"percentageOfPortfolio"`
	PriceSource           string          `json:"priceSource"`
}

// PortfolioValuation is the summary object the rest of the application
// depends on: totals, diversification and per-holding valuations as of a
// moment in time. Percentages and the diversification score are presentation
// values rounded to two decimals; monetary fields stay exact decimals.
type PortfolioValuation struct {
	TotalInvested        decimal.Decimal    `json:"totalInvested"`
	CurrentValue         decimal.Decimal    `json:"currentValue"`
	TotalReturn          decimal.Decimal    `json:"totalReturn"`
	TotalReturnPct       float64            `json:"totalReturnPct"`
	DiversificationScore float64            `json:"diversificationScore"`
	TotalDividends       decimal.Decimal    `json:"totalDividends"`
	Holdings             []HoldingValuation `json:"holdings"`
	AsOf                 time.Time          `json:"asOf"`
}
