package model

import "github.com/shopspring/decimal"

// Holding is a user's current position in one instrument, derived from the
// full transaction history. It is never source of truth: the aggregator
// recomputes it from the ledger, and any cached copy is invalidated when the
// ledger version moves.
//
// Invariants: Units >= 0 always (no short positions); AverageCost ==
// CostBasis/Units when Units > 0, zero when Units == 0.
type Holding struct {
	InstrumentID string          `json:"instrumentId"`
	Units        decimal.Decimal `json:"units"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	AverageCost  decimal.Decimal `json:"averageCost"`
}

// Aggregation is the full result of reducing a user's ledger: the active
// holdings plus dividend cash flow, which is tracked separately and never
// folded into cost basis.
type Aggregation struct {
	Holdings               map[string]Holding
	TotalDividends         decimal.Decimal
	DividendsByInstrument  map[string]decimal.Decimal
}
