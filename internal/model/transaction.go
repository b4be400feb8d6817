package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction kinds accepted by the ledger.
const (
	KindBuy      = "buy"
	KindSell     = "sell"
	KindDividend = "dividend"
)

// Transaction represents a single buy, sell or dividend event in a user's ledger.
// The ledger is append-only: once created a transaction is immutable except for
// corrective amend/remove by the owning user.
//
// Invariants enforced at append time:
//   - buy/sell: TotalAmount == Units*PricePerUnit + Fees (fees default 0)
//   - dividend: Units == 0, TotalAmount is the cash amount received
//   - OccurredAt is never in the future
//
// Seq is a per-user monotonic sequence assigned on append. It is the
// deterministic tie-break when two transactions share the same OccurredAt, so
// average-cost results are reproducible.
type Transaction struct {
	ID                  string              `json:"id"`
	UserID              string              `json:"userId"`
	InstrumentID        string              `json:"instrumentId"`
	Kind                string              `json:"kind"`
	Units               decimal.Decimal     `json:"units"`
	PricePerUnit        decimal.Decimal     `json:"pricePerUnit"`
	TotalAmount         decimal.Decimal     `json:"totalAmount"`
	Currency            string              `json:"currency"`
	ExchangeRateAtEntry decimal.NullDecimal `json:"exchangeRateAtEntry,omitempty"`
	Fees                decimal.Decimal     `json:"fees"`
	OccurredAt          time.Time           `json:"occurredAt"`
	Note                string              `json:"note,omitempty"`
	MilestoneTag        string              `json:"milestoneTag,omitempty"`
	Seq                 int64               `json:"seq"`
	CreatedAt           time.Time           `json:"createdAt,omitempty"`
}

// TransactionFilter narrows a ledger listing. Zero values mean "no bound".
type TransactionFilter struct {
	InstrumentID string
	From         time.Time
	To           time.Time
}

// TransactionResponse represents a transaction with enriched data for API responses.
// Includes the instrument ticker and display name for presentation.
type TransactionResponse struct {
	Transaction
	Ticker                string `json:"ticker"`
	InstrumentDisplayName string `json:"instrumentDisplayName"`
}
