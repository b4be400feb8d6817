package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument represents a tradable instrument from the reference registry.
// The catalog is small and bounded; identity is the ID field. Everything is
// immutable except the reference price fields, which are refreshed externally
// and serve as a valuation fallback when no live quote is cached.
type Instrument struct {
	ID                      string          `json:"id"`
	Ticker                  string          `json:"ticker"`
	DisplayName             string          `json:"displayName"`
	Currency                string          `json:"currency"` // trading currency (COP or USD)
	ReferencePrice          decimal.Decimal `json:"referencePrice"`
	ReferencePriceTimestamp time.Time       `json:"referencePriceTimestamp"`
}
