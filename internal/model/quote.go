package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote sources. A quote is "live" when it came from the market data feed,
// "manual" when a reference price was set by hand, and "stale-fallback" when a
// refresh failed and the previous known-good quote was kept.
const (
	QuoteSourceLive          = "live"
	QuoteSourceManual        = "manual"
	QuoteSourceStaleFallback = "stale-fallback"
)

// PriceQuote is a cached, ephemeral price for one instrument. The cache is
// merged on each successful refresh (never overwritten wholesale) and persists
// across sessions as a cache, not as ledger truth.
type PriceQuote struct {
	InstrumentID           string              `json:"instrumentId"`
	PriceInBaseCurrency    decimal.Decimal     `json:"priceInBaseCurrency"`
	PriceInForeignCurrency decimal.NullDecimal `json:"priceInForeignCurrency,omitempty"`
	ChangePct              float64             `json:"changePct"`
	FetchedAt              time.Time           `json:"fetchedAt"`
	Source                 string              `json:"source"`
}

// PriceSnapshot is an immutable view of the quote cache handed to the
// valuation engine. Valuation never reaches into the pricing service's
// internal state; it receives one of these explicitly.
type PriceSnapshot struct {
	Quotes       map[string]PriceQuote `json:"quotes"`
	ExchangeRate decimal.Decimal       `json:"exchangeRate"` // base currency units per foreign unit
	FetchedAt    time.Time             `json:"fetchedAt"`
}

// QuoteFor returns the cached quote for an instrument, if any.
// PriceSnapshot satisfies the valuation engine's PriceLookup capability.
func (s PriceSnapshot) QuoteFor(instrumentID string) (PriceQuote, bool) {
	q, ok := s.Quotes[instrumentID]
	return q, ok
}

// RefreshResult carries the outcome of one price refresh pass. Per-instrument
// fetches and the exchange-rate fetch are independent failure domains, so a
// result can hold partial quotes alongside collected errors. Errors are
// reported, never thrown: a single bad quote must not block the rest of the
// portfolio.
type RefreshResult struct {
	Quotes       []PriceQuote    `json:"quotes"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	Errors       []string        `json:"errors"`
	Configured   bool            `json:"configured"` // false when no API credential is set (no-op, zero errors)
	Skipped      bool            `json:"skipped"`    // true when the daily refresh gate said "already done"
}
