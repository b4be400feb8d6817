package service_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nido-app/nido-backend/internal/model"
	"github.com/nido-app/nido-backend/internal/service"
	"github.com/nido-app/nido-backend/internal/testutil"
)

func holdingOf(instrumentID, units, basis string) model.Holding {
	u := decimal.RequireFromString(units)
	b := decimal.RequireFromString(basis)
	return model.Holding{
		InstrumentID: instrumentID,
		Units:        u,
		CostBasis:    b,
		AverageCost:  b.Div(u),
	}
}

func aggregationOf(holdings ...model.Holding) model.Aggregation {
	byID := make(map[string]model.Holding, len(holdings))
	for _, h := range holdings {
		byID[h.InstrumentID] = h
	}
	return model.Aggregation{Holdings: byID, DividendsByInstrument: map[string]decimal.Decimal{}}
}

func testInstruments() map[string]model.Instrument {
	return map[string]model.Instrument{
		testutil.InstrumentICOLCAP: {
			ID: testutil.InstrumentICOLCAP, Ticker: "ICOLCAP", DisplayName: "iShares MSCI COLCAP",
			Currency: "COP", ReferencePrice: decimal.NewFromInt(12500),
		},
		testutil.InstrumentHCOLSEL: {
			ID: testutil.InstrumentHCOLSEL, Ticker: "HCOLSEL", DisplayName: "Horizons Colombia Select de S&P",
			Currency: "COP", ReferencePrice: decimal.NewFromInt(9800),
		},
		testutil.InstrumentCSPX: {
			ID: testutil.InstrumentCSPX, Ticker: "CSPX", DisplayName: "iShares Core S&P 500 UCITS",
			Currency: "USD", ReferencePrice: decimal.NewFromInt(480),
		},
	}
}

func quotesOf(quotes ...model.PriceQuote) model.PriceSnapshot {
	byID := make(map[string]model.PriceQuote, len(quotes))
	for _, q := range quotes {
		byID[q.InstrumentID] = q
	}
	return model.PriceSnapshot{Quotes: byID}
}

// TestValuate_PriceFallbackChain tests per-instrument price resolution.
//
// WHY: Every holding must get a price through the quote -> reference -> zero
// chain and report which level produced it. A wrong fallback silently
// misprices the portfolio; a missing one would make valuation fail exactly
// when the feed is down, which is when users check their portfolio most.
func TestValuate_PriceFallbackChain(t *testing.T) {
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	instruments := testInstruments()

	t.Run("live quote wins over reference price", func(t *testing.T) {
		aggregation := aggregationOf(holdingOf(testutil.InstrumentICOLCAP, "10", "125000"))
		prices := quotesOf(model.PriceQuote{
			InstrumentID:        testutil.InstrumentICOLCAP,
			PriceInBaseCurrency: decimal.NewFromInt(14000),
			Source:              model.QuoteSourceLive,
		})

		valuation := service.Valuate(aggregation, instruments, prices, decimal.Zero, "COP", asOf)

		holding := valuation.Holdings[0]
		if !holding.PricePerUnit.Equal(decimal.NewFromInt(14000)) {
			t.Errorf("Expected quoted price 14000, got %s", holding.PricePerUnit)
		}
		if holding.PriceSource != model.PriceSourceQuote {
			t.Errorf("Expected price source %q, got %q", model.PriceSourceQuote, holding.PriceSource)
		}
		if !valuation.CurrentValue.Equal(decimal.NewFromInt(140000)) {
			t.Errorf("Expected current value 140000, got %s", valuation.CurrentValue)
		}
	})

	t.Run("falls back to reference price without a quote", func(t *testing.T) {
		aggregation := aggregationOf(holdingOf(testutil.InstrumentICOLCAP, "10", "125000"))

		valuation := service.Valuate(aggregation, instruments, quotesOf(), decimal.Zero, "COP", asOf)

		holding := valuation.Holdings[0]
		if !holding.PricePerUnit.Equal(decimal.NewFromInt(12500)) {
			t.Errorf("Expected reference price 12500, got %s", holding.PricePerUnit)
		}
		if holding.PriceSource != model.PriceSourceReference {
			t.Errorf("Expected price source %q, got %q", model.PriceSourceReference, holding.PriceSource)
		}
	})

	t.Run("converts a foreign reference price through the exchange rate", func(t *testing.T) {
		aggregation := aggregationOf(holdingOf(testutil.InstrumentCSPX, "2", "3840000"))
		exchangeRate := decimal.NewFromInt(4000) // COP per USD

		valuation := service.Valuate(aggregation, instruments, quotesOf(), exchangeRate, "COP", asOf)

		holding := valuation.Holdings[0]
		// 480 USD * 4000 = 1,920,000 COP per unit.
		if !holding.PricePerUnit.Equal(decimal.NewFromInt(1920000)) {
			t.Errorf("Expected converted price 1920000, got %s", holding.PricePerUnit)
		}
		if !valuation.CurrentValue.Equal(decimal.NewFromInt(3840000)) {
			t.Errorf("Expected current value 3840000, got %s", valuation.CurrentValue)
		}
	})

	t.Run("no price anywhere values at zero, not an error", func(t *testing.T) {
		unknownID := testutil.MakeID()
		instrumentsWithUnknown := testInstruments()
		instrumentsWithUnknown[unknownID] = model.Instrument{ID: unknownID, Ticker: "ZZZ"}
		aggregation := aggregationOf(holdingOf(unknownID, "10", "5000"))

		valuation := service.Valuate(aggregation, instrumentsWithUnknown, quotesOf(), decimal.Zero, "COP", asOf)

		holding := valuation.Holdings[0]
		if !holding.ValueAtDate.IsZero() {
			t.Errorf("Expected zero value, got %s", holding.ValueAtDate)
		}
		if holding.PriceSource != model.PriceSourceNone {
			t.Errorf("Expected price source %q, got %q", model.PriceSourceNone, holding.PriceSource)
		}
		// The unpriced holding still counts toward invested capital.
		if !valuation.TotalInvested.Equal(decimal.NewFromInt(5000)) {
			t.Errorf("Expected total invested 5000, got %s", valuation.TotalInvested)
		}
	})
}

// TestValuate_Totals tests portfolio totals and zero-division safety.
//
// WHY: An empty or all-zero portfolio is the first thing every new user sees.
// Return percentage and portfolio weights both divide by totals that can
// legitimately be zero; those paths must yield zeros, never NaN or a panic.
func TestValuate_Totals(t *testing.T) {
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	instruments := testInstruments()

	t.Run("empty portfolio values to all zeros", func(t *testing.T) {
		valuation := service.Valuate(aggregationOf(), instruments, quotesOf(), decimal.Zero, "COP", asOf)

		if !valuation.CurrentValue.IsZero() || !valuation.TotalInvested.IsZero() {
			t.Errorf("Expected zero totals, got value=%s invested=%s", valuation.CurrentValue, valuation.TotalInvested)
		}
		if valuation.TotalReturnPct != 0 {
			t.Errorf("Expected zero return pct, got %f", valuation.TotalReturnPct)
		}
		if valuation.DiversificationScore != 0 {
			t.Errorf("Expected zero diversification, got %f", valuation.DiversificationScore)
		}
		if len(valuation.Holdings) != 0 {
			t.Errorf("Expected no holdings, got %d", len(valuation.Holdings))
		}
	})

	t.Run("growth scenario totals", func(t *testing.T) {
		// 10 @ 12500 plus 2 @ 13500: 12 units, 152000 invested. At a live
		// price of 14000 the position is worth 168000, up 16000.
		aggregation := aggregationOf(holdingOf(testutil.InstrumentICOLCAP, "12", "152000"))
		prices := quotesOf(model.PriceQuote{
			InstrumentID:        testutil.InstrumentICOLCAP,
			PriceInBaseCurrency: decimal.NewFromInt(14000),
		})

		valuation := service.Valuate(aggregation, instruments, prices, decimal.Zero, "COP", asOf)

		if !valuation.CurrentValue.Equal(decimal.NewFromInt(168000)) {
			t.Errorf("Expected current value 168000, got %s", valuation.CurrentValue)
		}
		if !valuation.TotalReturn.Equal(decimal.NewFromInt(16000)) {
			t.Errorf("Expected total return 16000, got %s", valuation.TotalReturn)
		}
		// 16000/152000 = 10.5263...% rounded to two decimals.
		if valuation.TotalReturnPct != 10.53 {
			t.Errorf("Expected return pct 10.53, got %f", valuation.TotalReturnPct)
		}
		if valuation.Holdings[0].PercentageOfPortfolio != 100 {
			t.Errorf("Expected single holding at 100%%, got %f", valuation.Holdings[0].PercentageOfPortfolio)
		}
	})

	t.Run("holdings come back sorted by ticker", func(t *testing.T) {
		aggregation := aggregationOf(
			holdingOf(testutil.InstrumentICOLCAP, "1", "100"),
			holdingOf(testutil.InstrumentCSPX, "1", "100"),
			holdingOf(testutil.InstrumentHCOLSEL, "1", "100"),
		)

		valuation := service.Valuate(aggregation, instruments, quotesOf(), decimal.NewFromInt(4000), "COP", asOf)

		tickers := []string{}
		for _, h := range valuation.Holdings {
			tickers = append(tickers, h.Ticker)
		}
		expected := []string{"CSPX", "HCOLSEL", "ICOLCAP"}
		for i := range expected {
			if tickers[i] != expected[i] {
				t.Fatalf("Expected ticker order %v, got %v", expected, tickers)
			}
		}
	})
}

// TestValuate_DiversificationScore tests the evenness score.
//
// WHY: The score is a consumer-facing number with hard bounds: 0 for a single
// holding, approaching 100*(1-1/n) for an even n-way split, and indifferent
// to which instruments are involved. Off-by-one weighting errors show up here
// before users see them.
func TestValuate_DiversificationScore(t *testing.T) {
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	instruments := testInstruments()

	prices := quotesOf(
		model.PriceQuote{InstrumentID: testutil.InstrumentICOLCAP, PriceInBaseCurrency: decimal.NewFromInt(1000)},
		model.PriceQuote{InstrumentID: testutil.InstrumentHCOLSEL, PriceInBaseCurrency: decimal.NewFromInt(1000)},
	)

	t.Run("single holding scores zero", func(t *testing.T) {
		aggregation := aggregationOf(holdingOf(testutil.InstrumentICOLCAP, "10", "10000"))

		valuation := service.Valuate(aggregation, instruments, prices, decimal.Zero, "COP", asOf)

		if valuation.DiversificationScore != 0 {
			t.Errorf("Expected score 0 for one holding, got %f", valuation.DiversificationScore)
		}
	})

	t.Run("even two-way split scores 50", func(t *testing.T) {
		aggregation := aggregationOf(
			holdingOf(testutil.InstrumentICOLCAP, "10", "10000"),
			holdingOf(testutil.InstrumentHCOLSEL, "10", "10000"),
		)

		valuation := service.Valuate(aggregation, instruments, prices, decimal.Zero, "COP", asOf)

		// Weights 0.5/0.5: 100 * (1 - 0.25 - 0.25) = 50.
		if valuation.DiversificationScore != 50 {
			t.Errorf("Expected score 50 for an even split, got %f", valuation.DiversificationScore)
		}
	})

	t.Run("concentration lowers the score", func(t *testing.T) {
		aggregation := aggregationOf(
			holdingOf(testutil.InstrumentICOLCAP, "90", "90000"),
			holdingOf(testutil.InstrumentHCOLSEL, "10", "10000"),
		)

		valuation := service.Valuate(aggregation, instruments, prices, decimal.Zero, "COP", asOf)

		// Weights 0.9/0.1: 100 * (1 - 0.81 - 0.01) = 18.
		if valuation.DiversificationScore != 18 {
			t.Errorf("Expected score 18 for a 90/10 split, got %f", valuation.DiversificationScore)
		}
	})

	t.Run("zero-valued portfolio scores zero", func(t *testing.T) {
		unknownA, unknownB := testutil.MakeID(), testutil.MakeID()
		instrumentsWithUnknown := testInstruments()
		instrumentsWithUnknown[unknownA] = model.Instrument{ID: unknownA, Ticker: "AAA"}
		instrumentsWithUnknown[unknownB] = model.Instrument{ID: unknownB, Ticker: "BBB"}
		aggregation := aggregationOf(
			holdingOf(unknownA, "10", "100"),
			holdingOf(unknownB, "10", "100"),
		)

		valuation := service.Valuate(aggregation, instrumentsWithUnknown, quotesOf(), decimal.Zero, "COP", asOf)

		if valuation.DiversificationScore != 0 {
			t.Errorf("Expected score 0 for zero-valued portfolio, got %f", valuation.DiversificationScore)
		}
	})
}
