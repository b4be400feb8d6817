package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nido-app/nido-backend/internal/model"
	"github.com/nido-app/nido-backend/internal/repository"
)

// PriceLookup is the capability the valuation engine uses to resolve live
// prices. It is injected explicitly; the engine never reaches into the
// pricing service's internal state. model.PriceSnapshot satisfies it.
type PriceLookup interface {
	QuoteFor(instrumentID string) (model.PriceQuote, bool)
}

// Valuate combines holdings with current prices into a portfolio valuation.
//
// Price resolution per instrument walks a three-level fallback chain, each
// level used only when the prior is unavailable:
//  1. live cached quote (already in base currency)
//  2. the instrument's static reference price, converted through exchangeRate
//     when the instrument trades in the foreign currency
//  3. zero, explicitly representable rather than an error. An instrument with no
//     known price contributes zero value and is marked PriceSourceNone so the
//     caller can surface it distinctly from "no holding".
//
// totalReturnPct is 0 when nothing is invested; the division is never
// attempted. Valuation never fails for data-completeness reasons.
func Valuate(
	aggregation model.Aggregation,
	instruments map[string]model.Instrument,
	prices PriceLookup,
	exchangeRate decimal.Decimal,
	baseCurrency string,
	asOf time.Time,
) model.PortfolioValuation {

	totalInvested := decimal.Zero
	currentValue := decimal.Zero
	valuations := make([]model.HoldingValuation, 0, len(aggregation.Holdings))

	for instrumentID, holding := range aggregation.Holdings {
		instrument := instruments[instrumentID]
		price, source := resolvePrice(instrumentID, instrument, prices, exchangeRate, baseCurrency)

		value := holding.Units.Mul(price)

		valuations = append(valuations, model.HoldingValuation{
			InstrumentID:   instrumentID,
			Ticker:         instrument.Ticker,
			DisplayName:    instrument.DisplayName,
			Units:          holding.Units,
			CostBasis:      holding.CostBasis,
			AverageCost:    holding.AverageCost,
			PricePerUnit:   price,
			ValueAtDate:    value,
			UnrealizedGain: value.Sub(holding.CostBasis),
			PriceSource:    source,
		})

		totalInvested = totalInvested.Add(holding.CostBasis)
		currentValue = currentValue.Add(value)
	}

	// Stable presentation order; map iteration is random.
	sort.Slice(valuations, func(i, j int) bool {
		return valuations[i].Ticker < valuations[j].Ticker
	})

	totalReturn := currentValue.Sub(totalInvested)
	totalReturnPct := 0.0
	if totalInvested.IsPositive() {
		totalReturnPct = round(totalReturn.Div(totalInvested).InexactFloat64() * 100)
	}

	for i := range valuations {
		pct := 0.0
		if currentValue.IsPositive() {
			pct = valuations[i].ValueAtDate.Div(currentValue).InexactFloat64()
		}
		valuations[i].PercentageOfPortfolio = round(pct * 100)
	}

	return model.PortfolioValuation{
		TotalInvested:        totalInvested,
		CurrentValue:         currentValue,
		TotalReturn:          totalReturn,
		TotalReturnPct:       totalReturnPct,
		DiversificationScore: diversificationScore(valuations, currentValue),
		TotalDividends:       aggregation.TotalDividends,
		Holdings:             valuations,
		AsOf:                 asOf,
	}
}

// resolvePrice walks the quote -> reference -> zero fallback chain and
// reports which level produced the price.
func resolvePrice(
	instrumentID string,
	instrument model.Instrument,
	prices PriceLookup,
	exchangeRate decimal.Decimal,
	baseCurrency string,
) (decimal.Decimal, string) {

	if prices != nil {
		if quote, ok := prices.QuoteFor(instrumentID); ok && quote.PriceInBaseCurrency.IsPositive() {
			return quote.PriceInBaseCurrency, model.PriceSourceQuote
		}
	}

	if instrument.ReferencePrice.IsPositive() {
		if instrument.Currency != "" && instrument.Currency != baseCurrency && exchangeRate.IsPositive() {
			return instrument.ReferencePrice.Mul(exchangeRate), model.PriceSourceReference
		}
		return instrument.ReferencePrice, model.PriceSourceReference
	}

	return decimal.Zero, model.PriceSourceNone
}

// diversificationScore computes a 0-100 evenness measure from portfolio
// weights: 100 * (1 - sum of squared weights), a Herfindahl-based score.
// Higher means more evenly spread. A single holding or an empty/zero-valued
// portfolio scores 0, the defined minimum.
func diversificationScore(valuations []model.HoldingValuation, totalValue decimal.Decimal) float64 {
	if len(valuations) <= 1 || !totalValue.IsPositive() {
		return 0
	}

	herfindahl := 0.0
	for _, v := range valuations {
		weight := v.ValueAtDate.Div(totalValue).InexactFloat64()
		herfindahl += weight * weight
	}

	return round(100 * (1 - herfindahl))
}

// ValuationService assembles the consumer-facing portfolio summary: a fresh
// aggregation of the ledger valued against the current price snapshot.
type ValuationService struct {
	holdingsService *HoldingsService
	instrumentRepo  *repository.InstrumentRepository
	pricingService  *PricingService
	baseCurrency    string
}

// NewValuationService creates a new ValuationService with the provided dependencies.
func NewValuationService(
	holdingsService *HoldingsService,
	instrumentRepo *repository.InstrumentRepository,
	pricingService *PricingService,
	baseCurrency string,
) *ValuationService {
	return &ValuationService{
		holdingsService: holdingsService,
		instrumentRepo:  instrumentRepo,
		pricingService:  pricingService,
		baseCurrency:    baseCurrency,
	}
}

// Summary computes the current portfolio valuation for a user from the
// currently persisted transaction set and the cached price snapshot.
func (s *ValuationService) Summary(userID string) (model.PortfolioValuation, error) {
	aggregation, err := s.holdingsService.CurrentAggregation(userID)
	if err != nil {
		return model.PortfolioValuation{}, err
	}

	instruments, err := s.instrumentRepo.GetAll()
	if err != nil {
		return model.PortfolioValuation{}, err
	}

	instrumentsByID := make(map[string]model.Instrument, len(instruments))
	for _, instrument := range instruments {
		instrumentsByID[instrument.ID] = instrument
	}

	snapshot := s.pricingService.Snapshot()

	return Valuate(aggregation, instrumentsByID, snapshot, snapshot.ExchangeRate, s.baseCurrency, time.Now().UTC()), nil
}
