package service

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/model"
	"github.com/nido-app/nido-backend/internal/repository"
)

// SortChronological returns a copy of the transactions ordered by OccurredAt,
// with the per-user append sequence as the deterministic tie-break. Storage
// gives no ordering guarantee, so every aggregation pass sorts first; the
// sequence tie-break makes average-cost results reproducible when two
// transactions share a timestamp.
func SortChronological(transactions []model.Transaction) []model.Transaction {
	sorted := make([]model.Transaction, len(transactions))
	copy(sorted, transactions)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].OccurredAt.Equal(sorted[j].OccurredAt) {
			return sorted[i].Seq < sorted[j].Seq
		}
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})

	return sorted
}

// Aggregate reduces a transaction history into current per-instrument
// holdings using average-cost accounting: a single blended cost per
// instrument, not per-lot tracking.
//
// Processing rules, applied in chronological order:
//   - buy: units += tx.Units; costBasis += tx.TotalAmount (fees included in basis)
//   - sell: avgCost = costBasis/units (pre-sell); units -= tx.Units;
//     costBasis -= avgCost * tx.Units. Fails with ErrInsufficientUnits if the
//     sale exceeds the units held at that point; no partial state escapes.
//   - dividend: no change to units or cost basis. Dividends are realized cash
//     flow, accumulated into their own totals.
//
// Holdings that end at zero units are dropped from the active set; their
// history stays in the ledger. A holding going negative mid-stream cannot
// happen through this function and would indicate an upstream invariant
// violation; it is surfaced as ErrNegativeUnits rather than silently fixed.
func Aggregate(transactions []model.Transaction) (model.Aggregation, error) {
	sorted := SortChronological(transactions)

	holdings := make(map[string]model.Holding)
	dividends := make(map[string]decimal.Decimal)
	totalDividends := decimal.Zero

	for _, tx := range sorted {
		holding := holdings[tx.InstrumentID]
		if holding.Units.IsNegative() {
			return model.Aggregation{}, fmt.Errorf("%w: instrument %s", apperrors.ErrNegativeUnits, tx.InstrumentID)
		}

		switch tx.Kind {
		case model.KindBuy:
			holding.Units = holding.Units.Add(tx.Units)
			holding.CostBasis = holding.CostBasis.Add(tx.TotalAmount)

		case model.KindSell:
			if tx.Units.GreaterThan(holding.Units) {
				return model.Aggregation{}, fmt.Errorf("%w: instrument %s, selling %s of %s held",
					apperrors.ErrInsufficientUnits, tx.InstrumentID, tx.Units, holding.Units)
			}
			avgCost := holding.CostBasis.Div(holding.Units)
			holding.Units = holding.Units.Sub(tx.Units)
			if holding.Units.IsZero() {
				holding.CostBasis = decimal.Zero
			} else {
				holding.CostBasis = holding.CostBasis.Sub(avgCost.Mul(tx.Units))
			}

		case model.KindDividend:
			dividends[tx.InstrumentID] = dividends[tx.InstrumentID].Add(tx.TotalAmount)
			totalDividends = totalDividends.Add(tx.TotalAmount)
			continue

		default:
			return model.Aggregation{}, fmt.Errorf("unknown transaction kind %q", tx.Kind)
		}

		holding.InstrumentID = tx.InstrumentID
		holdings[tx.InstrumentID] = holding
	}

	// Drop closed positions and settle average cost.
	for id, holding := range holdings {
		if holding.Units.IsZero() {
			delete(holdings, id)
			continue
		}
		holding.AverageCost = holding.CostBasis.Div(holding.Units)
		holdings[id] = holding
	}

	return model.Aggregation{
		Holdings:              holdings,
		TotalDividends:        totalDividends,
		DividendsByInstrument: dividends,
	}, nil
}

// HoldingsService derives current holdings from the ledger on demand.
//
// Recomputing from the full history on every read is the deliberate design
// (correctness over performance at this scale), isolated behind a cache keyed
// by the user's monotonic ledger version: repeated reads with no new
// transactions cost one version lookup.
type HoldingsService struct {
	transactionRepo *repository.TransactionRepository

	mu    sync.RWMutex
	cache map[string]cachedAggregation
}

type cachedAggregation struct {
	version     int64
	aggregation model.Aggregation
}

// NewHoldingsService creates a new HoldingsService with the provided repository dependencies.
func NewHoldingsService(transactionRepo *repository.TransactionRepository) *HoldingsService {
	return &HoldingsService{
		transactionRepo: transactionRepo,
		cache:           make(map[string]cachedAggregation),
	}
}

// CurrentAggregation returns the user's holdings derived from the currently
// persisted transaction set, reusing the cached reduction while the ledger
// version is unchanged.
func (s *HoldingsService) CurrentAggregation(userID string) (model.Aggregation, error) {
	version, err := s.transactionRepo.GetLedgerVersion(userID)
	if err != nil {
		return model.Aggregation{}, err
	}

	s.mu.RLock()
	cached, ok := s.cache[userID]
	s.mu.RUnlock()
	if ok && cached.version == version {
		return cached.aggregation, nil
	}

	transactions, err := s.transactionRepo.GetTransactionsForUser(userID, model.TransactionFilter{})
	if err != nil {
		return model.Aggregation{}, err
	}

	aggregation, err := Aggregate(transactions)
	if err != nil {
		return model.Aggregation{}, err
	}

	s.mu.Lock()
	s.cache[userID] = cachedAggregation{version: version, aggregation: aggregation}
	s.mu.Unlock()

	return aggregation, nil
}
