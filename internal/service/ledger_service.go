package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nido-app/nido-backend/internal/api/request"
	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/model"
	"github.com/nido-app/nido-backend/internal/repository"
	"github.com/nido-app/nido-backend/internal/validation"
)

// LedgerService handles append, list and corrective operations on a user's
// transaction ledger. Every operation takes the acting user ID explicitly;
// there is no ambient current-user state.
type LedgerService struct {
	transactionRepo *repository.TransactionRepository
	instrumentRepo  *repository.InstrumentRepository
	holdingRepo     *repository.HoldingRepository
	holdingsService *HoldingsService
}

// NewLedgerService creates a new LedgerService with the provided dependencies.
func NewLedgerService(
	transactionRepo *repository.TransactionRepository,
	instrumentRepo *repository.InstrumentRepository,
	holdingRepo *repository.HoldingRepository,
	holdingsService *HoldingsService,
) *LedgerService {
	return &LedgerService{
		transactionRepo: transactionRepo,
		instrumentRepo:  instrumentRepo,
		holdingRepo:     holdingRepo,
		holdingsService: holdingsService,
	}
}

// Append validates and appends one transaction to the user's ledger.
//
// A sell is pre-checked against the currently aggregated holdings and
// rejected with ErrInsufficientUnits when it would drive units negative; the
// ledger is left untouched in that case. The first event for an instrument
// also bootstraps a holding placeholder row, a presentation convenience rather
// than a correctness requirement, since the aggregator always re-derives from the
// full ledger.
func (s *LedgerService) Append(ctx context.Context, userID string, req request.CreateTransactionRequest) (*model.Transaction, error) {
	now := time.Now().UTC()

	if err := validation.ValidateCreateTransaction(req, now); err != nil {
		return nil, err
	}

	if _, err := s.instrumentRepo.GetByID(req.InstrumentID); err != nil {
		return nil, err
	}

	occurredAt, err := validation.ParseOccurredAt(req.OccurredAt)
	if err != nil {
		return nil, err
	}

	totalAmount := req.TotalAmount
	if totalAmount.IsZero() && req.Kind != model.KindDividend {
		totalAmount = validation.DerivedTotal(req.Units, req.PricePerUnit, req.Fees)
	}

	if req.Kind == model.KindSell {
		aggregation, err := s.holdingsService.CurrentAggregation(userID)
		if err != nil {
			return nil, err
		}
		held := aggregation.Holdings[req.InstrumentID].Units
		if req.Units.GreaterThan(held) {
			return nil, fmt.Errorf("%w: instrument %s, selling %s of %s held",
				apperrors.ErrInsufficientUnits, req.InstrumentID, req.Units, held)
		}
	}

	transaction := &model.Transaction{
		ID:           uuid.New().String(),
		UserID:       userID,
		InstrumentID: req.InstrumentID,
		Kind:         req.Kind,
		Units:        req.Units,
		PricePerUnit: req.PricePerUnit,
		TotalAmount:  totalAmount,
		Currency:     req.Currency,
		Fees:         req.Fees,
		OccurredAt:   occurredAt,
		Note:         req.Note,
		MilestoneTag: req.MilestoneTag,
		CreatedAt:    now,
	}
	if req.ExchangeRateAtEntry != nil {
		transaction.ExchangeRateAtEntry = decimal.NullDecimal{Decimal: *req.ExchangeRateAtEntry, Valid: true}
	}

	if err := s.transactionRepo.InsertTransaction(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if req.Kind == model.KindBuy {
		if err := s.holdingRepo.EnsureHolding(ctx, userID, req.InstrumentID); err != nil {
			return nil, err
		}
	}

	return transaction, nil
}

// List returns a user's transactions in chronological order, enriched with
// instrument names for presentation. The repository itself guarantees no
// ordering; sorting happens here.
func (s *LedgerService) List(userID string, filter model.TransactionFilter) ([]model.TransactionResponse, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return nil, apperrors.ErrInvalidDateRange
	}

	transactions, err := s.transactionRepo.GetTransactionsForUser(userID, filter)
	if err != nil {
		return nil, err
	}

	instruments, err := s.instrumentRepo.GetAll()
	if err != nil {
		return nil, err
	}
	instrumentsByID := make(map[string]model.Instrument, len(instruments))
	for _, instrument := range instruments {
		instrumentsByID[instrument.ID] = instrument
	}

	sorted := SortChronological(transactions)
	responses := make([]model.TransactionResponse, len(sorted))
	for i, tx := range sorted {
		instrument := instrumentsByID[tx.InstrumentID]
		responses[i] = model.TransactionResponse{
			Transaction:           tx,
			Ticker:                instrument.Ticker,
			InstrumentDisplayName: instrument.DisplayName,
		}
	}

	return responses, nil
}

// Get returns one transaction, enforcing ownership.
func (s *LedgerService) Get(userID, id string) (model.Transaction, error) {
	transaction, err := s.transactionRepo.GetTransaction(id)
	if err != nil {
		return model.Transaction{}, err
	}
	if transaction.UserID != userID {
		return model.Transaction{}, apperrors.ErrNotOwner
	}
	return transaction, nil
}

// Amend applies a corrective edit to an owned transaction. It does not
// rewrite history elsewhere and triggers no cascading recompute; the next
// holdings read re-derives from the full ledger (the bumped ledger version
// invalidates any cache).
func (s *LedgerService) Amend(ctx context.Context, userID, id string, req request.UpdateTransactionRequest) (model.Transaction, error) {
	transaction, err := s.Get(userID, id)
	if err != nil {
		return model.Transaction{}, err
	}

	now := time.Now().UTC()
	if err := validation.ValidateUpdateTransaction(req, transaction.Kind, now); err != nil {
		return model.Transaction{}, err
	}

	if req.Units != nil {
		transaction.Units = *req.Units
	}
	if req.PricePerUnit != nil {
		transaction.PricePerUnit = *req.PricePerUnit
	}
	if req.Fees != nil {
		transaction.Fees = *req.Fees
	}
	if req.TotalAmount != nil {
		transaction.TotalAmount = *req.TotalAmount
	}
	if req.OccurredAt != nil {
		if transaction.OccurredAt, err = validation.ParseOccurredAt(*req.OccurredAt); err != nil {
			return model.Transaction{}, err
		}
	}
	if req.Note != nil {
		transaction.Note = *req.Note
	}
	if req.MilestoneTag != nil {
		transaction.MilestoneTag = *req.MilestoneTag
	}

	// Keep the amount identity intact for buy/sell after partial edits.
	if transaction.Kind != model.KindDividend && req.TotalAmount == nil {
		transaction.TotalAmount = validation.DerivedTotal(transaction.Units, transaction.PricePerUnit, transaction.Fees)
	}

	if err := s.transactionRepo.UpdateTransaction(ctx, transaction); err != nil {
		return model.Transaction{}, err
	}

	return transaction, nil
}

// Remove deletes an owned transaction. Like Amend, it is a corrective
// operation only; holders of derived state re-derive on next read.
func (s *LedgerService) Remove(ctx context.Context, userID, id string) error {
	if _, err := s.Get(userID, id); err != nil {
		return err
	}
	return s.transactionRepo.DeleteTransaction(ctx, userID, id)
}
