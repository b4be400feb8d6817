package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nido-app/nido-backend/internal/model"
	"github.com/nido-app/nido-backend/internal/repository"
	"github.com/nido-app/nido-backend/internal/validation"
)

// ValidSnapshotKind contains the allowed snapshot kind values.
var ValidSnapshotKind = map[string]bool{
	model.SnapshotManual: true, model.SnapshotMonthly: true, model.SnapshotYearly: true,
}

// SnapshotService captures and serves immutable point-in-time portfolio
// valuations. A snapshot is always computed fresh from the ledger and the
// current price cache at capture time; it never reuses a previously rendered
// summary.
type SnapshotService struct {
	snapshotRepo     *repository.SnapshotRepository
	transactionRepo  *repository.TransactionRepository
	valuationService *ValuationService
}

// NewSnapshotService creates a new SnapshotService with the provided dependencies.
func NewSnapshotService(
	snapshotRepo *repository.SnapshotRepository,
	transactionRepo *repository.TransactionRepository,
	valuationService *ValuationService,
) *SnapshotService {
	return &SnapshotService{
		snapshotRepo:     snapshotRepo,
		transactionRepo:  transactionRepo,
		valuationService: valuationService,
	}
}

// TakeSnapshot values the user's portfolio and appends the result to the
// snapshot timeline. An empty portfolio produces a valid zero-valued
// snapshot; the timeline records "nothing invested yet" states too.
func (s *SnapshotService) TakeSnapshot(ctx context.Context, userID, kind string) (model.PortfolioSnapshot, error) {
	if !ValidSnapshotKind[kind] {
		return model.PortfolioSnapshot{}, &validation.Error{
			Fields: map[string]string{"kind": fmt.Sprintf("invalid kind: %s", kind)},
		}
	}

	valuation, err := s.valuationService.Summary(userID)
	if err != nil {
		return model.PortfolioSnapshot{}, err
	}

	snapshot := model.PortfolioSnapshot{
		ID:             uuid.New().String(),
		UserID:         userID,
		TakenAt:        time.Now().UTC(),
		Kind:           kind,
		TotalValue:     valuation.CurrentValue,
		TotalInvested:  valuation.TotalInvested,
		TotalReturn:    valuation.TotalReturn,
		TotalReturnPct: valuation.TotalReturnPct,
		Holdings:       valuation.Holdings,
	}

	if err := s.snapshotRepo.InsertSnapshot(ctx, snapshot); err != nil {
		return model.PortfolioSnapshot{}, err
	}

	return snapshot, nil
}

// List returns a user's snapshot timeline, oldest first.
func (s *SnapshotService) List(userID string) ([]model.PortfolioSnapshot, error) {
	return s.snapshotRepo.GetSnapshotsForUser(userID)
}

// Get returns one snapshot owned by the user.
func (s *SnapshotService) Get(userID, id string) (model.PortfolioSnapshot, error) {
	if err := validation.ValidateUUID(id); err != nil {
		return model.PortfolioSnapshot{}, err
	}
	return s.snapshotRepo.GetSnapshot(userID, id)
}

// RunScheduled takes one snapshot of the given kind for every user that has
// ever appended a transaction. Used by the periodic scheduler; per-user
// failures are logged and skipped so one bad ledger never blocks the rest.
func (s *SnapshotService) RunScheduled(ctx context.Context, kind string) {
	userIDs, err := s.transactionRepo.ListUserIDs()
	if err != nil {
		log.Printf("scheduled %s snapshot: failed to list users: %v", kind, err)
		return
	}

	for _, userID := range userIDs {
		if _, err := s.TakeSnapshot(ctx, userID, kind); err != nil {
			log.Printf("scheduled %s snapshot for user %s failed: %v", kind, userID, err)
		}
	}

	log.Printf("scheduled %s snapshot pass completed for %d users", kind, len(userIDs))
}
