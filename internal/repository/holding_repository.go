package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nido-app/nido-backend/internal/model"
)

// HoldingRepository manages the holding placeholder table. Rows here are a
// presentation convenience created on first purchase of an instrument; the
// aggregator always re-derives real holdings from the full ledger.
type HoldingRepository struct {
	db *sql.DB
}

// NewHoldingRepository creates a new HoldingRepository with the provided database connection.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// EnsureHolding creates a zero-valued placeholder row for (user, instrument)
// if one does not exist yet, giving the aggregator a stable identity to
// attach to.
func (r *HoldingRepository) EnsureHolding(ctx context.Context, userID, instrumentID string) error {
	query := `
		INSERT OR IGNORE INTO holding (user_id, instrument_id, units, cost_basis, updated_at)
		VALUES (?, ?, '0', '0', ?)
	`

	_, err := r.db.ExecContext(ctx, query, userID, instrumentID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to ensure holding placeholder: %w", err)
	}

	return nil
}

// SaveDerived caches the latest aggregation result for a user. Purely an
// optimization for cold starts; invalidated implicitly because readers always
// compare ledger versions before trusting any cache.
func (r *HoldingRepository) SaveDerived(ctx context.Context, userID string, holdings map[string]model.Holding) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO holding (user_id, instrument_id, units, cost_basis, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, instrument_id)
		DO UPDATE SET units = excluded.units, cost_basis = excluded.cost_basis, updated_at = excluded.updated_at
	`

	for instrumentID, h := range holdings {
		if _, err := dbTx.ExecContext(ctx, query, userID, instrumentID, h.Units.String(), h.CostBasis.String(), now); err != nil {
			return fmt.Errorf("failed to cache holding: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit holding cache: %w", err)
	}

	return nil
}
