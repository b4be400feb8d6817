package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/model"
)

// SnapshotRepository provides append-only data access for the
// portfolio_snapshot table. There is deliberately no update or delete method:
// snapshots are immutable once written.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the provided database connection.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// InsertSnapshot appends one snapshot document. Holdings are serialized as a
// JSON document since snapshots are only ever read back whole.
func (r *SnapshotRepository) InsertSnapshot(ctx context.Context, snapshot model.PortfolioSnapshot) error {
	holdingsJSON, err := json.Marshal(snapshot.Holdings)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot holdings: %w", err)
	}

	query := `
		INSERT INTO portfolio_snapshot (
			id, user_id, taken_at, kind, total_value, total_invested,
			total_return, total_return_pct, holdings_json
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.UserID,
		snapshot.TakenAt.UTC().Format(time.RFC3339),
		snapshot.Kind,
		snapshot.TotalValue.String(),
		snapshot.TotalInvested.String(),
		snapshot.TotalReturn.String(),
		snapshot.TotalReturnPct,
		string(holdingsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// GetSnapshotsForUser returns all snapshots for a user, oldest first.
func (r *SnapshotRepository) GetSnapshotsForUser(userID string) ([]model.PortfolioSnapshot, error) {
	query := `
		SELECT id, user_id, taken_at, kind, total_value, total_invested,
		       total_return, total_return_pct, holdings_json
		FROM portfolio_snapshot
		WHERE user_id = ?
		ORDER BY taken_at ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio_snapshot table: %w", err)
	}
	defer rows.Close()

	snapshots := []model.PortfolioSnapshot{}

	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio_snapshot table: %w", err)
	}

	return snapshots, nil
}

// GetSnapshot returns one snapshot owned by the user, or
// apperrors.ErrSnapshotNotFound.
func (r *SnapshotRepository) GetSnapshot(userID, id string) (model.PortfolioSnapshot, error) {
	query := `
		SELECT id, user_id, taken_at, kind, total_value, total_invested,
		       total_return, total_return_pct, holdings_json
		FROM portfolio_snapshot
		WHERE id = ? AND user_id = ?
	`

	row := r.db.QueryRow(query, id, userID)
	snapshot, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return model.PortfolioSnapshot{}, apperrors.ErrSnapshotNotFound
	}
	if err != nil {
		return model.PortfolioSnapshot{}, err
	}

	return snapshot, nil
}

func scanSnapshot(s scanner) (model.PortfolioSnapshot, error) {
	var snapshot model.PortfolioSnapshot
	var takenAtStr, totalValueStr, totalInvestedStr, totalReturnStr, holdingsJSON string

	err := s.Scan(
		&snapshot.ID,
		&snapshot.UserID,
		&takenAtStr,
		&snapshot.Kind,
		&totalValueStr,
		&totalInvestedStr,
		&totalReturnStr,
		&snapshot.TotalReturnPct,
		&holdingsJSON,
	)
	if err == sql.ErrNoRows {
		return model.PortfolioSnapshot{}, err
	}
	if err != nil {
		return model.PortfolioSnapshot{}, fmt.Errorf("failed to scan snapshot row: %w", err)
	}

	if snapshot.TakenAt, err = ParseTime(takenAtStr); err != nil {
		return model.PortfolioSnapshot{}, err
	}
	if snapshot.TotalValue, err = parseDecimal(totalValueStr); err != nil {
		return model.PortfolioSnapshot{}, err
	}
	if snapshot.TotalInvested, err = parseDecimal(totalInvestedStr); err != nil {
		return model.PortfolioSnapshot{}, err
	}
	if snapshot.TotalReturn, err = parseDecimal(totalReturnStr); err != nil {
		return model.PortfolioSnapshot{}, err
	}

	if err := json.Unmarshal([]byte(holdingsJSON), &snapshot.Holdings); err != nil {
		return model.PortfolioSnapshot{}, fmt.Errorf("failed to unmarshal snapshot holdings: %w", err)
	}

	return snapshot, nil
}
