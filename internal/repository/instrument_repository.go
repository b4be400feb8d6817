package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/model"
)

// InstrumentRepository provides data access methods for the instrument
// reference registry.
type InstrumentRepository struct {
	db *sql.DB
}

// NewInstrumentRepository creates a new InstrumentRepository with the provided database connection.
func NewInstrumentRepository(db *sql.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

// GetAll returns every instrument in the registry. The catalog is small and
// bounded, so no pagination is needed.
func (r *InstrumentRepository) GetAll() ([]model.Instrument, error) {
	query := `
		SELECT id, ticker, display_name, currency, reference_price, reference_price_at
		FROM instrument
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query instrument table: %w", err)
	}
	defer rows.Close()

	instruments := []model.Instrument{}

	for rows.Next() {
		instrument, err := scanInstrument(rows)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, instrument)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instrument table: %w", err)
	}

	return instruments, nil
}

// GetByID returns a single instrument, or apperrors.ErrInstrumentNotFound.
func (r *InstrumentRepository) GetByID(id string) (model.Instrument, error) {
	query := `
		SELECT id, ticker, display_name, currency, reference_price, reference_price_at
		FROM instrument
		WHERE id = ?
	`

	row := r.db.QueryRow(query, id)
	instrument, err := scanInstrument(row)
	if err == sql.ErrNoRows {
		return model.Instrument{}, apperrors.ErrInstrumentNotFound
	}
	if err != nil {
		return model.Instrument{}, err
	}

	return instrument, nil
}

// UpdateReferencePrice updates the fallback price fields for an instrument.
// These are the only mutable fields on a registry row.
func (r *InstrumentRepository) UpdateReferencePrice(ctx context.Context, id string, price decimal.Decimal, at time.Time) error {
	query := `
		UPDATE instrument
		SET reference_price = ?, reference_price_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, price.String(), at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update instrument reference price: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrInstrumentNotFound
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInstrument(s scanner) (model.Instrument, error) {
	var instrument model.Instrument
	var priceStr string
	var priceAtStr sql.NullString

	err := s.Scan(
		&instrument.ID,
		&instrument.Ticker,
		&instrument.DisplayName,
		&instrument.Currency,
		&priceStr,
		&priceAtStr,
	)
	if err == sql.ErrNoRows {
		return model.Instrument{}, err
	}
	if err != nil {
		return model.Instrument{}, fmt.Errorf("failed to scan instrument row: %w", err)
	}

	instrument.ReferencePrice, err = parseDecimal(priceStr)
	if err != nil {
		return model.Instrument{}, err
	}

	if priceAtStr.Valid {
		instrument.ReferencePriceTimestamp, err = ParseTime(priceAtStr.String)
		if err != nil {
			return model.Instrument{}, err
		}
	}

	return instrument, nil
}
