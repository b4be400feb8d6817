package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ParseTime parses a date string in "2006-01-02" or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	returnTime, err := time.Parse("2006-01-02", str)
	if err != nil {
		returnTime, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
	}
	return returnTime.UTC(), nil
}

// parseDecimal parses a decimal stored as TEXT. Amounts are persisted as
// decimal strings, never floats, so ledger arithmetic stays exact.
func parseDecimal(str string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse decimal %q: %w", str, err)
	}
	return d, nil
}

// parseNullDecimal parses an optional decimal column.
func parseNullDecimal(ns sql.NullString) (decimal.NullDecimal, error) {
	if !ns.Valid || ns.String == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := parseDecimal(ns.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

// nullDecimalString converts an optional decimal to its TEXT representation.
func nullDecimalString(nd decimal.NullDecimal) any {
	if !nd.Valid {
		return nil
	}
	return nd.Decimal.String()
}
