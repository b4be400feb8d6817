package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/model"
)

// TransactionRepository provides data access methods for the append-only
// ledger_entry table. The ledger is keyed by user_id; every query is scoped to
// a single user.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// InsertTransaction appends one transaction to the user's ledger.
//
// The per-user sequence number and ledger version live in the ledger_version
// row; claiming the next sequence, inserting the entry and bumping the version
// happen in a single database transaction so a concurrent append can never
// observe a half-applied ledger. The assigned sequence is written back to tx.Seq.
func (r *TransactionRepository) InsertTransaction(ctx context.Context, tx *model.Transaction) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback() //nolint:errcheck // no-op after commit

	seq, err := claimNextSeq(dbTx, tx.UserID)
	if err != nil {
		return err
	}
	tx.Seq = seq

	query := `
		INSERT INTO ledger_entry (
			id, user_id, instrument_id, kind, units, price_per_unit, total_amount,
			currency, exchange_rate_at_entry, fees, occurred_at, note, milestone_tag,
			seq, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = dbTx.ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		tx.InstrumentID,
		tx.Kind,
		tx.Units.String(),
		tx.PricePerUnit.String(),
		tx.TotalAmount.String(),
		tx.Currency,
		nullDecimalString(tx.ExchangeRateAtEntry),
		tx.Fees.String(),
		tx.OccurredAt.UTC().Format(time.RFC3339),
		tx.Note,
		tx.MilestoneTag,
		tx.Seq,
		tx.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if err := bumpVersion(dbTx, tx.UserID); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger append: %w", err)
	}

	return nil
}

// GetTransactionsForUser retrieves a user's transactions, optionally filtered
// by instrument and date range. Storage gives no ordering guarantee; callers
// that need chronological order must sort (see service.SortChronological).
func (r *TransactionRepository) GetTransactionsForUser(userID string, filter model.TransactionFilter) ([]model.Transaction, error) {
	query := `
		SELECT id, user_id, instrument_id, kind, units, price_per_unit, total_amount,
		       currency, exchange_rate_at_entry, fees, occurred_at, note, milestone_tag,
		       seq, created_at
		FROM ledger_entry
		WHERE user_id = ?
	`
	args := []any{userID}

	if filter.InstrumentID != "" {
		query += ` AND instrument_id = ?`
		args = append(args, filter.InstrumentID)
	}
	if !filter.From.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, filter.From.UTC().Format(time.RFC3339))
	}
	if !filter.To.IsZero() {
		query += ` AND occurred_at <= ?`
		args = append(args, filter.To.UTC().Format(time.RFC3339))
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger_entry table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger_entry table: %w", err)
	}

	return transactions, nil
}

// GetTransaction retrieves a single transaction by ID, or
// apperrors.ErrTransactionNotFound.
func (r *TransactionRepository) GetTransaction(id string) (model.Transaction, error) {
	query := `
		SELECT id, user_id, instrument_id, kind, units, price_per_unit, total_amount,
		       currency, exchange_rate_at_entry, fees, occurred_at, note, milestone_tag,
		       seq, created_at
		FROM ledger_entry
		WHERE id = ?
	`

	row := r.db.QueryRow(query, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, err
	}

	return tx, nil
}

// UpdateTransaction rewrites the mutable fields of a corrective edit and bumps
// the user's ledger version. Seq and CreatedAt never change.
func (r *TransactionRepository) UpdateTransaction(ctx context.Context, tx model.Transaction) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback() //nolint:errcheck // no-op after commit

	query := `
		UPDATE ledger_entry
		SET instrument_id = ?, kind = ?, units = ?, price_per_unit = ?,
		    total_amount = ?, currency = ?, exchange_rate_at_entry = ?, fees = ?,
		    occurred_at = ?, note = ?, milestone_tag = ?
		WHERE id = ? AND user_id = ?
	`

	result, err := dbTx.ExecContext(ctx, query,
		tx.InstrumentID,
		tx.Kind,
		tx.Units.String(),
		tx.PricePerUnit.String(),
		tx.TotalAmount.String(),
		tx.Currency,
		nullDecimalString(tx.ExchangeRateAtEntry),
		tx.Fees.String(),
		tx.OccurredAt.UTC().Format(time.RFC3339),
		tx.Note,
		tx.MilestoneTag,
		tx.ID,
		tx.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrTransactionNotFound
	}

	if err := bumpVersion(dbTx, tx.UserID); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger update: %w", err)
	}

	return nil
}

// DeleteTransaction removes one ledger entry and bumps the user's ledger version.
func (r *TransactionRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback() //nolint:errcheck // no-op after commit

	result, err := dbTx.ExecContext(ctx, `DELETE FROM ledger_entry WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrTransactionNotFound
	}

	if err := bumpVersion(dbTx, userID); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger delete: %w", err)
	}

	return nil
}

// GetLedgerVersion returns the user's current ledger version. A user with no
// ledger_version row has version 0 (nothing appended yet).
func (r *TransactionRepository) GetLedgerVersion(userID string) (int64, error) {
	var version int64
	err := r.db.QueryRow(`SELECT version FROM ledger_version WHERE user_id = ?`, userID).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query ledger version: %w", err)
	}
	return version, nil
}

// ListUserIDs returns every user with at least one ledger entry. Used by the
// snapshot scheduler to iterate portfolios.
func (r *TransactionRepository) ListUserIDs() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT user_id FROM ledger_entry`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger users: %w", err)
	}
	defer rows.Close()

	userIDs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		userIDs = append(userIDs, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger users: %w", err)
	}

	return userIDs, nil
}

// claimNextSeq reserves the next per-user sequence number inside dbTx.
func claimNextSeq(dbTx *sql.Tx, userID string) (int64, error) {
	_, err := dbTx.Exec(`INSERT OR IGNORE INTO ledger_version (user_id, version, next_seq) VALUES (?, 0, 1)`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to initialize ledger version: %w", err)
	}

	var seq int64
	err = dbTx.QueryRow(`SELECT next_seq FROM ledger_version WHERE user_id = ?`, userID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to read next sequence: %w", err)
	}

	_, err = dbTx.Exec(`UPDATE ledger_version SET next_seq = next_seq + 1 WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence: %w", err)
	}

	return seq, nil
}

// bumpVersion moves the user's ledger version forward inside dbTx.
func bumpVersion(dbTx *sql.Tx, userID string) error {
	_, err := dbTx.Exec(`INSERT OR IGNORE INTO ledger_version (user_id, version, next_seq) VALUES (?, 0, 1)`, userID)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger version: %w", err)
	}

	_, err = dbTx.Exec(`UPDATE ledger_version SET version = version + 1 WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to bump ledger version: %w", err)
	}

	return nil
}

func scanTransaction(s scanner) (model.Transaction, error) {
	var tx model.Transaction
	var unitsStr, priceStr, totalStr, feesStr, occurredAtStr, createdAtStr string
	var exchangeRateStr, noteStr, milestoneStr sql.NullString

	err := s.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.InstrumentID,
		&tx.Kind,
		&unitsStr,
		&priceStr,
		&totalStr,
		&tx.Currency,
		&exchangeRateStr,
		&feesStr,
		&occurredAtStr,
		&noteStr,
		&milestoneStr,
		&tx.Seq,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return model.Transaction{}, err
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	if tx.Units, err = parseDecimal(unitsStr); err != nil {
		return model.Transaction{}, err
	}
	if tx.PricePerUnit, err = parseDecimal(priceStr); err != nil {
		return model.Transaction{}, err
	}
	if tx.TotalAmount, err = parseDecimal(totalStr); err != nil {
		return model.Transaction{}, err
	}
	if tx.Fees, err = parseDecimal(feesStr); err != nil {
		return model.Transaction{}, err
	}
	if tx.ExchangeRateAtEntry, err = parseNullDecimal(exchangeRateStr); err != nil {
		return model.Transaction{}, err
	}
	if tx.OccurredAt, err = ParseTime(occurredAtStr); err != nil {
		return model.Transaction{}, err
	}
	if tx.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Transaction{}, err
	}

	tx.Note = noteStr.String
	tx.MilestoneTag = milestoneStr.String

	return tx, nil
}
