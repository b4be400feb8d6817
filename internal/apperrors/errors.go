package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrInstrumentNotFound indicates that an instrument with the given ID does not exist
	// in the reference registry.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrSnapshotNotFound indicates that a portfolio snapshot with the given ID does not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrQuoteNotFound indicates that no cached quote exists for the given instrument.
	ErrQuoteNotFound = errors.New("quote not found")

	// ErrSettingNotFound indicates that a system setting with the given key does not exist.
	ErrSettingNotFound = errors.New("setting not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInsufficientUnits indicates that a sell transaction cannot be completed
	// because the portfolio does not hold enough units of the instrument.
	// The ledger is never clamped: the operation is rejected and state is unchanged.
	ErrInsufficientUnits = errors.New("insufficient units for sale")

	// ErrNotOwner indicates that the acting user does not own the transaction
	// they are trying to amend or remove.
	ErrNotOwner = errors.New("transaction belongs to another user")

	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")

	// ErrNegativeUnits indicates that a holding with negative units reached the
	// aggregator. This is an upstream invariant violation, never user input,
	// and is treated as fatal rather than silently corrected.
	ErrNegativeUnits = errors.New("negative units in aggregation")

	// ErrFeedNotConfigured indicates that no market data API credential is set.
	// A refresh without a credential is a no-op, not a failure; this sentinel
	// exists so callers can tell "not configured" apart from "fetch failed".
	ErrFeedNotConfigured = errors.New("market data feed not configured")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
// These errors indicate that an operation failed, but not due to missing entities or validation issues.
var (
	// Transaction operation errors
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToRetrieveTransaction  = errors.New("failed to retrieve transaction")
	ErrFailedToCreateTransaction    = errors.New("failed to create transaction")
	ErrFailedToUpdateTransaction    = errors.New("failed to update transaction")
	ErrFailedToDeleteTransaction    = errors.New("failed to delete transaction")

	// Instrument operation errors
	ErrFailedToRetrieveInstruments  = errors.New("failed to retrieve instruments")
	ErrFailedToUpdateReferencePrice = errors.New("failed to update reference price")

	// Portfolio operation errors
	ErrFailedToGetPortfolioSummary = errors.New("failed to get portfolio summary")

	// Price operation errors
	ErrFailedToRefreshPrices  = errors.New("failed to refresh prices")
	ErrFailedToRetrieveQuotes = errors.New("failed to retrieve quotes")

	// Snapshot operation errors
	ErrFailedToCreateSnapshot    = errors.New("failed to create snapshot")
	ErrFailedToRetrieveSnapshots = errors.New("failed to retrieve snapshots")

	// System operation errors
	ErrFailedToGetVersionInfo = errors.New("failed to get version information")
	ErrFailedToStoreAPIKey    = errors.New("failed to store API key")
)

// Data integrity errors represent inconsistencies or corruption in the data.
var (
	// ErrDataInconsistency indicates that the data is in an inconsistent state
	// (e.g., a transaction references an instrument that doesn't exist).
	ErrDataInconsistency = errors.New("data inconsistency detected")

	// ErrMissingRequiredField indicates that a required field is missing or empty.
	ErrMissingRequiredField = errors.New("missing required field")
)
