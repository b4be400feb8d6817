package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nido-app/nido-backend/internal/model"
	"github.com/nido-app/nido-backend/internal/repository"
)

// TransactionBuilder provides a fluent interface for appending test ledger
// entries. Entries go through the repository, so sequence numbers and the
// ledger version behave exactly as in production.
//
// Example usage:
//
//	// Simple buy with defaults
//	tx := testutil.NewTransaction(userID).Build(t, db)
//
//	// Customized entry
//	tx := testutil.NewTransaction(userID).
//	    Sell().
//	    WithInstrument(testutil.InstrumentCSPX).
//	    WithUnits("3").
//	    WithPricePerUnit("500").
//	    OccurredOn("2024-03-01").
//	    Build(t, db)
type TransactionBuilder struct {
	ID           string
	UserID       string
	InstrumentID string
	Kind         string
	Units        decimal.Decimal
	PricePerUnit decimal.Decimal
	TotalAmount  decimal.Decimal
	Currency     string
	Fees         decimal.Decimal
	OccurredAt   time.Time
	Note         string
	MilestoneTag string
}

// NewTransaction creates a TransactionBuilder with sensible defaults: a buy
// of 10 ICOLCAP units at 12500 COP each, no fees, dated 2024-01-15.
func NewTransaction(userID string) *TransactionBuilder {
	return &TransactionBuilder{
		ID:           MakeID(),
		UserID:       userID,
		InstrumentID: InstrumentICOLCAP,
		Kind:         model.KindBuy,
		Units:        decimal.NewFromInt(10),
		PricePerUnit: decimal.NewFromInt(12500),
		Currency:     "COP",
		Fees:         decimal.Zero,
		OccurredAt:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

// Buy marks the entry as a buy.
func (b *TransactionBuilder) Buy() *TransactionBuilder {
	b.Kind = model.KindBuy
	return b
}

// Sell marks the entry as a sell.
func (b *TransactionBuilder) Sell() *TransactionBuilder {
	b.Kind = model.KindSell
	return b
}

// Dividend marks the entry as a dividend of the given cash amount.
func (b *TransactionBuilder) Dividend(amount string) *TransactionBuilder {
	b.Kind = model.KindDividend
	b.Units = decimal.Zero
	b.PricePerUnit = decimal.Zero
	b.TotalAmount = mustDecimal(amount)
	return b
}

// WithInstrument sets the instrument.
func (b *TransactionBuilder) WithInstrument(instrumentID string) *TransactionBuilder {
	b.InstrumentID = instrumentID
	return b
}

// WithUnits sets the unit count.
func (b *TransactionBuilder) WithUnits(units string) *TransactionBuilder {
	b.Units = mustDecimal(units)
	return b
}

// WithPricePerUnit sets the per-unit price.
func (b *TransactionBuilder) WithPricePerUnit(price string) *TransactionBuilder {
	b.PricePerUnit = mustDecimal(price)
	return b
}

// WithFees sets the transaction fees.
func (b *TransactionBuilder) WithFees(fees string) *TransactionBuilder {
	b.Fees = mustDecimal(fees)
	return b
}

// WithTotalAmount overrides the derived total amount.
func (b *TransactionBuilder) WithTotalAmount(total string) *TransactionBuilder {
	b.TotalAmount = mustDecimal(total)
	return b
}

// WithCurrency sets the entry currency.
func (b *TransactionBuilder) WithCurrency(currency string) *TransactionBuilder {
	b.Currency = currency
	return b
}

// WithMilestone tags the entry with a milestone label.
func (b *TransactionBuilder) WithMilestone(tag string) *TransactionBuilder {
	b.MilestoneTag = tag
	return b
}

// OccurredOn sets the transaction date (YYYY-MM-DD).
func (b *TransactionBuilder) OccurredOn(date string) *TransactionBuilder {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic("invalid test date: " + date)
	}
	b.OccurredAt = t
	return b
}

// OccurredAtTime sets the exact transaction timestamp.
func (b *TransactionBuilder) OccurredAtTime(at time.Time) *TransactionBuilder {
	b.OccurredAt = at
	return b
}

// Build appends the entry to the ledger and returns it with Seq assigned.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	total := b.TotalAmount
	if total.IsZero() && b.Kind != model.KindDividend {
		total = b.Units.Mul(b.PricePerUnit).Add(b.Fees)
	}

	tx := model.Transaction{
		ID:           b.ID,
		UserID:       b.UserID,
		InstrumentID: b.InstrumentID,
		Kind:         b.Kind,
		Units:        b.Units,
		PricePerUnit: b.PricePerUnit,
		TotalAmount:  total,
		Currency:     b.Currency,
		Fees:         b.Fees,
		OccurredAt:   b.OccurredAt,
		Note:         b.Note,
		MilestoneTag: b.MilestoneTag,
		CreatedAt:    time.Now().UTC(),
	}

	repo := repository.NewTransactionRepository(db)
	if err := repo.InsertTransaction(context.Background(), &tx); err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}

	return tx
}

// Convenience functions

// CreateBuy appends a buy of units at pricePerUnit for the default instrument.
//
// Example usage:
//
//	testutil.CreateBuy(t, db, userID, "10", "12500")
func CreateBuy(t *testing.T, db *sql.DB, userID, units, pricePerUnit string) model.Transaction {
	t.Helper()
	return NewTransaction(userID).Buy().WithUnits(units).WithPricePerUnit(pricePerUnit).Build(t, db)
}

// CreateSell appends a sell of units at pricePerUnit for the default instrument.
func CreateSell(t *testing.T, db *sql.DB, userID, units, pricePerUnit string) model.Transaction {
	t.Helper()
	return NewTransaction(userID).Sell().WithUnits(units).WithPricePerUnit(pricePerUnit).Build(t, db)
}

// MakeID generates a fresh UUID string.
func MakeID() string {
	return uuid.New().String()
}

// MakeUserID generates a user ID for a test ledger.
func MakeUserID() string {
	return uuid.New().String()
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("invalid test decimal: " + s)
	}
	return d
}
