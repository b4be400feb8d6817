package request

import "github.com/shopspring/decimal"

// CreateTransactionRequest is the payload for appending one ledger event.
// Decimal fields accept JSON numbers or strings; strings keep amounts exact.
// TotalAmount may be omitted for buy/sell, in which case it is derived as
// units*pricePerUnit + fees.
type CreateTransactionRequest struct {
	InstrumentID        string               `json:"instrumentId"`
	Kind                string               `json:"kind"`
	Units               decimal.Decimal      `json:"units"`
	PricePerUnit        decimal.Decimal      `json:"pricePerUnit"`
	TotalAmount         decimal.Decimal      `json:"totalAmount"`
	Currency            string               `json:"currency"`
	ExchangeRateAtEntry *decimal.Decimal     `json:"exchangeRateAtEntry,omitempty"`
	Fees                decimal.Decimal      `json:"fees"`
	OccurredAt          string               `json:"occurredAt"`
	Note                string               `json:"note,omitempty"`
	MilestoneTag        string               `json:"milestoneTag,omitempty"`
}

// UpdateTransactionRequest is the payload for a corrective edit. All fields
// are optional; provided fields must meet the same constraints as create.
type UpdateTransactionRequest struct {
	Units        *decimal.Decimal `json:"units,omitempty"`
	PricePerUnit *decimal.Decimal `json:"pricePerUnit,omitempty"`
	TotalAmount  *decimal.Decimal `json:"totalAmount,omitempty"`
	Fees         *decimal.Decimal `json:"fees,omitempty"`
	OccurredAt   *string          `json:"occurredAt,omitempty"`
	Note         *string          `json:"note,omitempty"`
	MilestoneTag *string          `json:"milestoneTag,omitempty"`
}
