package request

import "github.com/shopspring/decimal"

// UpdateReferencePriceRequest is the payload for a manual reference price
// override on one instrument.
type UpdateReferencePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}
