package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nido-app/nido-backend/internal/api/request"
	"github.com/nido-app/nido-backend/internal/model"
)

// ValidTransactionKind contains the allowed transaction kind values.
var ValidTransactionKind = map[string]bool{
	model.KindBuy: true, model.KindSell: true, model.KindDividend: true,
}

// ParseOccurredAt parses a transaction timestamp in RFC3339 or YYYY-MM-DD form.
func ParseOccurredAt(str string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		t, err = time.Parse("2006-01-02", str)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q", str)
		}
	}
	return t.UTC(), nil
}

// ValidateCreateTransaction validates a ledger append request against the
// transaction invariants:
//
//   - kind must be buy, sell or dividend
//   - buy/sell: units > 0, pricePerUnit > 0, fees >= 0, and when totalAmount
//     is supplied it must equal units*pricePerUnit + fees
//   - dividend: units == 0 and totalAmount > 0 (the cash amount received)
//   - occurredAt must parse and must not be in the future
//
// Returns a validation Error with field-specific messages if validation fails.
func ValidateCreateTransaction(req request.CreateTransactionRequest, now time.Time) error {
	errors := make(map[string]string)

	if err := ValidateUUID(req.InstrumentID); err != nil {
		errors["instrumentId"] = err.Error()
	}

	if strings.TrimSpace(req.Kind) == "" {
		errors["kind"] = "kind is required"
	} else if !ValidTransactionKind[req.Kind] {
		errors["kind"] = fmt.Sprintf("invalid kind: %s", req.Kind)
	}

	if req.Fees.IsNegative() {
		errors["fees"] = "fees cannot be negative"
	}

	switch req.Kind {
	case model.KindBuy, model.KindSell:
		if !req.Units.IsPositive() {
			errors["units"] = "units must be positive"
		}
		if !req.PricePerUnit.IsPositive() {
			errors["pricePerUnit"] = "pricePerUnit must be positive"
		}
		if !req.TotalAmount.IsZero() {
			expected := req.Units.Mul(req.PricePerUnit).Add(req.Fees)
			if !req.TotalAmount.Equal(expected) {
				errors["totalAmount"] = fmt.Sprintf("totalAmount must equal units*pricePerUnit + fees (%s)", expected)
			}
		}
	case model.KindDividend:
		if !req.Units.IsZero() {
			errors["units"] = "units must be zero for a dividend"
		}
		if !req.TotalAmount.IsPositive() {
			errors["totalAmount"] = "totalAmount must be positive"
		}
	}

	if strings.TrimSpace(req.OccurredAt) == "" {
		errors["occurredAt"] = "occurredAt is required"
	} else if occurredAt, err := ParseOccurredAt(req.OccurredAt); err != nil {
		errors["occurredAt"] = err.Error()
	} else if occurredAt.After(now) {
		errors["occurredAt"] = "occurredAt cannot be in the future"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateUpdateTransaction validates a corrective edit. All fields are
// optional, but if provided they must meet the same constraints as create.
// Kind and instrument are not editable; a mistake there is corrected by
// removing the entry and appending a new one.
func ValidateUpdateTransaction(req request.UpdateTransactionRequest, kind string, now time.Time) error {
	errors := make(map[string]string)

	if req.Units != nil {
		switch kind {
		case model.KindDividend:
			if !req.Units.IsZero() {
				errors["units"] = "units must be zero for a dividend"
			}
		default:
			if !req.Units.IsPositive() {
				errors["units"] = "units must be positive"
			}
		}
	}
	if req.PricePerUnit != nil && !req.PricePerUnit.IsPositive() {
		errors["pricePerUnit"] = "pricePerUnit must be positive"
	}
	if req.Fees != nil && req.Fees.IsNegative() {
		errors["fees"] = "fees cannot be negative"
	}
	if req.TotalAmount != nil && kind == model.KindDividend && !req.TotalAmount.IsPositive() {
		errors["totalAmount"] = "totalAmount must be positive"
	}
	if req.OccurredAt != nil {
		if occurredAt, err := ParseOccurredAt(*req.OccurredAt); err != nil {
			errors["occurredAt"] = err.Error()
		} else if occurredAt.After(now) {
			errors["occurredAt"] = "occurredAt cannot be in the future"
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// helper kept for symmetry with ValidateCreateTransaction callers that only
// have the derived amount on hand.
func DerivedTotal(units, pricePerUnit, fees decimal.Decimal) decimal.Decimal {
	return units.Mul(pricePerUnit).Add(fees)
}
