package marketdata

import "encoding/json"

// quoteResponse represents the raw JSON response for a single-instrument
// quote lookup. Prices are decoded as json.Number so they can be converted to
// exact decimals without a float round trip.
type quoteResponse struct {
	Ticker    string      `json:"ticker"`
	Currency  string      `json:"currency"`
	Price     json.Number `json:"price"`
	ChangePct float64     `json:"changePct"`
	Error     *string     `json:"error,omitempty"`
}

// fxResponse represents the raw JSON response for an exchange rate lookup.
type fxResponse struct {
	Pair  string      `json:"pair"`
	Rate  json.Number `json:"rate"`
	Error *string     `json:"error,omitempty"`
}
