package request

// SetAPIKeyRequest is the payload for storing the market data feed credential.
type SetAPIKeyRequest struct {
	APIKey string `json:"apiKey"`
}
