// Package marketdata implements the HTTP client for the external price and
// exchange-rate feed. The feed exposes instrument-id-to-price lookups and a
// currency pair rate; each call is independently fallible and retryable.
package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

// Quote is a single fetched price in the instrument's trading currency.
type Quote struct {
	Ticker    string
	Currency  string
	Price     decimal.Decimal
	ChangePct float64
	FetchedAt time.Time
}

// Client fetches quotes and exchange rates from the price feed.
// Transient failures are retried with fibonacci backoff before surfacing.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a feed client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchQuote retrieves the current price for one ticker.
func (c *Client) FetchQuote(ctx context.Context, ticker, apiKey string) (Quote, error) {
	endpoint := fmt.Sprintf("%s/v1/quote/%s?apikey=%s", c.baseURL, url.PathEscape(ticker), url.QueryEscape(apiKey))

	var parsed quoteResponse
	if err := c.getJSON(ctx, endpoint, &parsed); err != nil {
		return Quote{}, fmt.Errorf("quote fetch for %s: %w", ticker, err)
	}
	if parsed.Error != nil {
		return Quote{}, fmt.Errorf("quote fetch for %s: feed error: %s", ticker, *parsed.Error)
	}

	price, err := decimal.NewFromString(parsed.Price.String())
	if err != nil {
		return Quote{}, fmt.Errorf("quote fetch for %s: bad price %q: %w", ticker, parsed.Price, err)
	}

	return Quote{
		Ticker:    parsed.Ticker,
		Currency:  parsed.Currency,
		Price:     price,
		ChangePct: parsed.ChangePct,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// FetchExchangeRate retrieves the rate for a currency pair such as "USDCOP"
// (base currency units per one foreign unit).
func (c *Client) FetchExchangeRate(ctx context.Context, pair, apiKey string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/v1/fx/%s?apikey=%s", c.baseURL, url.PathEscape(pair), url.QueryEscape(apiKey))

	var parsed fxResponse
	if err := c.getJSON(ctx, endpoint, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("fx fetch for %s: %w", pair, err)
	}
	if parsed.Error != nil {
		return decimal.Zero, fmt.Errorf("fx fetch for %s: feed error: %s", pair, *parsed.Error)
	}

	rate, err := decimal.NewFromString(parsed.Rate.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("fx fetch for %s: bad rate %q: %w", pair, parsed.Rate, err)
	}

	return rate, nil
}

// getJSON performs a GET request and decodes the JSON body into out.
// HTTP 5xx responses are retried up to three times with fibonacci backoff;
// 4xx responses fail immediately since retrying cannot help.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("feed returned status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("feed returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}

		d := json.NewDecoder(bytes.NewReader(body))
		d.UseNumber()
		if err := d.Decode(out); err != nil {
			return fmt.Errorf("failed to decode feed response: %w", err)
		}

		return nil
	})
}
