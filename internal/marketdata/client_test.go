package marketdata_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nido-app/nido-backend/internal/marketdata"
	"github.com/nido-app/nido-backend/internal/testutil"
)

// TestClient_FetchQuote tests the feed client against a mock server.
//
// WHY: The client is the boundary to an external service; it must decode
// prices into exact decimals (no float round trip) and turn in-band feed
// errors into Go errors instead of zero-priced quotes.
func TestClient_FetchQuote(t *testing.T) {
	t.Run("decodes a quote with exact decimals", func(t *testing.T) {
		feed := testutil.NewMockFeed(t)
		feed.SetQuote("ICOLCAP", testutil.MockQuote{Currency: "COP", Price: "13999.99", ChangePct: -0.42})
		client := marketdata.NewClient(feed.URL())

		quote, err := client.FetchQuote(context.Background(), "ICOLCAP", "key")
		if err != nil {
			t.Fatalf("FetchQuote() returned unexpected error: %v", err)
		}

		if !quote.Price.Equal(decimal.RequireFromString("13999.99")) {
			t.Errorf("Expected exact price 13999.99, got %s", quote.Price)
		}
		if quote.Currency != "COP" {
			t.Errorf("Expected currency COP, got %q", quote.Currency)
		}
		if quote.ChangePct != -0.42 {
			t.Errorf("Expected change -0.42, got %f", quote.ChangePct)
		}
	})

	t.Run("surfaces in-band feed errors", func(t *testing.T) {
		feed := testutil.NewMockFeed(t)
		client := marketdata.NewClient(feed.URL())

		// Unknown ticker: HTTP 200 with an error field in the body.
		if _, err := client.FetchQuote(context.Background(), "NOPE", "key"); err == nil {
			t.Fatal("Expected error for unknown ticker")
		}
	})

	t.Run("retries transient server errors", func(t *testing.T) {
		feed := testutil.NewMockFeed(t)
		feed.FailTicker("ICOLCAP")
		client := marketdata.NewClient(feed.URL())

		if _, err := client.FetchQuote(context.Background(), "ICOLCAP", "key"); err == nil {
			t.Fatal("Expected error after exhausted retries")
		}
		// Initial attempt plus three retries.
		if hits := feed.Hits("ICOLCAP"); hits != 4 {
			t.Errorf("Expected 4 attempts against a failing ticker, got %d", hits)
		}
	})
}

// TestClient_FetchExchangeRate tests currency pair lookups.
func TestClient_FetchExchangeRate(t *testing.T) {
	t.Run("decodes the pair rate", func(t *testing.T) {
		feed := testutil.NewMockFeed(t)
		feed.SetRate("USDCOP", "4123.4567")
		client := marketdata.NewClient(feed.URL())

		rate, err := client.FetchExchangeRate(context.Background(), "USDCOP", "key")
		if err != nil {
			t.Fatalf("FetchExchangeRate() returned unexpected error: %v", err)
		}
		if !rate.Equal(decimal.RequireFromString("4123.4567")) {
			t.Errorf("Expected exact rate 4123.4567, got %s", rate)
		}
	})

	t.Run("surfaces unknown pairs", func(t *testing.T) {
		feed := testutil.NewMockFeed(t)
		client := marketdata.NewClient(feed.URL())

		if _, err := client.FetchExchangeRate(context.Background(), "EURCOP", "key"); err == nil {
			t.Fatal("Expected error for unknown pair")
		}
	})
}
