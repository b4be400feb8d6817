package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockQuote configures one ticker's response on the mock feed.
type MockQuote struct {
	Currency  string
	Price     string
	ChangePct float64
}

// MockFeed is an httptest-backed stand-in for the market data feed. It serves
// the same /v1/quote/{ticker} and /v1/fx/{pair} endpoints as the real feed
// and counts hits per endpoint, so tests can assert that the daily refresh
// gate actually suppressed network calls.
//
// Example usage:
//
//	feed := testutil.NewMockFeed(t)
//	feed.SetQuote("ICOLCAP", testutil.MockQuote{Currency: "COP", Price: "14000"})
//	feed.SetRate("USDCOP", "4000")
//	client := marketdata.NewClient(feed.URL())
type MockFeed struct {
	server *httptest.Server

	mu       sync.Mutex
	quotes   map[string]MockQuote
	rates    map[string]string
	failures map[string]bool
	hits     map[string]int
}

// NewMockFeed starts a mock feed server, shut down on test cleanup.
func NewMockFeed(t *testing.T) *MockFeed {
	t.Helper()

	f := &MockFeed{
		quotes:   make(map[string]MockQuote),
		rates:    make(map[string]string),
		failures: make(map[string]bool),
		hits:     make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)

	return f
}

// URL returns the mock feed's base URL.
func (f *MockFeed) URL() string {
	return f.server.URL
}

// SetQuote configures the response for one ticker.
func (f *MockFeed) SetQuote(ticker string, quote MockQuote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[ticker] = quote
}

// SetRate configures the response for one currency pair.
func (f *MockFeed) SetRate(pair, rate string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates[pair] = rate
}

// FailTicker makes the given ticker or pair return HTTP 500.
func (f *MockFeed) FailTicker(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = true
}

// Hits returns how many requests the given ticker or pair has received.
func (f *MockFeed) Hits(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

// TotalHits returns the total request count across all endpoints.
func (f *MockFeed) TotalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.hits {
		total += n
	}
	return total
}

func (f *MockFeed) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "v1" {
		http.NotFound(w, r)
		return
	}
	kind, key := parts[1], parts[2]

	f.mu.Lock()
	f.hits[key]++
	failed := f.failures[key]
	quote, hasQuote := f.quotes[key]
	rate, hasRate := f.rates[key]
	f.mu.Unlock()

	if failed {
		http.Error(w, "feed unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	switch kind {
	case "quote":
		if !hasQuote {
			errMsg := fmt.Sprintf("unknown ticker %s", key)
			json.NewEncoder(w).Encode(map[string]any{"ticker": key, "error": errMsg}) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"ticker":    key,
			"currency":  quote.Currency,
			"price":     json.RawMessage(quote.Price),
			"changePct": quote.ChangePct,
		})

	case "fx":
		if !hasRate {
			errMsg := fmt.Sprintf("unknown pair %s", key)
			json.NewEncoder(w).Encode(map[string]any{"pair": key, "error": errMsg}) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"pair": key,
			"rate": json.RawMessage(rate),
		})

	default:
		http.NotFound(w, r)
	}
}
