package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/shopspring/decimal"

	"github.com/nido-app/nido-backend/internal/model"
	"github.com/nido-app/nido-backend/internal/repository"
	"github.com/nido-app/nido-backend/internal/service"
	"github.com/nido-app/nido-backend/internal/testutil"
)

// TestIsRefreshDue tests the wall-clock cutoff gate.
//
// WHY: The once-per-day policy is anchored to a cutoff hour, not a rolling
// 24h window. The distinction matters at the edges: a refresh at 07:00
// must block another at 23:00 the same day, but one at 05:59 must not block
// 06:01, since those straddle the cutoff and belong to different days.
func TestIsRefreshDue(t *testing.T) {
	const cutoffHour = 6
	at := func(day, hour, minute int) time.Time {
		return time.Date(2024, 3, day, hour, minute, 0, 0, time.UTC)
	}

	t.Run("due when never fetched", func(t *testing.T) {
		if !service.IsRefreshDue(nil, at(10, 12, 0), cutoffHour) {
			t.Error("Expected refresh due with no prior fetch")
		}
	})

	t.Run("not due twice on the same day", func(t *testing.T) {
		last := at(10, 7, 0)
		if service.IsRefreshDue(&last, at(10, 23, 0), cutoffHour) {
			t.Error("Expected refresh suppressed after same-day fetch")
		}
	})

	t.Run("due again after the next cutoff", func(t *testing.T) {
		last := at(10, 7, 0)
		if !service.IsRefreshDue(&last, at(11, 6, 1), cutoffHour) {
			t.Error("Expected refresh due past the next day's cutoff")
		}
	})

	t.Run("pre-cutoff fetch does not cover post-cutoff check", func(t *testing.T) {
		last := at(10, 5, 59)
		if !service.IsRefreshDue(&last, at(10, 6, 1), cutoffHour) {
			t.Error("Expected refresh due when the cutoff passed between fetch and check")
		}
	})

	t.Run("early-morning check uses yesterday's cutoff", func(t *testing.T) {
		last := at(10, 22, 0)
		if service.IsRefreshDue(&last, at(11, 5, 0), cutoffHour) {
			t.Error("Expected refresh suppressed before today's cutoff after yesterday-evening fetch")
		}
	})
}

// TestPricingService_Refresh tests the refresh fan-out against a mock feed.
//
// WHY: A refresh mixes several failure domains: per-instrument fetches, the
// exchange rate, persistence. One bad instrument must not block the others,
// foreign prices must convert into the base currency, and an unconfigured
// feed must be a silent no-op rather than an error storm.
func TestPricingService_Refresh(t *testing.T) {
	setupFeed := func(t *testing.T) *testutil.MockFeed {
		t.Helper()
		feed := testutil.NewMockFeed(t)
		feed.SetQuote("ICOLCAP", testutil.MockQuote{Currency: "COP", Price: "14000", ChangePct: 1.2})
		feed.SetQuote("HCOLSEL", testutil.MockQuote{Currency: "COP", Price: "9900"})
		feed.SetQuote("CSPX", testutil.MockQuote{Currency: "USD", Price: "480"})
		feed.SetRate("USDCOP", "4000")
		return feed
	}

	t.Run("fetches all instruments and converts foreign prices", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		feed := setupFeed(t)
		svc := testutil.NewTestPricingService(t, db, feed.URL())

		result, err := svc.Refresh(context.Background())
		if err != nil {
			t.Fatalf("Refresh() returned unexpected error: %v", err)
		}

		if !result.Configured {
			t.Fatal("Expected refresh to be configured")
		}
		if len(result.Errors) != 0 {
			t.Fatalf("Expected no errors, got %v", result.Errors)
		}
		if len(result.Quotes) != 3 {
			t.Fatalf("Expected 3 quotes, got %d", len(result.Quotes))
		}
		if !result.ExchangeRate.Equal(decimal.NewFromInt(4000)) {
			t.Errorf("Expected exchange rate 4000, got %s", result.ExchangeRate)
		}

		snapshot := svc.Snapshot()
		icolcap, ok := snapshot.QuoteFor(testutil.InstrumentICOLCAP)
		if !ok {
			t.Fatal("Expected ICOLCAP quote in cache")
		}
		if !icolcap.PriceInBaseCurrency.Equal(decimal.NewFromInt(14000)) {
			t.Errorf("Expected ICOLCAP at 14000 COP, got %s", icolcap.PriceInBaseCurrency)
		}
		if icolcap.Source != model.QuoteSourceLive {
			t.Errorf("Expected live source, got %q", icolcap.Source)
		}

		cspx, ok := snapshot.QuoteFor(testutil.InstrumentCSPX)
		if !ok {
			t.Fatal("Expected CSPX quote in cache")
		}
		// 480 USD * 4000 COP/USD.
		if !cspx.PriceInBaseCurrency.Equal(decimal.NewFromInt(1920000)) {
			t.Errorf("Expected CSPX at 1920000 COP, got %s", cspx.PriceInBaseCurrency)
		}
		if !cspx.PriceInForeignCurrency.Valid || !cspx.PriceInForeignCurrency.Decimal.Equal(decimal.NewFromInt(480)) {
			t.Errorf("Expected CSPX foreign price 480, got %v", cspx.PriceInForeignCurrency)
		}
	})

	t.Run("refresh also advances instrument reference prices", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		feed := setupFeed(t)
		svc := testutil.NewTestPricingService(t, db, feed.URL())

		if _, err := svc.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() returned unexpected error: %v", err)
		}

		instrument, err := repository.NewInstrumentRepository(db).GetByID(testutil.InstrumentICOLCAP)
		if err != nil {
			t.Fatalf("GetByID() returned unexpected error: %v", err)
		}
		if !instrument.ReferencePrice.Equal(decimal.NewFromInt(14000)) {
			t.Errorf("Expected reference price advanced to 14000, got %s", instrument.ReferencePrice)
		}
	})

	t.Run("one failing instrument does not block the rest", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		feed := setupFeed(t)
		svc := testutil.NewTestPricingService(t, db, feed.URL())

		// First pass succeeds so ICOLCAP has a known-good quote, then the
		// ticker starts failing.
		if _, err := svc.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() returned unexpected error: %v", err)
		}
		feed.FailTicker("ICOLCAP")

		result, err := svc.Refresh(context.Background())
		if err != nil {
			t.Fatalf("Refresh() returned unexpected error: %v", err)
		}

		if len(result.Errors) == 0 {
			t.Fatal("Expected collected errors for the failing ticker")
		}
		if len(result.Quotes) != 2 {
			t.Fatalf("Expected 2 surviving quotes, got %d", len(result.Quotes))
		}

		// The stale quote survives, re-tagged so consumers can tell.
		snapshot := svc.Snapshot()
		icolcap, ok := snapshot.QuoteFor(testutil.InstrumentICOLCAP)
		if !ok {
			t.Fatal("Expected stale ICOLCAP quote to survive")
		}
		if icolcap.Source != model.QuoteSourceStaleFallback {
			t.Errorf("Expected stale-fallback source, got %q", icolcap.Source)
		}
		if !icolcap.PriceInBaseCurrency.Equal(decimal.NewFromInt(14000)) {
			t.Errorf("Expected last known-good price 14000, got %s", icolcap.PriceInBaseCurrency)
		}
	})

	t.Run("unconfigured feed is a no-op with zero errors", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		feed := setupFeed(t)
		cfg := testutil.TestPricingConfig(feed.URL())
		cfg.APIKey = ""
		svc := testutil.NewTestPricingServiceWithConfig(t, db, cfg)

		result, err := svc.Refresh(context.Background())
		if err != nil {
			t.Fatalf("Refresh() returned unexpected error: %v", err)
		}

		if result.Configured {
			t.Error("Expected configured=false without a credential")
		}
		if len(result.Errors) != 0 {
			t.Errorf("Expected zero errors for unconfigured no-op, got %v", result.Errors)
		}
		if feed.TotalHits() != 0 {
			t.Errorf("Expected no network calls, feed saw %d", feed.TotalHits())
		}
	})

	t.Run("cache survives a restart", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		feed := setupFeed(t)
		svc := testutil.NewTestPricingService(t, db, feed.URL())

		if _, err := svc.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() returned unexpected error: %v", err)
		}

		// A fresh service instance on the same database warms from the
		// persisted envelope.
		restarted := testutil.NewTestPricingService(t, db, feed.URL())
		snapshot := restarted.Snapshot()

		if len(snapshot.Quotes) != 3 {
			t.Fatalf("Expected 3 quotes after restart, got %d", len(snapshot.Quotes))
		}
		if !snapshot.ExchangeRate.Equal(decimal.NewFromInt(4000)) {
			t.Errorf("Expected exchange rate 4000 after restart, got %s", snapshot.ExchangeRate)
		}
		if restarted.LastFetchedAt() == nil {
			t.Error("Expected last fetch time restored after restart")
		}
	})
}

// TestPricingService_RefreshIfDue tests gate-then-refresh behavior end to end.
//
// WHY: Calling the refresh twice in one day must hit the network exactly
// once; the second call reports skipped without touching the feed. This is
// the system's protection against burning a rate-limited feed allowance.
func TestPricingService_RefreshIfDue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	feed := testutil.NewMockFeed(t)
	feed.SetQuote("ICOLCAP", testutil.MockQuote{Currency: "COP", Price: "14000"})
	feed.SetQuote("HCOLSEL", testutil.MockQuote{Currency: "COP", Price: "9900"})
	feed.SetQuote("CSPX", testutil.MockQuote{Currency: "USD", Price: "480"})
	feed.SetRate("USDCOP", "4000")
	svc := testutil.NewTestPricingService(t, db, feed.URL())

	first, err := svc.RefreshIfDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("RefreshIfDue() returned unexpected error: %v", err)
	}
	if first.Skipped {
		t.Fatal("Expected first refresh to run")
	}

	hitsAfterFirst := feed.TotalHits()
	if hitsAfterFirst == 0 {
		t.Fatal("Expected first refresh to hit the feed")
	}

	second, err := svc.RefreshIfDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("RefreshIfDue() returned unexpected error: %v", err)
	}
	if !second.Skipped {
		t.Fatal("Expected second same-day refresh to be skipped")
	}
	if feed.TotalHits() != hitsAfterFirst {
		t.Errorf("Expected no additional feed hits, got %d extra", feed.TotalHits()-hitsAfterFirst)
	}
}

// TestPricingService_SetManualPrice tests hand-entered price overrides.
//
// WHY: Between feed refreshes, a manual price is the only way to correct a
// wrong valuation. It must land in the quote cache as source "manual" and
// become the instrument's fallback reference price.
func TestPricingService_SetManualPrice(t *testing.T) {
	t.Run("manual price enters cache and registry", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		feed := testutil.NewMockFeed(t)
		svc := testutil.NewTestPricingService(t, db, feed.URL())

		quote, err := svc.SetManualPrice(context.Background(), testutil.InstrumentICOLCAP, decimal.NewFromInt(13000))
		if err != nil {
			t.Fatalf("SetManualPrice() returned unexpected error: %v", err)
		}
		if quote.Source != model.QuoteSourceManual {
			t.Errorf("Expected manual source, got %q", quote.Source)
		}

		cached, ok := svc.Snapshot().QuoteFor(testutil.InstrumentICOLCAP)
		if !ok || !cached.PriceInBaseCurrency.Equal(decimal.NewFromInt(13000)) {
			t.Errorf("Expected cached manual price 13000, got %v", cached.PriceInBaseCurrency)
		}

		instrument, err := repository.NewInstrumentRepository(db).GetByID(testutil.InstrumentICOLCAP)
		if err != nil {
			t.Fatalf("GetByID() returned unexpected error: %v", err)
		}
		if !instrument.ReferencePrice.Equal(decimal.NewFromInt(13000)) {
			t.Errorf("Expected reference price 13000, got %s", instrument.ReferencePrice)
		}
	})

	t.Run("rejects non-positive prices", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		feed := testutil.NewMockFeed(t)
		svc := testutil.NewTestPricingService(t, db, feed.URL())

		if _, err := svc.SetManualPrice(context.Background(), testutil.InstrumentICOLCAP, decimal.Zero); err == nil {
			t.Fatal("Expected error for zero price")
		}
	})

	t.Run("rejects unknown instruments", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		feed := testutil.NewMockFeed(t)
		svc := testutil.NewTestPricingService(t, db, feed.URL())

		if _, err := svc.SetManualPrice(context.Background(), testutil.MakeID(), decimal.NewFromInt(100)); err == nil {
			t.Fatal("Expected error for unknown instrument")
		}
	})
}

// TestPricingService_APIKey tests encrypted credential storage.
//
// WHY: The feed credential is the one secret the system holds. It must never
// reach the database in plaintext, and a stored credential must round-trip
// through encryption into actual feed calls.
func TestPricingService_APIKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	feed := testutil.NewMockFeed(t)
	feed.SetQuote("ICOLCAP", testutil.MockQuote{Currency: "COP", Price: "14000"})
	feed.SetQuote("HCOLSEL", testutil.MockQuote{Currency: "COP", Price: "9900"})
	feed.SetQuote("CSPX", testutil.MockQuote{Currency: "USD", Price: "480"})
	feed.SetRate("USDCOP", "4000")

	var key fernet.Key
	if err := key.Generate(); err != nil {
		t.Fatalf("Failed to generate fernet key: %v", err)
	}

	cfg := testutil.TestPricingConfig(feed.URL())
	cfg.APIKey = ""
	cfg.SecretKey = key.Encode()
	svc := testutil.NewTestPricingServiceWithConfig(t, db, cfg)

	const secret = "super-secret-feed-key"
	if err := svc.SetAPIKey(context.Background(), secret); err != nil {
		t.Fatalf("SetAPIKey() returned unexpected error: %v", err)
	}

	// The stored setting is a fernet token, not the plaintext credential.
	stored, err := repository.NewSettingRepository(db).Get(repository.SettingPriceFeedAPIKey)
	if err != nil {
		t.Fatalf("Get() returned unexpected error: %v", err)
	}
	if strings.Contains(stored, secret) {
		t.Error("Stored credential must not contain the plaintext key")
	}

	// The stored credential makes an otherwise-unconfigured service work.
	result, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() returned unexpected error: %v", err)
	}
	if !result.Configured {
		t.Error("Expected refresh configured via stored credential")
	}
	if len(result.Quotes) != 3 {
		t.Errorf("Expected 3 quotes, got %d", len(result.Quotes))
	}
}
