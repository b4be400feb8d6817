package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/config"
	"github.com/nido-app/nido-backend/internal/marketdata"
	"github.com/nido-app/nido-backend/internal/model"
	"github.com/nido-app/nido-backend/internal/repository"
)

// IsRefreshDue reports whether a price refresh is due. The once-per-day
// policy is anchored to a fixed wall-clock cutoff hour, not a rolling 24h
// window: a refresh is due when there has never been one, or when now is past
// the most recent cutoff instant and the last fetch predates that instant.
// A refresh at 07:00 and a check at 23:00 the same day are both "already done
// for today"; a check at one minute past the next day's cutoff is due again.
func IsRefreshDue(lastFetchedAt *time.Time, now time.Time, cutoffHour int) bool {
	if lastFetchedAt == nil {
		return true
	}

	cutoff := time.Date(now.Year(), now.Month(), now.Day(), cutoffHour, 0, 0, 0, now.Location())
	if now.Before(cutoff) {
		cutoff = cutoff.AddDate(0, 0, -1)
	}

	return lastFetchedAt.Before(cutoff)
}

// PricingService owns the quote cache (the only piece of mutable shared
// state in the system) and the time-gated integration with the external
// price feed. The cache is safe to read while a refresh is in flight:
// readers see the pre-refresh cache until the merge completes atomically
// under the write lock, and merging is forward-only in time so a slow
// response can never clobber newer data.
type PricingService struct {
	instrumentRepo *repository.InstrumentRepository
	settingRepo    *repository.SettingRepository
	client         *marketdata.Client
	cfg            config.PricingConfig

	mu            sync.RWMutex
	quotes        map[string]model.PriceQuote
	exchangeRate  decimal.Decimal
	lastFetchedAt *time.Time
}

// NewPricingService creates a PricingService and warms the in-memory cache
// from the persisted envelope, if one exists.
func NewPricingService(
	instrumentRepo *repository.InstrumentRepository,
	settingRepo *repository.SettingRepository,
	client *marketdata.Client,
	cfg config.PricingConfig,
) *PricingService {
	s := &PricingService{
		instrumentRepo: instrumentRepo,
		settingRepo:    settingRepo,
		client:         client,
		cfg:            cfg,
		quotes:         make(map[string]model.PriceQuote),
	}

	if err := s.loadPersistedCache(); err != nil {
		// A corrupt cache is not fatal; the next refresh rebuilds it.
		log.Printf("failed to load quote cache: %v", err)
	}

	return s
}

// Snapshot returns an immutable copy of the current quote cache for the
// valuation engine.
func (s *PricingService) Snapshot() model.PriceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make(map[string]model.PriceQuote, len(s.quotes))
	for id, q := range s.quotes {
		quotes[id] = q
	}

	snapshot := model.PriceSnapshot{
		Quotes:       quotes,
		ExchangeRate: s.exchangeRate,
	}
	if s.lastFetchedAt != nil {
		snapshot.FetchedAt = *s.lastFetchedAt
	}

	return snapshot
}

// LastFetchedAt returns the time of the last successful refresh, or nil.
func (s *PricingService) LastFetchedAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastFetchedAt == nil {
		return nil
	}
	t := *s.lastFetchedAt
	return &t
}

// RefreshIfDue applies the daily gate before refreshing. When the gate says
// the day's refresh already happened, no network fetch is issued and the
// result is marked Skipped.
func (s *PricingService) RefreshIfDue(ctx context.Context, now time.Time) (model.RefreshResult, error) {
	if !IsRefreshDue(s.LastFetchedAt(), now, s.cfg.RefreshCutoffHour) {
		return model.RefreshResult{Configured: true, Skipped: true, Errors: []string{}}, nil
	}
	return s.Refresh(ctx)
}

// Refresh fetches quotes for the whole instrument universe plus the exchange
// rate, then merges the results into the cache.
//
// Per-instrument fetches and the exchange-rate fetch are independent failure
// domains: one bad instrument never blocks the others, and failures are
// collected into Errors alongside whatever succeeded. Instruments whose fetch
// failed keep their last known-good quote, re-tagged as stale-fallback.
// With no API credential configured the refresh is a no-op reporting zero
// errors, so "not configured" stays distinguishable from "failed".
func (s *PricingService) Refresh(ctx context.Context) (model.RefreshResult, error) {
	apiKey, err := s.resolveAPIKey()
	if err != nil {
		return model.RefreshResult{}, err
	}
	if apiKey == "" {
		return model.RefreshResult{Configured: false, Errors: []string{}}, nil
	}

	instruments, err := s.instrumentRepo.GetAll()
	if err != nil {
		return model.RefreshResult{}, err
	}

	fetchedAt := time.Now().UTC()
	pair := s.cfg.ForeignCurrency + s.cfg.BaseCurrency

	var (
		resultMu     sync.Mutex
		fetched      = make(map[string]marketdata.Quote)
		fetchErrors  []string
		exchangeRate decimal.Decimal
		rateFetched  bool
	)

	g, gctx := errgroup.WithContext(ctx)

	for _, instrument := range instruments {
		instrument := instrument
		g.Go(func() error {
			quote, err := s.client.FetchQuote(gctx, instrument.Ticker, apiKey)

			resultMu.Lock()
			defer resultMu.Unlock()
			if err != nil {
				fetchErrors = append(fetchErrors, err.Error())
				return nil
			}
			fetched[instrument.ID] = quote
			return nil
		})
	}

	g.Go(func() error {
		rate, err := s.client.FetchExchangeRate(gctx, pair, apiKey)

		resultMu.Lock()
		defer resultMu.Unlock()
		if err != nil {
			fetchErrors = append(fetchErrors, err.Error())
			return nil
		}
		exchangeRate = rate
		rateFetched = true
		return nil
	})

	// Workers only collect; they never fail the group.
	_ = g.Wait()

	if !rateFetched {
		// Fall back to the cached rate for base-currency conversion.
		s.mu.RLock()
		exchangeRate = s.exchangeRate
		s.mu.RUnlock()
	}

	quotes := make([]model.PriceQuote, 0, len(fetched))
	for instrumentID, raw := range fetched {
		quote, err := s.toBaseCurrencyQuote(instrumentID, raw, exchangeRate)
		if err != nil {
			fetchErrors = append(fetchErrors, err.Error())
			continue
		}
		quotes = append(quotes, quote)
	}
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].InstrumentID < quotes[j].InstrumentID })

	s.merge(quotes, exchangeRate, rateFetched, fetchedAt, instruments)

	if err := s.persistCache(ctx); err != nil {
		fetchErrors = append(fetchErrors, fmt.Sprintf("failed to persist quote cache: %v", err))
	}

	// Successful quotes also refresh the registry's fallback prices.
	for _, quote := range quotes {
		if err := s.instrumentRepo.UpdateReferencePrice(ctx, quote.InstrumentID, quote.PriceInBaseCurrency, quote.FetchedAt); err != nil {
			fetchErrors = append(fetchErrors, fmt.Sprintf("failed to update reference price: %v", err))
		}
	}

	if fetchErrors == nil {
		fetchErrors = []string{}
	}

	return model.RefreshResult{
		Quotes:       quotes,
		ExchangeRate: exchangeRate,
		Errors:       fetchErrors,
		Configured:   true,
	}, nil
}

// SetManualPrice records a hand-entered price for one instrument. The quote
// enters the cache with source "manual" and also updates the registry's
// reference price.
func (s *PricingService) SetManualPrice(ctx context.Context, instrumentID string, price decimal.Decimal) (model.PriceQuote, error) {
	if !price.IsPositive() {
		return model.PriceQuote{}, fmt.Errorf("%w: price must be positive", apperrors.ErrFailedToUpdateReferencePrice)
	}

	instrument, err := s.instrumentRepo.GetByID(instrumentID)
	if err != nil {
		return model.PriceQuote{}, err
	}

	quote := model.PriceQuote{
		InstrumentID:        instrument.ID,
		PriceInBaseCurrency: price,
		FetchedAt:           time.Now().UTC(),
		Source:              model.QuoteSourceManual,
	}

	s.mu.Lock()
	existing, ok := s.quotes[instrumentID]
	if !ok || !quote.FetchedAt.Before(existing.FetchedAt) {
		s.quotes[instrumentID] = quote
	}
	s.mu.Unlock()

	if err := s.persistCache(ctx); err != nil {
		return model.PriceQuote{}, err
	}

	if err := s.instrumentRepo.UpdateReferencePrice(ctx, instrumentID, price, quote.FetchedAt); err != nil {
		return model.PriceQuote{}, err
	}

	return quote, nil
}

// SetAPIKey encrypts and stores the market data credential. Requires the
// fernet secret key to be configured.
func (s *PricingService) SetAPIKey(ctx context.Context, apiKey string) error {
	if s.cfg.SecretKey == "" {
		return fmt.Errorf("%w: PRICE_FEED_SECRET_KEY not configured", apperrors.ErrFailedToStoreAPIKey)
	}

	key, err := fernet.DecodeKey(s.cfg.SecretKey)
	if err != nil {
		return fmt.Errorf("%w: invalid secret key: %v", apperrors.ErrFailedToStoreAPIKey, err)
	}

	token, err := fernet.EncryptAndSign([]byte(apiKey), key)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFailedToStoreAPIKey, err)
	}

	return s.settingRepo.Set(ctx, repository.SettingPriceFeedAPIKey, string(token))
}

// resolveAPIKey returns the credential to use for feed calls: the encrypted
// stored credential when present and decryptable, otherwise the environment
// value. An empty return means "not configured".
func (s *PricingService) resolveAPIKey() (string, error) {
	token, err := s.settingRepo.Get(repository.SettingPriceFeedAPIKey)
	if errors.Is(err, apperrors.ErrSettingNotFound) {
		return s.cfg.APIKey, nil
	}
	if err != nil {
		return "", err
	}

	if s.cfg.SecretKey == "" {
		return s.cfg.APIKey, nil
	}
	key, err := fernet.DecodeKey(s.cfg.SecretKey)
	if err != nil {
		return "", fmt.Errorf("invalid secret key: %w", err)
	}

	decrypted := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{key})
	if decrypted == nil {
		return "", fmt.Errorf("failed to decrypt stored API key")
	}

	return string(decrypted), nil
}

// toBaseCurrencyQuote converts a fetched quote into the cache representation,
// converting foreign-currency prices through the exchange rate.
func (s *PricingService) toBaseCurrencyQuote(instrumentID string, raw marketdata.Quote, exchangeRate decimal.Decimal) (model.PriceQuote, error) {
	quote := model.PriceQuote{
		InstrumentID: instrumentID,
		ChangePct:    raw.ChangePct,
		FetchedAt:    raw.FetchedAt,
		Source:       model.QuoteSourceLive,
	}

	if raw.Currency == s.cfg.BaseCurrency || raw.Currency == "" {
		quote.PriceInBaseCurrency = raw.Price
		return quote, nil
	}

	if !exchangeRate.IsPositive() {
		return model.PriceQuote{}, fmt.Errorf("no exchange rate available to convert %s quote for instrument %s", raw.Currency, instrumentID)
	}

	quote.PriceInForeignCurrency = decimal.NullDecimal{Decimal: raw.Price, Valid: true}
	quote.PriceInBaseCurrency = raw.Price.Mul(exchangeRate)
	return quote, nil
}

// merge folds refresh results into the cache atomically. Only quotes newer
// than the cached entry replace it; a refresh completing after the user
// navigated away must not regress the cache. Instruments in the universe that got no fresh quote keep their last
// known-good entry re-tagged as stale-fallback.
func (s *PricingService) merge(
	quotes []model.PriceQuote,
	exchangeRate decimal.Decimal,
	rateFetched bool,
	fetchedAt time.Time,
	instruments []model.Instrument,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	refreshed := make(map[string]bool, len(quotes))
	for _, quote := range quotes {
		refreshed[quote.InstrumentID] = true
		existing, ok := s.quotes[quote.InstrumentID]
		if ok && quote.FetchedAt.Before(existing.FetchedAt) {
			continue
		}
		s.quotes[quote.InstrumentID] = quote
	}

	for _, instrument := range instruments {
		if refreshed[instrument.ID] {
			continue
		}
		if existing, ok := s.quotes[instrument.ID]; ok && existing.Source == model.QuoteSourceLive {
			existing.Source = model.QuoteSourceStaleFallback
			s.quotes[instrument.ID] = existing
		}
	}

	if rateFetched {
		s.exchangeRate = exchangeRate
	}
	if s.lastFetchedAt == nil || fetchedAt.After(*s.lastFetchedAt) {
		s.lastFetchedAt = &fetchedAt
	}
}

// quoteCacheVersion is the current persisted envelope version. Version 1
// stored quotes as a flat list with a "rate" field; migration to the current
// shape is a pure function of the old payload.
const quoteCacheVersion = 2

type quoteCacheEnvelope struct {
	Version      int                         `json:"version"`
	Quotes       map[string]model.PriceQuote `json:"quotes"`
	ExchangeRate decimal.Decimal             `json:"exchangeRate"`
	FetchedAt    *time.Time                  `json:"fetchedAt,omitempty"`
}

type quoteCacheEnvelopeV1 struct {
	Version   int                `json:"version"`
	Quotes    []model.PriceQuote `json:"quotes"`
	Rate      decimal.Decimal    `json:"rate"`
	FetchedAt *time.Time         `json:"fetchedAt,omitempty"`
}

// migrateQuoteCache upgrades a persisted envelope to the current version.
// Every blob carries an explicit version tag; there is no format sniffing.
func migrateQuoteCache(raw []byte) (quoteCacheEnvelope, error) {
	var versionOnly struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(raw, &versionOnly); err != nil {
		return quoteCacheEnvelope{}, fmt.Errorf("failed to read cache envelope version: %w", err)
	}

	switch versionOnly.Version {
	case quoteCacheVersion:
		var envelope quoteCacheEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return quoteCacheEnvelope{}, fmt.Errorf("failed to decode cache envelope: %w", err)
		}
		return envelope, nil

	case 1:
		var old quoteCacheEnvelopeV1
		if err := json.Unmarshal(raw, &old); err != nil {
			return quoteCacheEnvelope{}, fmt.Errorf("failed to decode v1 cache envelope: %w", err)
		}
		quotes := make(map[string]model.PriceQuote, len(old.Quotes))
		for _, q := range old.Quotes {
			quotes[q.InstrumentID] = q
		}
		return quoteCacheEnvelope{
			Version:      quoteCacheVersion,
			Quotes:       quotes,
			ExchangeRate: old.Rate,
			FetchedAt:    old.FetchedAt,
		}, nil

	default:
		return quoteCacheEnvelope{}, fmt.Errorf("unknown quote cache version %d", versionOnly.Version)
	}
}

func (s *PricingService) loadPersistedCache() error {
	value, err := s.settingRepo.Get(repository.SettingQuoteCache)
	if errors.Is(err, apperrors.ErrSettingNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	envelope, err := migrateQuoteCache([]byte(value))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if envelope.Quotes != nil {
		s.quotes = envelope.Quotes
	}
	s.exchangeRate = envelope.ExchangeRate
	s.lastFetchedAt = envelope.FetchedAt

	return nil
}

func (s *PricingService) persistCache(ctx context.Context) error {
	s.mu.RLock()
	envelope := quoteCacheEnvelope{
		Version:      quoteCacheVersion,
		Quotes:       make(map[string]model.PriceQuote, len(s.quotes)),
		ExchangeRate: s.exchangeRate,
		FetchedAt:    s.lastFetchedAt,
	}
	for id, q := range s.quotes {
		envelope.Quotes[id] = q
	}
	s.mu.RUnlock()

	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode quote cache: %w", err)
	}

	return s.settingRepo.Set(ctx, repository.SettingQuoteCache, string(raw))
}
