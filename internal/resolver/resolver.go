package resolver

import (
	"context"
	"time"

	"covertrack/internal/adapters/config"
	"covertrack/internal/adapters/massive"
	"covertrack/internal/domain/marketdata"
	"covertrack/internal/metrics"
	"covertrack/pkg/logger"
)

// MarketAPI is the REST surface the resolver needs from the data provider.
type MarketAPI interface {
	LastTrade(ctx context.Context, ticker string) (*massive.PriceQuote, error)
	LastNBBO(ctx context.Context, ticker string) (*massive.PriceQuote, error)
	PrevClose(ctx context.Context, ticker string) (*massive.PriceQuote, error)
	ChainSnapshot(ctx context.Context, underlying, expiry string) ([]massive.ChainQuote, error)
	Expirations(ctx context.Context, underlying, fromDate string) ([]string, error)
}

// PriceResult is the outcome of a price resolution. Found=false is a normal
// outcome, not an error: Attempted records every strategy that was tried so
// the miss log can explain the gap.
type PriceResult struct {
	Ticker    string
	Price     float64
	TS        time.Time
	Source    string
	Found     bool
	Attempted []string
}

// ChainResult is the outcome of a chain resolution.
type ChainResult struct {
	Ticker    string
	Expiry    string
	Rows      []marketdata.ChainRow
	Source    string
	Found     bool
	Attempted []string
}

// Resolver walks ordered, named strategies from cheap cache reads down to
// degraded REST fallbacks, stamping every result with the strategy tag that
// produced it.
type Resolver struct {
	cfg   config.ResolverConfig
	api   MarketAPI
	store marketdata.Repository
	log   *logger.Logger
	now   func() time.Time
}

// New creates a resolver over the given provider and cache store.
func New(cfg config.ResolverConfig, api MarketAPI, store marketdata.Repository) *Resolver {
	return &Resolver{
		cfg:   cfg,
		api:   api,
		store: store,
		log:   logger.Get().With("component", "resolver"),
		now:   time.Now,
	}
}

// ResolvePrice resolves the underlying price for one ticker through the
// strategy ladder. Live hits are written back to the cache.
func (r *Resolver) ResolvePrice(ctx context.Context, ticker string) (PriceResult, error) {
	result := PriceResult{Ticker: ticker}

	for _, strat := range r.priceStrategies() {
		result.Attempted = append(result.Attempted, strat.name)

		quote, err := strat.fetch(ctx, ticker)
		if err != nil {
			r.log.Debugf("%s: %s failed: %v", ticker, strat.name, err)
			continue
		}
		if quote == nil {
			continue
		}

		result.Price = quote.Price
		result.TS = quote.TS
		result.Source = strat.name
		result.Found = true
		metrics.ResolverResults.WithLabelValues("price", strat.name).Inc()

		if strat.persist {
			cached := &marketdata.CachedPrice{
				Ticker: ticker,
				Price:  quote.Price,
				TS:     quote.TS,
				Source: strat.name,
			}
			if err := r.store.SetLastPrice(ctx, cached); err != nil {
				r.log.Warnf("%s: cache write failed: %v", ticker, err)
			}
		}
		return result, nil
	}

	metrics.ResolverMisses.WithLabelValues("price").Inc()
	r.log.Infof("%s: price unresolved after %v", ticker, result.Attempted)
	return result, nil
}

// ResolveChain resolves the call chain for one (ticker, expiry) through the
// strategy ladder. Snapshot hits are persisted back to the chain cache.
func (r *Resolver) ResolveChain(ctx context.Context, ticker, expiry string) (ChainResult, error) {
	result := ChainResult{Ticker: ticker, Expiry: expiry}

	for _, strat := range r.chainStrategies() {
		result.Attempted = append(result.Attempted, strat.name)

		rows, err := strat.fetch(ctx, ticker, expiry)
		if err != nil {
			r.log.Debugf("%s %s: %s failed: %v", ticker, expiry, strat.name, err)
			continue
		}
		if len(rows) == 0 {
			continue
		}

		result.Rows = rows
		result.Source = strat.name
		result.Found = true
		metrics.ResolverResults.WithLabelValues("chain", strat.name).Inc()

		if strat.persist {
			if err := r.store.UpsertChainRows(ctx, rows); err != nil {
				r.log.Warnf("%s %s: chain cache write failed: %v", ticker, expiry, err)
			}
		}
		return result, nil
	}

	metrics.ResolverMisses.WithLabelValues("chain").Inc()
	r.log.Infof("%s %s: chain unresolved after %v", ticker, expiry, result.Attempted)
	return result, nil
}

// Expirations proxies reference-data expirations through the provider.
func (r *Resolver) Expirations(ctx context.Context, ticker, fromDate string) ([]string, error) {
	return r.api.Expirations(ctx, ticker, fromDate)
}
