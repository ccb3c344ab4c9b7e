package resolver

import (
	"context"
	"time"

	"covertrack/internal/adapters/massive"
	"covertrack/internal/domain/marketdata"
	"covertrack/pkg/errors"
)

// Strategy source tags. These end up in persisted rows, the miss log and
// metrics labels, so they stay stable once shipped.
const (
	SourceCachePrice    = "cache:market_last"
	SourceRESTLastTrade = "massive_rest:last_trade"
	SourceRESTNBBO      = "massive_rest:nbbo"
	SourceRESTPrevAgg   = "massive_rest:prev_agg"

	SourceCacheChain    = "cache:option_chain"
	SourceRESTSnapshot  = "massive_rest:chain_snapshot"
	SourceBarsBootstrap = "bars:chain_bootstrap"
)

type priceStrategy struct {
	name    string
	persist bool
	fetch   func(ctx context.Context, ticker string) (*massive.PriceQuote, error)
}

type chainStrategy struct {
	name    string
	persist bool
	fetch   func(ctx context.Context, ticker, expiry string) ([]marketdata.ChainRow, error)
}

func (r *Resolver) priceStrategies() []priceStrategy {
	return []priceStrategy{
		{name: SourceCachePrice, fetch: r.cachedPrice},
		{name: SourceRESTLastTrade, persist: true, fetch: r.api.LastTrade},
		{name: SourceRESTNBBO, persist: true, fetch: r.api.LastNBBO},
		{name: SourceRESTPrevAgg, persist: true, fetch: r.api.PrevClose},
	}
}

func (r *Resolver) chainStrategies() []chainStrategy {
	strategies := []chainStrategy{
		{name: SourceCacheChain, fetch: r.cachedChain},
		{name: SourceRESTSnapshot, persist: true, fetch: r.snapshotChain},
	}
	if !r.cfg.StrictQuotes {
		strategies = append(strategies, chainStrategy{name: SourceBarsBootstrap, fetch: r.bootstrapChain})
	}
	return strategies
}

// cachedPrice serves the stored price while it is inside the freshness
// window. A cached row older than PriceMaxAge is ignored, not deleted.
func (r *Resolver) cachedPrice(ctx context.Context, ticker string) (*massive.PriceQuote, error) {
	cached, err := r.store.GetLastPrice(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if r.now().Sub(cached.TS) > r.cfg.PriceMaxAge {
		return nil, errors.Wrapf(errors.ErrDataMissing, "cached price %s stale", ticker)
	}
	return &massive.PriceQuote{Price: cached.Price, TS: cached.TS}, nil
}

// cachedChain serves the stored snapshot while its newest quoted row is
// inside the freshness window. Only rows carrying both bid and ask count
// toward freshness: stream-created rows hold a last print, not a quote.
func (r *Resolver) cachedChain(ctx context.Context, ticker, expiry string) ([]marketdata.ChainRow, error) {
	rows, err := r.store.GetChain(ctx, ticker, expiry)
	if err != nil {
		return nil, err
	}

	var newest time.Time
	for _, row := range rows {
		if row.Bid == nil || row.Ask == nil {
			continue
		}
		if row.AsOf.After(newest) {
			newest = row.AsOf
		}
	}
	if newest.IsZero() {
		return nil, nil
	}
	if r.now().Sub(newest) > r.cfg.ChainMaxAge {
		return nil, errors.Wrapf(errors.ErrDataMissing, "cached chain %s %s stale", ticker, expiry)
	}
	return rows, nil
}

// snapshotChain pulls a live snapshot and converts it to chain rows.
func (r *Resolver) snapshotChain(ctx context.Context, ticker, expiry string) ([]marketdata.ChainRow, error) {
	quotes, err := r.api.ChainSnapshot(ctx, ticker, expiry)
	if err != nil {
		return nil, err
	}

	now := r.now()
	rows := make([]marketdata.ChainRow, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, marketdata.ChainRow{
			Ticker:       ticker,
			Expiry:       expiry,
			Strike:       q.Strike,
			Contract:     q.Contract,
			Bid:          q.Bid,
			Ask:          q.Ask,
			Mid:          q.Mid,
			Last:         q.Last,
			OpenInterest: q.OpenInterest,
			IV:           q.IV,
			Delta:        q.Delta,
			AsOf:         now,
			Source:       SourceRESTSnapshot,
		})
	}
	return rows, nil
}

// bootstrapChain reconstructs a degraded chain from streamed option bars: no
// bid/ask, mid estimated from the bar close. Disabled under StrictQuotes.
func (r *Resolver) bootstrapChain(ctx context.Context, ticker, expiry string) ([]marketdata.ChainRow, error) {
	bars, err := r.store.LatestOptionBars(ctx, ticker, expiry)
	if err != nil {
		return nil, err
	}

	rows := make([]marketdata.ChainRow, 0, len(bars))
	for _, bar := range bars {
		if bar.Close <= 0 {
			continue
		}
		px := bar.Close
		rows = append(rows, marketdata.ChainRow{
			Ticker:   ticker,
			Expiry:   expiry,
			Strike:   bar.Strike,
			Contract: bar.Contract,
			Mid:      &px,
			Last:     &px,
			AsOf:     bar.TS,
			Source:   SourceBarsBootstrap,
		})
	}
	return rows, nil
}
