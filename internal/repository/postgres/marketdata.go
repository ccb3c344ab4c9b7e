package postgres

import (
	"context"
	"database/sql"

	"covertrack/internal/domain/marketdata"
	"covertrack/pkg/errors"
)

var _ marketdata.Repository = (*MarketDataRepository)(nil)

// MarketDataRepository persists the price cache, minute bars, the chain
// snapshot cache and per-contract option bars.
type MarketDataRepository struct {
	db DBTX
}

// NewMarketDataRepository creates a market-data repository.
func NewMarketDataRepository(db DBTX) *MarketDataRepository {
	return &MarketDataRepository{db: db}
}

// GetLastPrice returns the cached underlying price, or ErrNotFound.
func (r *MarketDataRepository) GetLastPrice(ctx context.Context, ticker string) (*marketdata.CachedPrice, error) {
	var price marketdata.CachedPrice
	query := `SELECT ticker, price, ts, source FROM market_last WHERE ticker = $1`

	if err := r.db.GetContext(ctx, &price, query, ticker); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Wrapf(errors.ErrNotFound, "last price %s", ticker)
		}
		return nil, errors.Wrapf(err, "get last price %s", ticker)
	}
	return &price, nil
}

// SetLastPrice upserts the cached underlying price.
func (r *MarketDataRepository) SetLastPrice(ctx context.Context, price *marketdata.CachedPrice) error {
	query := `
		INSERT INTO market_last (ticker, price, ts, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker) DO UPDATE SET
			price  = EXCLUDED.price,
			ts     = EXCLUDED.ts,
			source = EXCLUDED.source`

	if _, err := r.db.ExecContext(ctx, query, price.Ticker, price.Price, price.TS, price.Source); err != nil {
		return errors.Wrapf(err, "set last price %s", price.Ticker)
	}
	return nil
}

// UpsertMinuteBar writes one rolling minute aggregate.
func (r *MarketDataRepository) UpsertMinuteBar(ctx context.Context, bar *marketdata.MinuteBar) error {
	query := `
		INSERT INTO price_bars_1m (ticker, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, ts) DO UPDATE SET
			open   = EXCLUDED.open,
			high   = EXCLUDED.high,
			low    = EXCLUDED.low,
			close  = EXCLUDED.close,
			volume = EXCLUDED.volume`

	if _, err := r.db.ExecContext(ctx, query,
		bar.Ticker, bar.TS, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
		return errors.Wrapf(err, "upsert minute bar %s", bar.Ticker)
	}
	return nil
}

// GetChain returns the cached chain for one (ticker, expiry) in strike order.
// An empty slice means no cache, not an error.
func (r *MarketDataRepository) GetChain(ctx context.Context, ticker, expiry string) ([]marketdata.ChainRow, error) {
	var rows []marketdata.ChainRow
	query := `
		SELECT ticker, expiry, strike, contract, bid, ask, mid, last, oi, iv, delta, as_of, source
		FROM option_chain
		WHERE ticker = $1 AND expiry = $2
		ORDER BY strike`

	if err := r.db.SelectContext(ctx, &rows, query, ticker, expiry); err != nil {
		return nil, errors.Wrapf(err, "get chain %s %s", ticker, expiry)
	}
	return rows, nil
}

// UpsertChainRows writes a full snapshot batch, replacing quoted fields per
// strike while keeping rows for strikes absent from this batch.
func (r *MarketDataRepository) UpsertChainRows(ctx context.Context, rows []marketdata.ChainRow) error {
	query := `
		INSERT INTO option_chain (ticker, expiry, strike, contract, bid, ask, mid, last, oi, iv, delta, as_of, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (ticker, expiry, strike) DO UPDATE SET
			contract = EXCLUDED.contract,
			bid      = EXCLUDED.bid,
			ask      = EXCLUDED.ask,
			mid      = EXCLUDED.mid,
			last     = EXCLUDED.last,
			oi       = EXCLUDED.oi,
			iv       = EXCLUDED.iv,
			delta    = EXCLUDED.delta,
			as_of    = EXCLUDED.as_of,
			source   = EXCLUDED.source`

	for i := range rows {
		row := &rows[i]
		if _, err := r.db.ExecContext(ctx, query,
			row.Ticker, row.Expiry, row.Strike, row.Contract,
			row.Bid, row.Ask, row.Mid, row.Last,
			row.OpenInterest, row.IV, row.Delta, row.AsOf, row.Source); err != nil {
			return errors.Wrapf(err, "upsert chain row %s %s %.2f", row.Ticker, row.Expiry, row.Strike)
		}
	}
	return nil
}

// UpdateChainLast writes the streaming last slot for one strike. Quoted
// bid/ask and as_of stay untouched: as_of is the quote snapshot time, and a
// streamed print must not make a stale quoted chain look fresh.
func (r *MarketDataRepository) UpdateChainLast(ctx context.Context, ticker, expiry string, strike, last float64) error {
	query := `
		INSERT INTO option_chain (ticker, expiry, strike, last, as_of, source)
		VALUES ($1, $2, $3, $4, now(), 'stream:option_bar')
		ON CONFLICT (ticker, expiry, strike) DO UPDATE SET
			last = EXCLUDED.last`

	if _, err := r.db.ExecContext(ctx, query, ticker, expiry, strike, last); err != nil {
		return errors.Wrapf(err, "update chain last %s %s %.2f", ticker, expiry, strike)
	}
	return nil
}

// UpsertOptionBar records the latest aggregate close for one contract.
func (r *MarketDataRepository) UpsertOptionBar(ctx context.Context, bar *marketdata.OptionBar) error {
	query := `
		INSERT INTO option_bars (contract, ticker, expiry, strike, close, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (contract) DO UPDATE SET
			close = EXCLUDED.close,
			ts    = EXCLUDED.ts`

	if _, err := r.db.ExecContext(ctx, query,
		bar.Contract, bar.Ticker, bar.Expiry, bar.Strike, bar.Close, bar.TS); err != nil {
		return errors.Wrapf(err, "upsert option bar %s", bar.Contract)
	}
	return nil
}

// LatestOptionBars returns all contract bars for one (ticker, expiry) in
// strike order.
func (r *MarketDataRepository) LatestOptionBars(ctx context.Context, ticker, expiry string) ([]marketdata.OptionBar, error) {
	var bars []marketdata.OptionBar
	query := `
		SELECT contract, ticker, expiry, strike, close, ts
		FROM option_bars
		WHERE ticker = $1 AND expiry = $2
		ORDER BY strike`

	if err := r.db.SelectContext(ctx, &bars, query, ticker, expiry); err != nil {
		return nil, errors.Wrapf(err, "latest option bars %s %s", ticker, expiry)
	}
	return bars, nil
}
