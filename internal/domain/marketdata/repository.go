package marketdata

import "context"

// Repository defines market-data cache access. All writes are
// last-writer-wins upserts on natural keys so the streaming consumer and the
// resolver interleave safely.
type Repository interface {
	GetLastPrice(ctx context.Context, ticker string) (*CachedPrice, error)
	SetLastPrice(ctx context.Context, price *CachedPrice) error

	UpsertMinuteBar(ctx context.Context, bar *MinuteBar) error

	GetChain(ctx context.Context, ticker, expiry string) ([]ChainRow, error)
	UpsertChainRows(ctx context.Context, rows []ChainRow) error

	// UpdateChainLast writes the streaming "last" slot for one contract
	// without touching quoted bid/ask.
	UpdateChainLast(ctx context.Context, ticker, expiry string, strike, last float64) error

	UpsertOptionBar(ctx context.Context, bar *OptionBar) error
	LatestOptionBars(ctx context.Context, ticker, expiry string) ([]OptionBar, error)
}
