package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covertrack/internal/adapters/stream"
	"covertrack/internal/testsupport"
)

func ptr(v float64) *float64 { return &v }

func TestAggregateRoutesStockBar(t *testing.T) {
	store := testsupport.NewMemMarketData()
	engine := NewEngine(store, nil, nil)

	bar := stream.AggregateBar{
		Symbol: "SPY",
		Open:   ptr(644.0), High: ptr(645.5), Low: ptr(643.8), Close: ptr(645.1),
		Volume: ptr(120000),
		Start:  1735000000000,
	}
	require.NoError(t, engine.handleAggregate(context.Background(), bar))

	price, err := store.GetLastPrice(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, 645.1, price.Price)
	assert.Equal(t, "stream:agg_bar", price.Source)
	assert.Len(t, store.Bars, 1)
	assert.Empty(t, store.OptionBars)
}

func TestAggregateRoutesOptionBar(t *testing.T) {
	store := testsupport.NewMemMarketData()
	engine := NewEngine(store, nil, nil)

	bar := stream.AggregateBar{
		Symbol: "SPY251219C00650000",
		Close:  ptr(2.35),
		Start:  1735000000000,
	}
	require.NoError(t, engine.handleAggregate(context.Background(), bar))

	// Option bars never touch the underlying price cache.
	_, err := store.GetLastPrice(context.Background(), "SPY")
	assert.Error(t, err)

	bars, err := store.LatestOptionBars(context.Background(), "SPY", "2025-12-19")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 650.0, bars[0].Strike)
	assert.Equal(t, 2.35, bars[0].Close)

	chain, err := store.GetChain(context.Background(), "SPY", "2025-12-19")
	require.NoError(t, err)
	require.Len(t, chain, 1)
	require.NotNil(t, chain[0].Last)
	assert.Equal(t, 2.35, *chain[0].Last)
	assert.Nil(t, chain[0].Bid)
}

func TestTradeUpdatesPriceCache(t *testing.T) {
	store := testsupport.NewMemMarketData()
	engine := NewEngine(store, nil, nil)

	tick := stream.TradeTick{Symbol: "AAPL", Price: ptr(232.41), Timestamp: 1735000000123}
	require.NoError(t, engine.handleTrade(context.Background(), tick))

	price, err := store.GetLastPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 232.41, price.Price)
	assert.Equal(t, "stream:trade", price.Source)
}

func TestRunDrainsUntilChannelCloses(t *testing.T) {
	store := testsupport.NewMemMarketData()
	engine := NewEngine(store, nil, nil)

	events := make(chan stream.Event, 4)
	events <- stream.AggregateBar{Symbol: "SPY", Close: ptr(645.1), Start: 1735000000000}
	events <- stream.TradeTick{Symbol: "AAPL", Price: ptr(232.41), Timestamp: 1735000000123}
	events <- stream.StatusEvent{Status: stream.StatusAuthSuccess}
	close(events)

	require.NoError(t, engine.Run(context.Background(), events))

	_, err := store.GetLastPrice(context.Background(), "SPY")
	assert.NoError(t, err)
	_, err = store.GetLastPrice(context.Background(), "AAPL")
	assert.NoError(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	engine := NewEngine(testsupport.NewMemMarketData(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan stream.Event)

	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx, events) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}
