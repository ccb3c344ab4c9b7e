// Package ingest consumes the parsed streaming event channel and owns every
// store write for streamed data. The stream client never writes; one engine
// goroutine does, so no write path ever races another.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"covertrack/internal/adapters/clickhouse"
	"covertrack/internal/adapters/massive"
	"covertrack/internal/adapters/stream"
	"covertrack/internal/domain/marketdata"
	"covertrack/pkg/logger"
)

// Engine drains one event channel into the market-data store, journaling
// each event before dispatch. Trigger evaluation piggybacks on the same
// pass so monitoring needs no second consumer.
type Engine struct {
	store   marketdata.Repository
	journal *clickhouse.Journal
	trigger *TriggerBridge
	log     *logger.Logger
}

// NewEngine creates an ingest engine. journal and trigger may be nil.
func NewEngine(store marketdata.Repository, journal *clickhouse.Journal, trigger *TriggerBridge) *Engine {
	return &Engine{
		store:   store,
		journal: journal,
		trigger: trigger,
		log:     logger.Get().With("component", "ingest"),
	}
}

// Run consumes events until the channel closes or the context ends. It is
// the single writer: callers run exactly one Run goroutine per channel.
func (e *Engine) Run(ctx context.Context, events <-chan stream.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				e.log.Info("event channel closed")
				return nil
			}
			e.journalEvent(ctx, ev)
			if err := e.dispatch(ctx, ev); err != nil {
				e.log.Errorf("dispatch %s: %v", ev.Kind(), err)
			}
		}
	}
}

// journalEvent appends the raw event to the ClickHouse journal. Journal
// failures never block ingestion.
func (e *Engine) journalEvent(ctx context.Context, ev stream.Event) {
	if e.journal == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	entry := clickhouse.Entry{
		TS:      time.Now().UTC(),
		Kind:    ev.Kind(),
		Symbol:  eventSymbol(ev),
		Payload: string(payload),
	}
	if err := e.journal.Record(ctx, entry); err != nil {
		e.log.Warnf("journal write failed: %v", err)
	}
}

func eventSymbol(ev stream.Event) string {
	switch v := ev.(type) {
	case stream.AggregateBar:
		return v.Symbol
	case stream.TradeTick:
		return v.Symbol
	case stream.QuoteTick:
		return v.Symbol
	default:
		return ""
	}
}

func (e *Engine) dispatch(ctx context.Context, ev stream.Event) error {
	switch v := ev.(type) {
	case stream.AggregateBar:
		return e.handleAggregate(ctx, v)
	case stream.TradeTick:
		return e.handleTrade(ctx, v)
	case stream.QuoteTick:
		// Quote ticks inform triggers only; quoted chain state stays owned
		// by REST snapshots.
		return nil
	default:
		return nil
	}
}

// handleAggregate routes a minute bar by symbol shape: OCC contract symbols
// update the chain's last slot and the option-bar cache, plain symbols
// update the underlying price cache and minute bars.
func (e *Engine) handleAggregate(ctx context.Context, bar stream.AggregateBar) error {
	if bar.Close == nil || *bar.Close <= 0 {
		return nil
	}
	ts := time.UnixMilli(bar.Start).UTC()

	if occ, ok := massive.ParseOCC(bar.Symbol); ok {
		if err := e.store.UpsertOptionBar(ctx, &marketdata.OptionBar{
			Contract: bar.Symbol,
			Ticker:   occ.Ticker,
			Expiry:   occ.Expiry,
			Strike:   occ.Strike,
			Close:    *bar.Close,
			TS:       ts,
		}); err != nil {
			return err
		}
		return e.store.UpdateChainLast(ctx, occ.Ticker, occ.Expiry, occ.Strike, *bar.Close)
	}

	minute := &marketdata.MinuteBar{
		Ticker: bar.Symbol,
		TS:     ts,
		Close:  *bar.Close,
	}
	if bar.Open != nil {
		minute.Open = *bar.Open
	}
	if bar.High != nil {
		minute.High = *bar.High
	}
	if bar.Low != nil {
		minute.Low = *bar.Low
	}
	if bar.Volume != nil {
		minute.Volume = *bar.Volume
	}
	if err := e.store.UpsertMinuteBar(ctx, minute); err != nil {
		return err
	}

	if err := e.store.SetLastPrice(ctx, &marketdata.CachedPrice{
		Ticker: bar.Symbol,
		Price:  *bar.Close,
		TS:     ts,
		Source: "stream:agg_bar",
	}); err != nil {
		return err
	}

	if e.trigger != nil {
		e.trigger.Observe(bar.Symbol, *bar.Close, ts)
	}
	return nil
}

// handleTrade updates the price cache from a trade print for plain symbols.
// Option trade prints only touch the chain last slot.
func (e *Engine) handleTrade(ctx context.Context, tick stream.TradeTick) error {
	if tick.Price == nil || *tick.Price <= 0 {
		return nil
	}
	ts := time.UnixMilli(tick.Timestamp).UTC()

	if occ, ok := massive.ParseOCC(tick.Symbol); ok {
		return e.store.UpdateChainLast(ctx, occ.Ticker, occ.Expiry, occ.Strike, *tick.Price)
	}

	if err := e.store.SetLastPrice(ctx, &marketdata.CachedPrice{
		Ticker: tick.Symbol,
		Price:  *tick.Price,
		TS:     ts,
		Source: "stream:trade",
	}); err != nil {
		return err
	}

	if e.trigger != nil {
		e.trigger.Observe(tick.Symbol, *tick.Price, ts)
	}
	return nil
}
