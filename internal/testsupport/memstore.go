// Package testsupport holds in-memory repository fakes shared by package
// tests. They honor the same contracts as the Postgres implementations,
// including ErrNotFound on empty lookups.
package testsupport

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"covertrack/internal/domain/audit"
	"covertrack/internal/domain/marketdata"
	"covertrack/internal/domain/pick"
	"covertrack/internal/domain/promotion"
	"covertrack/internal/domain/scores"
	"covertrack/internal/domain/universe"
	"covertrack/pkg/errors"
)

// MemMarketData is an in-memory marketdata.Repository.
type MemMarketData struct {
	mu         sync.Mutex
	Prices     map[string]marketdata.CachedPrice
	Bars       map[string]marketdata.MinuteBar // keyed ticker|ts
	Chains     map[string][]marketdata.ChainRow
	OptionBars map[string]marketdata.OptionBar
}

var _ marketdata.Repository = (*MemMarketData)(nil)

func NewMemMarketData() *MemMarketData {
	return &MemMarketData{
		Prices:     make(map[string]marketdata.CachedPrice),
		Bars:       make(map[string]marketdata.MinuteBar),
		Chains:     make(map[string][]marketdata.ChainRow),
		OptionBars: make(map[string]marketdata.OptionBar),
	}
}

func chainKey(ticker, expiry string) string { return ticker + "|" + expiry }

func (m *MemMarketData) GetLastPrice(_ context.Context, ticker string) (*marketdata.CachedPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Prices[ticker]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "last price %s", ticker)
	}
	return &p, nil
}

func (m *MemMarketData) SetLastPrice(_ context.Context, price *marketdata.CachedPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prices[price.Ticker] = *price
	return nil
}

func (m *MemMarketData) UpsertMinuteBar(_ context.Context, bar *marketdata.MinuteBar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bars[bar.Ticker+"|"+bar.TS.UTC().Format(time.RFC3339)] = *bar
	return nil
}

func (m *MemMarketData) GetChain(_ context.Context, ticker, expiry string) ([]marketdata.ChainRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := append([]marketdata.ChainRow(nil), m.Chains[chainKey(ticker, expiry)]...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Strike < rows[j].Strike })
	return rows, nil
}

func (m *MemMarketData) UpsertChainRows(_ context.Context, rows []marketdata.ChainRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		key := chainKey(row.Ticker, row.Expiry)
		replaced := false
		for i := range m.Chains[key] {
			if m.Chains[key][i].Strike == row.Strike {
				m.Chains[key][i] = row
				replaced = true
				break
			}
		}
		if !replaced {
			m.Chains[key] = append(m.Chains[key], row)
		}
	}
	return nil
}

func (m *MemMarketData) UpdateChainLast(_ context.Context, ticker, expiry string, strike, last float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := chainKey(ticker, expiry)
	for i := range m.Chains[key] {
		if m.Chains[key][i].Strike == strike {
			l := last
			m.Chains[key][i].Last = &l
			return nil
		}
	}
	l := last
	m.Chains[key] = append(m.Chains[key], marketdata.ChainRow{
		Ticker: ticker, Expiry: expiry, Strike: strike,
		Last: &l, AsOf: time.Now(), Source: "stream:option_bar",
	})
	return nil
}

func (m *MemMarketData) UpsertOptionBar(_ context.Context, bar *marketdata.OptionBar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OptionBars[bar.Contract] = *bar
	return nil
}

func (m *MemMarketData) LatestOptionBars(_ context.Context, ticker, expiry string) ([]marketdata.OptionBar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bars []marketdata.OptionBar
	for _, bar := range m.OptionBars {
		if bar.Ticker == ticker && bar.Expiry == expiry {
			bars = append(bars, bar)
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Strike < bars[j].Strike })
	return bars, nil
}

// MemScores is an in-memory scores.Repository.
type MemScores struct {
	mu   sync.Mutex
	Rows map[string]scores.Row
}

var _ scores.Repository = (*MemScores)(nil)

func NewMemScores() *MemScores {
	return &MemScores{Rows: make(map[string]scores.Row)}
}

// Put stores the latest row for one ticker.
func (m *MemScores) Put(row scores.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rows[row.Ticker] = row
}

func (m *MemScores) Latest(_ context.Context, ticker string) (*scores.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.Rows[ticker]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "scores %s", ticker)
	}
	return &row, nil
}

// MemUniverse is an in-memory universe.Repository.
type MemUniverse struct {
	mu      sync.Mutex
	Entries map[string]universe.Entry
}

var _ universe.Repository = (*MemUniverse)(nil)

func NewMemUniverse() *MemUniverse {
	return &MemUniverse{Entries: make(map[string]universe.Entry)}
}

func (m *MemUniverse) Upsert(_ context.Context, entry *universe.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries[entry.Ticker] = *entry
	return nil
}

func (m *MemUniverse) SetEnabled(_ context.Context, ticker string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.Entries[ticker]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "universe entry %s", ticker)
	}
	entry.Enabled = enabled
	m.Entries[ticker] = entry
	return nil
}

func (m *MemUniverse) ListEnabled(_ context.Context) ([]universe.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []universe.Entry
	for _, e := range m.Entries {
		if e.Enabled {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Ticker < entries[j].Ticker })
	return entries, nil
}

// MemPicks is an in-memory pick.Repository.
type MemPicks struct {
	mu     sync.Mutex
	Picks  []pick.WeeklyPick
	Misses []pick.Miss
}

var _ pick.Repository = (*MemPicks)(nil)

func NewMemPicks() *MemPicks {
	return &MemPicks{}
}

func (m *MemPicks) SavePicks(_ context.Context, picks []pick.WeeklyPick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Picks = append(m.Picks, picks...)
	return nil
}

func (m *MemPicks) LogMiss(_ context.Context, miss *pick.Miss) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := *miss
	entry.ID = int64(len(m.Misses) + 1)
	m.Misses = append(m.Misses, entry)
	return nil
}

func (m *MemPicks) LatestRunID(_ context.Context) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Picks) == 0 {
		return uuid.Nil, errors.ErrNoPicks
	}
	latest := m.Picks[0]
	for _, p := range m.Picks[1:] {
		if p.RunTS.After(latest.RunTS) {
			latest = p
		}
	}
	return latest.RunID, nil
}

func (m *MemPicks) PicksByRun(_ context.Context, runID uuid.UUID) ([]pick.WeeklyPick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var picks []pick.WeeklyPick
	for _, p := range m.Picks {
		if p.RunID == runID {
			picks = append(picks, p)
		}
	}
	sort.Slice(picks, func(i, j int) bool {
		if picks[i].Rank != picks[j].Rank {
			return picks[i].Rank < picks[j].Rank
		}
		return picks[i].Ticker < picks[j].Ticker
	})
	return picks, nil
}

func (m *MemPicks) MissesByRun(_ context.Context, runID uuid.UUID) ([]pick.Miss, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var misses []pick.Miss
	for _, e := range m.Misses {
		if e.RunID == runID {
			misses = append(misses, e)
		}
	}
	return misses, nil
}

// MemPromotions is an in-memory promotion.Repository.
type MemPromotions struct {
	mu        sync.Mutex
	Decisions []promotion.Decision
	Positions []promotion.Position
	nextID    int64
}

var _ promotion.Repository = (*MemPromotions)(nil)

func NewMemPromotions() *MemPromotions {
	return &MemPromotions{}
}

func (m *MemPromotions) RecordDecision(_ context.Context, d *promotion.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := *d
	entry.ID = int64(len(m.Decisions) + 1)
	m.Decisions = append(m.Decisions, entry)
	return nil
}

func (m *MemPromotions) DecisionsByRun(_ context.Context, runID uuid.UUID) ([]promotion.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []promotion.Decision
	for _, d := range m.Decisions {
		if d.RunID == runID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MemPromotions) CreatePosition(_ context.Context, p *promotion.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	p.Status = promotion.PositionOpen
	if p.OpenedAt.IsZero() {
		p.OpenedAt = time.Now()
	}
	m.Positions = append(m.Positions, *p)
	return nil
}

func (m *MemPromotions) OpenPositions(_ context.Context) ([]promotion.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []promotion.Position
	for _, p := range m.Positions {
		if p.Status == promotion.PositionOpen {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemPromotions) ClosePosition(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Positions {
		if m.Positions[i].ID == id && m.Positions[i].Status == promotion.PositionOpen {
			now := time.Now()
			m.Positions[i].Status = promotion.PositionClosed
			m.Positions[i].ClosedAt = &now
			return nil
		}
	}
	return errors.Wrapf(errors.ErrNotFound, "open position %d", id)
}

// MemAudit is an in-memory audit.Repository.
type MemAudit struct {
	mu       sync.Mutex
	Findings []audit.Finding
}

var _ audit.Repository = (*MemAudit)(nil)

func NewMemAudit() *MemAudit {
	return &MemAudit{}
}

func (m *MemAudit) Record(_ context.Context, f *audit.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := *f
	entry.ID = int64(len(m.Findings) + 1)
	m.Findings = append(m.Findings, entry)
	return nil
}

func (m *MemAudit) ByRun(_ context.Context, runID uuid.UUID) ([]audit.Finding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []audit.Finding
	for _, f := range m.Findings {
		if f.RunID == runID {
			out = append(out, f)
		}
	}
	return out, nil
}
