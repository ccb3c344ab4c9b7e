package ingest

import (
	"sync"
	"time"

	"covertrack/internal/adapters/config"
	"covertrack/internal/metrics"
	"covertrack/pkg/logger"
)

// Trigger conditions.
const (
	ConditionNearStrike = "near_strike"
	ConditionRapidUp    = "rapid_up"
)

// Alert is one fired monitoring condition.
type Alert struct {
	Ticker    string
	Condition string
	Price     float64
	Strike    float64
	TS        time.Time
}

// AlertFunc receives fired alerts. It runs on the ingest goroutine, so it
// must not block.
type AlertFunc func(Alert)

type watch struct {
	strike float64
}

type tickerState struct {
	lastPrice   float64
	lastFiredAt map[string]time.Time
}

// TriggerBridge evaluates streamed prices against watched strikes: fire when
// price crosses within NearStrikePct of a strike, or when one print to the
// next rises by RapidUpPct. A per-(ticker, condition) cooldown suppresses
// repeat fires.
type TriggerBridge struct {
	cfg   config.TriggerConfig
	emit  AlertFunc
	log   *logger.Logger
	clock func() time.Time

	mu      sync.Mutex
	watches map[string][]watch
	state   map[string]*tickerState
}

// NewTriggerBridge creates a trigger bridge. emit may be nil, in which case
// fires are only logged and counted.
func NewTriggerBridge(cfg config.TriggerConfig, emit AlertFunc) *TriggerBridge {
	return &TriggerBridge{
		cfg:     cfg,
		emit:    emit,
		log:     logger.Get().With("component", "trigger"),
		clock:   time.Now,
		watches: make(map[string][]watch),
		state:   make(map[string]*tickerState),
	}
}

// Watch registers a strike to monitor for one ticker. Duplicate strikes
// collapse.
func (t *TriggerBridge) Watch(ticker string, strike float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, w := range t.watches[ticker] {
		if w.strike == strike {
			return
		}
	}
	t.watches[ticker] = append(t.watches[ticker], watch{strike: strike})
}

// Unwatch drops every watched strike for one ticker.
func (t *TriggerBridge) Unwatch(ticker string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.watches, ticker)
	delete(t.state, ticker)
}

// Observe evaluates one price print against the ticker's watches.
func (t *TriggerBridge) Observe(ticker string, price float64, ts time.Time) {
	if price <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state[ticker]
	if st == nil {
		st = &tickerState{lastFiredAt: make(map[string]time.Time)}
		t.state[ticker] = st
	}
	prev := st.lastPrice
	st.lastPrice = price

	for _, w := range t.watches[ticker] {
		if w.strike <= 0 {
			continue
		}
		dist := (w.strike - price) / w.strike
		if dist < 0 {
			dist = -dist
		}
		if dist <= t.cfg.NearStrikePct {
			t.fireLocked(st, Alert{
				Ticker: ticker, Condition: ConditionNearStrike,
				Price: price, Strike: w.strike, TS: ts,
			})
		}
	}

	if prev > 0 && (price-prev)/prev >= t.cfg.RapidUpPct {
		t.fireLocked(st, Alert{
			Ticker: ticker, Condition: ConditionRapidUp,
			Price: price, TS: ts,
		})
	}
}

func (t *TriggerBridge) fireLocked(st *tickerState, a Alert) {
	now := t.clock()
	if last, ok := st.lastFiredAt[a.Condition]; ok && now.Sub(last) < t.cfg.Cooldown {
		return
	}
	st.lastFiredAt[a.Condition] = now

	metrics.MonitorTriggers.WithLabelValues(a.Condition).Inc()
	t.log.Infof("%s %s at %.2f (strike %.2f)", a.Ticker, a.Condition, a.Price, a.Strike)
	if t.emit != nil {
		t.emit(a)
	}
}
