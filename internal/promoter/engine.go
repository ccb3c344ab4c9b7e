// Package promoter gates the latest run's picks into paper positions under a
// fixed seed budget. Every candidate gets exactly one ledger row, promoted
// or skipped, so a run's promotion pass is fully reconstructable.
package promoter

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"covertrack/internal/adapters/config"
	"covertrack/internal/domain/pick"
	"covertrack/internal/domain/promotion"
	"covertrack/internal/domain/scores"
	"covertrack/internal/metrics"
	"covertrack/pkg/errors"
	"covertrack/pkg/logger"
)

// LaneAll disables the lane filter: every lane's picks are gated.
const LaneAll = "all"

// Engine applies the promotion gates to one run.
type Engine struct {
	cfg    config.PromotionConfig
	floors map[pick.Lane]float64
	picks  pick.Repository
	promos promotion.Repository
	scores scores.Repository
	log    *logger.Logger
}

// New creates a promotion engine. floors carries the per-lane minimum yields
// used by the final gate; a lane absent from the map has no floor.
func New(cfg config.PromotionConfig, floors map[pick.Lane]float64, picks pick.Repository, promos promotion.Repository, sc scores.Repository) *Engine {
	return &Engine{
		cfg:    cfg,
		floors: floors,
		picks:  picks,
		promos: promos,
		scores: sc,
		log:    logger.Get().With("component", "promoter"),
	}
}

// Result summarizes one promotion pass.
type Result struct {
	RunID     uuid.UUID
	Promoted  int
	Skipped   int
	Remaining decimal.Decimal
}

// Run promotes the latest run's picks in the configured lane, rank order,
// until the seed budget cannot cover the next pack. Budget exhaustion does
// not stop the loop: remaining candidates are still evaluated and recorded
// as over_budget so the ledger covers the whole slate.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	runID, err := e.picks.LatestRunID(ctx)
	if err != nil {
		return nil, err
	}
	return e.RunFor(ctx, runID)
}

// RunFor promotes one specific run.
func (e *Engine) RunFor(ctx context.Context, runID uuid.UUID) (*Result, error) {
	picks, err := e.picks.PicksByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	open, err := e.promos.OpenPositions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load open positions")
	}
	openKeys := make(map[promotion.Key]struct{}, len(open))
	for i := range open {
		openKeys[open[i].Key()] = struct{}{}
	}

	lane := pick.Lane(e.cfg.Lane)
	budget := decimal.NewFromFloat(e.cfg.Seed)
	result := &Result{RunID: runID}

	count := 0
	for i := range picks {
		p := &picks[i]
		if e.cfg.Lane != LaneAll && p.Lane != lane {
			continue
		}
		if e.cfg.TopN > 0 && count >= e.cfg.TopN {
			break
		}
		count++

		decision := &promotion.Decision{
			RunID:     runID,
			Ticker:    p.Ticker,
			Expiry:    p.Expiry,
			Strike:    p.Strike,
			Lane:      p.Lane,
			Seed:      e.cfg.Seed,
			Price:     p.Price,
			PackCost:  p.Pack100Cost,
			PremYield: p.PremYield,
			Source:    p.PriceSource,
		}

		if reason := e.gate(ctx, p, openKeys, budget); reason != "" {
			decision.Decision = promotion.DecisionSkipped
			decision.Reason = reason
			result.Skipped++
		} else {
			pos := &promotion.Position{
				Ticker:      p.Ticker,
				Expiry:      p.Expiry,
				Right:       "C",
				Strike:      p.Strike,
				Qty:         1,
				Shares:      100,
				StockBasis:  p.Price,
				PremiumOpen: p.Premium100,
			}
			if err := e.promos.CreatePosition(ctx, pos); err != nil {
				return nil, errors.Wrapf(err, "create position %s", p.Ticker)
			}
			openKeys[pos.Key()] = struct{}{}
			budget = budget.Sub(decimal.NewFromFloat(p.Pack100Cost))
			decision.Decision = promotion.DecisionPromoted
			result.Promoted++
			e.log.Infof("promoted %s %s %.2fC for %.2f", p.Ticker, p.Expiry, p.Strike, p.Pack100Cost)
		}

		metrics.Promotions.WithLabelValues(decision.Decision).Inc()
		if err := e.promos.RecordDecision(ctx, decision); err != nil {
			return nil, errors.Wrapf(err, "record decision %s", p.Ticker)
		}
	}

	result.Remaining = budget
	e.log.Infof("run %s: promoted %d, skipped %d, remaining %s", runID, result.Promoted, result.Skipped, budget)
	return result, nil
}

// gate returns the first failing skip reason, or "" to promote. The order
// is fixed so ledger reasons stay comparable across runs: missing data,
// budget, duplicates, history, then the economics gates.
func (e *Engine) gate(ctx context.Context, p *pick.WeeklyPick, open map[promotion.Key]struct{}, budget decimal.Decimal) string {
	if p.Price <= 0 || p.Pack100Cost <= 0 {
		return promotion.ReasonMissingPrice
	}

	if decimal.NewFromFloat(p.Pack100Cost).GreaterThan(budget) {
		return promotion.ReasonOverBudget
	}

	key := promotion.Key{Ticker: p.Ticker, Expiry: p.Expiry, Right: "C", Strike: p.Strike}
	if _, dup := open[key]; dup {
		return promotion.ReasonAlreadyOpen
	}

	if e.cfg.MinHistoryDays > 0 {
		row, err := e.scores.Latest(ctx, p.Ticker)
		if err == nil && row.HistoryDays > 0 && row.HistoryDays < e.cfg.MinHistoryDays {
			return promotion.ReasonInsufficientHistory
		}
	}

	if p.Strike < p.Price {
		return promotion.ReasonStrikeBelowSpot
	}
	if floor, ok := e.floors[p.Lane]; ok && p.PremYield < floor {
		return promotion.ReasonYieldBelowFloor
	}
	return ""
}
