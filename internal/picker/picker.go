// Package picker runs the weekly selection pipeline: resolve spot, classify
// lane, resolve the chain, select a strike, compute premium economics and
// rank. Tickers that drop out at any stage land in the miss log with the
// stage and every source that was attempted.
package picker

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"covertrack/internal/adapters/config"
	"covertrack/internal/domain/pick"
	"covertrack/internal/domain/scores"
	"covertrack/internal/domain/universe"
	"covertrack/internal/metrics"
	"covertrack/internal/resolver"
	"covertrack/pkg/errors"
	"covertrack/pkg/logger"
)

const sharesPerContract = 100

// Picker runs weekly selection over the enabled universe.
type Picker struct {
	cfg      config.PickerConfig
	res      *resolver.Resolver
	universe universe.Repository
	scores   scores.Repository
	picks    pick.Repository
	log      *logger.Logger
	now      func() time.Time
}

// New creates a picker.
func New(cfg config.PickerConfig, res *resolver.Resolver, uni universe.Repository, sc scores.Repository, picks pick.Repository) *Picker {
	return &Picker{
		cfg:      cfg,
		res:      res,
		universe: uni,
		scores:   sc,
		picks:    picks,
		log:      logger.Get().With("component", "picker"),
		now:      time.Now,
	}
}

// Run executes one selection pass and returns its run id. Per-ticker
// failures go to the miss log and never abort the run; only persistence
// failures do.
func (p *Picker) Run(ctx context.Context) (uuid.UUID, error) {
	runID := uuid.New()
	runTS := p.now().UTC()
	expiry := nextFriday(runTS)

	entries, err := p.universe.ListEnabled(ctx)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "list universe")
	}
	p.log.Infof("run %s: %d tickers, expiry %s", runID, len(entries), expiry)

	var all []pick.WeeklyPick
	for _, entry := range entries {
		candidate, miss := p.evaluate(ctx, runID, entry, expiry)
		if miss != nil {
			p.logMiss(ctx, miss)
			continue
		}
		candidate.RunID = runID
		candidate.RunTS = runTS
		all = append(all, *candidate)
	}

	// Ranks are global across lanes: one ordering per run, so every rank is
	// unique and downstream gating in rank order is deterministic.
	sort.Slice(all, func(i, j int) bool {
		if all[i].FinalScore != all[j].FinalScore {
			return all[i].FinalScore > all[j].FinalScore
		}
		return all[i].Ticker < all[j].Ticker
	})
	if p.cfg.TopN > 0 && len(all) > p.cfg.TopN {
		for _, cut := range all[p.cfg.TopN:] {
			p.logMiss(ctx, &pick.Miss{
				RunID:  runID,
				Ticker: cut.Ticker,
				Stage:  pick.StageSelection,
				Reason: "below_top_n",
				Detail: cut.Lane.String(),
				Source: cut.ChainSource,
			})
		}
		all = all[:p.cfg.TopN]
	}
	for i := range all {
		all[i].Rank = i + 1
	}

	if err := p.picks.SavePicks(ctx, all); err != nil {
		return uuid.Nil, errors.Wrap(err, "save picks")
	}
	metrics.PicksPersisted.Add(float64(len(all)))
	p.log.Infof("run %s: persisted %d picks", runID, len(all))
	return runID, nil
}

// evaluate walks one ticker through the pipeline. Exactly one of the return
// values is non-nil.
func (p *Picker) evaluate(ctx context.Context, runID uuid.UUID, entry universe.Entry, expiry string) (*pick.WeeklyPick, *pick.Miss) {
	price, err := p.res.ResolvePrice(ctx, entry.Ticker)
	if err != nil || !price.Found {
		return nil, &pick.Miss{
			RunID:  runID,
			Ticker: entry.Ticker,
			Stage:  pick.StagePrice,
			Reason: "unresolved",
			Detail: strings.Join(price.Attempted, ","),
		}
	}

	row, err := p.scores.Latest(ctx, entry.Ticker)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, &pick.Miss{
			RunID:  runID,
			Ticker: entry.Ticker,
			Stage:  pick.StageScores,
			Reason: "lookup_failed",
			Detail: err.Error(),
		}
	}
	lane := classifyLane(p.cfg, entry, row)
	params := laneParams(p.cfg, lane)

	chain, err := p.res.ResolveChain(ctx, entry.Ticker, expiry)
	if err == nil && !chain.Found {
		// The target Friday may not be listed; fall back to the earliest
		// reference-data expiration on or after it.
		if alt := p.alternateExpiry(ctx, entry.Ticker, expiry); alt != "" {
			expiry = alt
			chain, err = p.res.ResolveChain(ctx, entry.Ticker, expiry)
		}
	}
	if err != nil || !chain.Found {
		return nil, &pick.Miss{
			RunID:  runID,
			Ticker: entry.Ticker,
			Stage:  pick.StageChain,
			Reason: "unresolved",
			Detail: strings.Join(chain.Attempted, ","),
		}
	}

	strike, reject := selectStrike(chain.Rows, price.Price, targetStrike(price.Price, row, params), params)
	if strike == nil {
		return nil, &pick.Miss{
			RunID:  runID,
			Ticker: entry.Ticker,
			Stage:  pick.StageSelection,
			Reason: reject,
			Detail: lane.String() + " " + expiry,
			Source: chain.Source,
		}
	}

	premium := math.Round(*strike.Mid*sharesPerContract*100) / 100
	packCost := price.Price * sharesPerContract
	yield := premium / packCost
	if reason := sanityCheck(premium, packCost, price.Price, yield); reason != "" {
		return nil, &pick.Miss{
			RunID:  runID,
			Ticker: entry.Ticker,
			Stage:  pick.StageMath,
			Reason: reason,
			Detail: errors.ErrDataInvalid.Error(),
			Source: chain.Source,
		}
	}

	candidate := &pick.WeeklyPick{
		Ticker:      entry.Ticker,
		Lane:        lane,
		Price:       price.Price,
		PriceSource: price.Source,
		Expiry:      expiry,
		Strike:      strike.Strike,
		Contract:    strike.Contract,
		Mid:         *strike.Mid,
		ChainSource: chain.Source,
		Premium100:  premium,
		Pack100Cost: packCost,
		PremYield:   yield,
	}
	candidate.Bid = *strike.Bid
	candidate.Ask = *strike.Ask
	p.score(candidate, row)
	return candidate, nil
}

// targetStrike is the lane-weighted strike target: spot plus the lane's
// strike weight times the 5-day expected move, with a 2%-of-spot proxy when
// the scorer has no move estimate.
func targetStrike(spot float64, row *scores.Row, params config.LaneConfig) float64 {
	move := 0.02 * spot
	if row != nil && row.ExpectedMove5D != nil && *row.ExpectedMove5D > 0 {
		move = *row.ExpectedMove5D
	}
	return spot + params.StrikeWeight*move
}

// sanityCheck guards the persisted economics: positive values, a yield a
// covered weekly can actually produce, and a premium that is not the
// underlying price landed in the wrong column. premium_100 == spot is the
// signature of mid = price/100, a misplaced decimal from the feed.
func sanityCheck(premium, packCost, spot, yield float64) string {
	if premium <= 0 || packCost <= 0 {
		return "non_positive_economics"
	}
	if yield >= 0.5 {
		return "implausible_yield"
	}
	if math.Abs(premium-spot) < 0.01 {
		return "premium_equals_price"
	}
	return ""
}

// score fills in the rank decomposition. The components are persisted so the
// audit pass can recompute the final score from its parts.
func (p *Picker) score(c *pick.WeeklyPick, row *scores.Row) {
	c.YieldScore = c.PremYield * p.cfg.YieldWeight

	if row != nil {
		if row.Suitability != nil {
			c.SuitabilityScore = *row.Suitability * p.cfg.SuitWeight
		}
		var risk float64
		if row.AnnVol != nil {
			risk += *row.AnnVol
		}
		if row.MaxDrawdown != nil {
			risk += *row.MaxDrawdown
		}
		c.RiskPenalty = risk * p.cfg.RiskWeight
		if row.DownsideRisk5D != nil {
			c.RiskPenalty += *row.DownsideRisk5D * p.cfg.DownsideWeight
		}
		if row.RegimeScore != nil {
			c.RegimeAdj = *row.RegimeScore * p.cfg.RegimeWeight
		}
	}

	c.BaseScore = c.YieldScore + c.SuitabilityScore - c.RiskPenalty
	c.FinalScore = c.BaseScore + c.RegimeAdj
}

// alternateExpiry returns the earliest listed expiration on or after the
// target Friday, or "" when the lookup fails or finds nothing.
func (p *Picker) alternateExpiry(ctx context.Context, ticker, target string) string {
	dates, err := p.res.Expirations(ctx, ticker, target)
	if err != nil || len(dates) == 0 {
		return ""
	}
	if dates[0] == target {
		// Already tried.
		if len(dates) < 2 {
			return ""
		}
		return dates[1]
	}
	return dates[0]
}

func (p *Picker) logMiss(ctx context.Context, miss *pick.Miss) {
	metrics.Misses.WithLabelValues(miss.Stage).Inc()
	p.log.Infof("miss %s at %s: %s", miss.Ticker, miss.Stage, miss.Reason)
	if err := p.picks.LogMiss(ctx, miss); err != nil {
		p.log.Errorf("log miss %s: %v", miss.Ticker, err)
	}
}
