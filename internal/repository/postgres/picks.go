package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"covertrack/internal/domain/pick"
	"covertrack/pkg/errors"
)

var _ pick.Repository = (*PickRepository)(nil)

// PickRepository persists weekly picks and the miss log.
type PickRepository struct {
	db DBTX
}

// NewPickRepository creates a pick repository.
func NewPickRepository(db DBTX) *PickRepository {
	return &PickRepository{db: db}
}

// SavePicks writes a run's pick rows. Re-running the same run id replaces
// each ticker's row.
func (r *PickRepository) SavePicks(ctx context.Context, picks []pick.WeeklyPick) error {
	query := `
		INSERT INTO weekly_picks (
			run_id, run_ts, ticker, lane, rank,
			price, price_source, expiry, strike, contract,
			bid, ask, mid, chain_source,
			premium_100, pack_100_cost, prem_yield,
			yield_score, suitability_score, risk_penalty, regime_adj, base_score, final_score
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17,
			$18, $19, $20, $21, $22, $23
		)
		ON CONFLICT (run_id, ticker) DO UPDATE SET
			lane              = EXCLUDED.lane,
			rank              = EXCLUDED.rank,
			price             = EXCLUDED.price,
			price_source      = EXCLUDED.price_source,
			expiry            = EXCLUDED.expiry,
			strike            = EXCLUDED.strike,
			contract          = EXCLUDED.contract,
			bid               = EXCLUDED.bid,
			ask               = EXCLUDED.ask,
			mid               = EXCLUDED.mid,
			chain_source      = EXCLUDED.chain_source,
			premium_100       = EXCLUDED.premium_100,
			pack_100_cost     = EXCLUDED.pack_100_cost,
			prem_yield        = EXCLUDED.prem_yield,
			yield_score       = EXCLUDED.yield_score,
			suitability_score = EXCLUDED.suitability_score,
			risk_penalty      = EXCLUDED.risk_penalty,
			regime_adj        = EXCLUDED.regime_adj,
			base_score        = EXCLUDED.base_score,
			final_score       = EXCLUDED.final_score`

	for i := range picks {
		p := &picks[i]
		if _, err := r.db.ExecContext(ctx, query,
			p.RunID, p.RunTS, p.Ticker, p.Lane, p.Rank,
			p.Price, p.PriceSource, p.Expiry, p.Strike, p.Contract,
			p.Bid, p.Ask, p.Mid, p.ChainSource,
			p.Premium100, p.Pack100Cost, p.PremYield,
			p.YieldScore, p.SuitabilityScore, p.RiskPenalty, p.RegimeAdj, p.BaseScore, p.FinalScore); err != nil {
			return errors.Wrapf(err, "save pick %s", p.Ticker)
		}
	}
	return nil
}

// LogMiss appends one miss-log entry.
func (r *PickRepository) LogMiss(ctx context.Context, miss *pick.Miss) error {
	query := `
		INSERT INTO miss_log (run_id, ticker, stage, reason, detail, source)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db.ExecContext(ctx, query,
		miss.RunID, miss.Ticker, miss.Stage, miss.Reason, miss.Detail, miss.Source); err != nil {
		return errors.Wrapf(err, "log miss %s/%s", miss.Ticker, miss.Stage)
	}
	return nil
}

// LatestRunID returns the run id with the newest run_ts, or ErrNoPicks when
// no run has ever been persisted.
func (r *PickRepository) LatestRunID(ctx context.Context) (uuid.UUID, error) {
	var runID uuid.UUID
	query := `SELECT run_id FROM weekly_picks ORDER BY run_ts DESC LIMIT 1`

	if err := r.db.GetContext(ctx, &runID, query); err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, errors.ErrNoPicks
		}
		return uuid.Nil, errors.Wrap(err, "latest run id")
	}
	return runID, nil
}

// PicksByRun returns a run's picks ordered by rank, ticker as a stable
// tiebreak.
func (r *PickRepository) PicksByRun(ctx context.Context, runID uuid.UUID) ([]pick.WeeklyPick, error) {
	var picks []pick.WeeklyPick
	query := `
		SELECT run_id, run_ts, ticker, lane, rank,
		       price, price_source, expiry, strike, contract,
		       bid, ask, mid, chain_source,
		       premium_100, pack_100_cost, prem_yield,
		       yield_score, suitability_score, risk_penalty, regime_adj, base_score, final_score,
		       created_at
		FROM weekly_picks
		WHERE run_id = $1
		ORDER BY rank, ticker`

	if err := r.db.SelectContext(ctx, &picks, query, runID); err != nil {
		return nil, errors.Wrapf(err, "picks by run %s", runID)
	}
	return picks, nil
}

// MissesByRun returns a run's miss-log entries in insertion order.
func (r *PickRepository) MissesByRun(ctx context.Context, runID uuid.UUID) ([]pick.Miss, error) {
	var misses []pick.Miss
	query := `
		SELECT id, run_id, ticker, stage, reason, detail, source, created_at
		FROM miss_log
		WHERE run_id = $1
		ORDER BY id`

	if err := r.db.SelectContext(ctx, &misses, query, runID); err != nil {
		return nil, errors.Wrapf(err, "misses by run %s", runID)
	}
	return misses, nil
}
