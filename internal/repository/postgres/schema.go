package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"covertrack/pkg/errors"
)

// Schema DDL. Natural keys carry the upsert targets: every write path is a
// last-writer-wins ON CONFLICT DO UPDATE, so streaming and batch stages
// interleave without cross-stage transactions.
const schema = `
CREATE TABLE IF NOT EXISTS universe (
	ticker    TEXT PRIMARY KEY,
	category  TEXT NOT NULL DEFAULT '',
	enabled   BOOLEAN NOT NULL DEFAULT TRUE,
	added_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS market_last (
	ticker  TEXT PRIMARY KEY,
	price   DOUBLE PRECISION NOT NULL,
	ts      TIMESTAMPTZ NOT NULL,
	source  TEXT NOT NULL CHECK (source <> '')
);

CREATE TABLE IF NOT EXISTS price_bars_1m (
	ticker  TEXT NOT NULL,
	ts      TIMESTAMPTZ NOT NULL,
	open    DOUBLE PRECISION NOT NULL,
	high    DOUBLE PRECISION NOT NULL,
	low     DOUBLE PRECISION NOT NULL,
	close   DOUBLE PRECISION NOT NULL,
	volume  DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (ticker, ts)
);

CREATE TABLE IF NOT EXISTS option_chain (
	ticker    TEXT NOT NULL,
	expiry    TEXT NOT NULL,
	strike    DOUBLE PRECISION NOT NULL,
	contract  TEXT NOT NULL DEFAULT '',
	bid       DOUBLE PRECISION,
	ask       DOUBLE PRECISION,
	mid       DOUBLE PRECISION,
	last      DOUBLE PRECISION,
	oi        BIGINT,
	iv        DOUBLE PRECISION,
	delta     DOUBLE PRECISION,
	as_of     TIMESTAMPTZ NOT NULL,
	source    TEXT NOT NULL CHECK (source <> ''),
	PRIMARY KEY (ticker, expiry, strike)
);

CREATE TABLE IF NOT EXISTS option_bars (
	contract  TEXT PRIMARY KEY,
	ticker    TEXT NOT NULL,
	expiry    TEXT NOT NULL,
	strike    DOUBLE PRECISION NOT NULL,
	close     DOUBLE PRECISION NOT NULL,
	ts        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_option_bars_ticker_expiry ON option_bars (ticker, expiry);

CREATE TABLE IF NOT EXISTS scores (
	ticker            TEXT NOT NULL,
	ts                TIMESTAMPTZ NOT NULL,
	suitability       DOUBLE PRECISION,
	ann_vol           DOUBLE PRECISION,
	max_drawdown      DOUBLE PRECISION,
	expected_move_5d  DOUBLE PRECISION,
	regime_score      DOUBLE PRECISION,
	downside_risk_5d  DOUBLE PRECISION,
	history_days      INTEGER NOT NULL DEFAULT 0,
	source            TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (ticker, ts)
);

CREATE TABLE IF NOT EXISTS weekly_picks (
	run_id             UUID NOT NULL,
	run_ts             TIMESTAMPTZ NOT NULL,
	ticker             TEXT NOT NULL,
	lane               TEXT NOT NULL,
	rank               INTEGER NOT NULL,
	price              DOUBLE PRECISION NOT NULL,
	price_source       TEXT NOT NULL CHECK (price_source <> ''),
	expiry             TEXT NOT NULL,
	strike             DOUBLE PRECISION NOT NULL,
	contract           TEXT NOT NULL DEFAULT '',
	bid                DOUBLE PRECISION NOT NULL,
	ask                DOUBLE PRECISION NOT NULL,
	mid                DOUBLE PRECISION NOT NULL,
	chain_source       TEXT NOT NULL CHECK (chain_source <> ''),
	premium_100        DOUBLE PRECISION NOT NULL,
	pack_100_cost      DOUBLE PRECISION NOT NULL,
	prem_yield         DOUBLE PRECISION NOT NULL,
	yield_score        DOUBLE PRECISION NOT NULL DEFAULT 0,
	suitability_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
	risk_penalty       DOUBLE PRECISION NOT NULL DEFAULT 0,
	regime_adj         DOUBLE PRECISION NOT NULL DEFAULT 0,
	base_score         DOUBLE PRECISION NOT NULL DEFAULT 0,
	final_score        DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, ticker)
);
CREATE INDEX IF NOT EXISTS idx_weekly_picks_run_ts ON weekly_picks (run_ts);

CREATE TABLE IF NOT EXISTS miss_log (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID NOT NULL,
	ticker      TEXT NOT NULL,
	stage       TEXT NOT NULL,
	reason      TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS promotion_decisions (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID NOT NULL,
	ticker      TEXT NOT NULL,
	expiry      TEXT NOT NULL,
	strike      DOUBLE PRECISION NOT NULL,
	lane        TEXT NOT NULL,
	seed        DOUBLE PRECISION NOT NULL,
	decision    TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	price       DOUBLE PRECISION NOT NULL DEFAULT 0,
	pack_cost   DOUBLE PRECISION NOT NULL DEFAULT 0,
	prem_yield  DOUBLE PRECISION NOT NULL DEFAULT 0,
	source      TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS option_positions (
	id            BIGSERIAL PRIMARY KEY,
	ticker        TEXT NOT NULL,
	expiry        TEXT NOT NULL,
	"right"       TEXT NOT NULL CHECK ("right" IN ('C', 'P')),
	strike        DOUBLE PRECISION NOT NULL,
	qty           INTEGER NOT NULL,
	shares        INTEGER NOT NULL DEFAULT 100,
	stock_basis   DOUBLE PRECISION NOT NULL,
	premium_open  DOUBLE PRECISION NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'OPEN',
	opened_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	closed_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_option_positions_status ON option_positions (status);

CREATE TABLE IF NOT EXISTS audit_findings (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID NOT NULL,
	ticker      TEXT NOT NULL,
	field       TEXT NOT NULL,
	expected    TEXT NOT NULL DEFAULT '',
	actual      TEXT NOT NULL DEFAULT '',
	passed      BOOLEAN NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates all tables if absent. Idempotent.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "apply schema")
	}
	return nil
}
