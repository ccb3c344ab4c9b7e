package postgres

import (
	"context"

	"github.com/google/uuid"

	"covertrack/internal/domain/promotion"
	"covertrack/pkg/errors"
)

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository persists the decision ledger and positions.
type PromotionRepository struct {
	db DBTX
}

// NewPromotionRepository creates a promotion repository.
func NewPromotionRepository(db DBTX) *PromotionRepository {
	return &PromotionRepository{db: db}
}

// RecordDecision appends one ledger row.
func (r *PromotionRepository) RecordDecision(ctx context.Context, d *promotion.Decision) error {
	query := `
		INSERT INTO promotion_decisions (
			run_id, ticker, expiry, strike, lane, seed,
			decision, reason, price, pack_cost, prem_yield, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := r.db.ExecContext(ctx, query,
		d.RunID, d.Ticker, d.Expiry, d.Strike, d.Lane, d.Seed,
		d.Decision, d.Reason, d.Price, d.PackCost, d.PremYield, d.Source); err != nil {
		return errors.Wrapf(err, "record decision %s", d.Ticker)
	}
	return nil
}

// DecisionsByRun returns a run's ledger rows in insertion order.
func (r *PromotionRepository) DecisionsByRun(ctx context.Context, runID uuid.UUID) ([]promotion.Decision, error) {
	var decisions []promotion.Decision
	query := `
		SELECT id, run_id, ticker, expiry, strike, lane, seed,
		       decision, reason, price, pack_cost, prem_yield, source, created_at
		FROM promotion_decisions
		WHERE run_id = $1
		ORDER BY id`

	if err := r.db.SelectContext(ctx, &decisions, query, runID); err != nil {
		return nil, errors.Wrapf(err, "decisions by run %s", runID)
	}
	return decisions, nil
}

// CreatePosition inserts one OPEN position and fills in its id.
func (r *PromotionRepository) CreatePosition(ctx context.Context, p *promotion.Position) error {
	query := `
		INSERT INTO option_positions (ticker, expiry, "right", strike, qty, shares, stock_basis, premium_open, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	if err := r.db.GetContext(ctx, &p.ID, query,
		p.Ticker, p.Expiry, p.Right, p.Strike, p.Qty, p.Shares,
		p.StockBasis, p.PremiumOpen, promotion.PositionOpen); err != nil {
		return errors.Wrapf(err, "create position %s", p.Ticker)
	}
	return nil
}

// OpenPositions returns all OPEN positions.
func (r *PromotionRepository) OpenPositions(ctx context.Context) ([]promotion.Position, error) {
	var positions []promotion.Position
	query := `
		SELECT id, ticker, expiry, "right", strike, qty, shares,
		       stock_basis, premium_open, status, opened_at, closed_at
		FROM option_positions
		WHERE status = $1
		ORDER BY id`

	if err := r.db.SelectContext(ctx, &positions, query, promotion.PositionOpen); err != nil {
		return nil, errors.Wrap(err, "open positions")
	}
	return positions, nil
}

// ClosePosition marks one position CLOSED. The row stays.
func (r *PromotionRepository) ClosePosition(ctx context.Context, id int64) error {
	query := `
		UPDATE option_positions
		SET status = $2, closed_at = now()
		WHERE id = $1 AND status = $3`

	res, err := r.db.ExecContext(ctx, query, id, promotion.PositionClosed, promotion.PositionOpen)
	if err != nil {
		return errors.Wrapf(err, "close position %d", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "open position %d", id)
	}
	return nil
}
