package postgres

import (
	"context"
	"database/sql"

	"covertrack/internal/domain/scores"
	"covertrack/pkg/errors"
)

var _ scores.Repository = (*ScoresRepository)(nil)

// ScoresRepository reads the external scorer's table.
type ScoresRepository struct {
	db DBTX
}

// NewScoresRepository creates a scores repository.
func NewScoresRepository(db DBTX) *ScoresRepository {
	return &ScoresRepository{db: db}
}

// Latest returns the newest score row for one ticker, or ErrNotFound.
func (r *ScoresRepository) Latest(ctx context.Context, ticker string) (*scores.Row, error) {
	var row scores.Row
	query := `
		SELECT ticker, ts, suitability, ann_vol, max_drawdown, expected_move_5d,
		       regime_score, downside_risk_5d, history_days, source
		FROM scores
		WHERE ticker = $1
		ORDER BY ts DESC
		LIMIT 1`

	if err := r.db.GetContext(ctx, &row, query, ticker); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Wrapf(errors.ErrNotFound, "scores %s", ticker)
		}
		return nil, errors.Wrapf(err, "latest scores %s", ticker)
	}
	return &row, nil
}
