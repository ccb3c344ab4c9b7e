package postgres

import (
	"context"

	"covertrack/internal/domain/universe"
	"covertrack/pkg/errors"
)

var _ universe.Repository = (*UniverseRepository)(nil)

// UniverseRepository persists the watch-list.
type UniverseRepository struct {
	db DBTX
}

// NewUniverseRepository creates a watch-list repository.
func NewUniverseRepository(db DBTX) *UniverseRepository {
	return &UniverseRepository{db: db}
}

// Upsert inserts or refreshes one entry, keeping the original added_at.
func (r *UniverseRepository) Upsert(ctx context.Context, entry *universe.Entry) error {
	query := `
		INSERT INTO universe (ticker, category, enabled, added_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (ticker) DO UPDATE SET
			category = EXCLUDED.category,
			enabled  = EXCLUDED.enabled`

	if _, err := r.db.ExecContext(ctx, query, entry.Ticker, entry.Category, entry.Enabled); err != nil {
		return errors.Wrapf(err, "upsert universe entry %s", entry.Ticker)
	}
	return nil
}

// SetEnabled toggles one ticker without touching its category.
func (r *UniverseRepository) SetEnabled(ctx context.Context, ticker string, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE universe SET enabled = $2 WHERE ticker = $1`, ticker, enabled)
	if err != nil {
		return errors.Wrapf(err, "set enabled %s", ticker)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "universe entry %s", ticker)
	}
	return nil
}

// ListEnabled returns enabled entries in ticker order.
func (r *UniverseRepository) ListEnabled(ctx context.Context) ([]universe.Entry, error) {
	var entries []universe.Entry
	query := `
		SELECT ticker, category, enabled, added_at
		FROM universe
		WHERE enabled
		ORDER BY ticker`

	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, errors.Wrap(err, "list enabled universe")
	}
	return entries, nil
}
