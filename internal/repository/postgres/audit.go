package postgres

import (
	"context"

	"github.com/google/uuid"

	"covertrack/internal/domain/audit"
	"covertrack/pkg/errors"
)

var _ audit.Repository = (*AuditRepository)(nil)

// AuditRepository persists audit findings.
type AuditRepository struct {
	db DBTX
}

// NewAuditRepository creates an audit repository.
func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends one finding.
func (r *AuditRepository) Record(ctx context.Context, f *audit.Finding) error {
	query := `
		INSERT INTO audit_findings (run_id, ticker, field, expected, actual, passed, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := r.db.ExecContext(ctx, query,
		f.RunID, f.Ticker, f.Field, f.Expected, f.Actual, f.Passed, f.Source); err != nil {
		return errors.Wrapf(err, "record finding %s/%s", f.Ticker, f.Field)
	}
	return nil
}

// ByRun returns a run's findings in insertion order.
func (r *AuditRepository) ByRun(ctx context.Context, runID uuid.UUID) ([]audit.Finding, error) {
	var findings []audit.Finding
	query := `
		SELECT id, run_id, ticker, field, expected, actual, passed, source, created_at
		FROM audit_findings
		WHERE run_id = $1
		ORDER BY id`

	if err := r.db.SelectContext(ctx, &findings, query, runID); err != nil {
		return nil, errors.Wrapf(err, "findings by run %s", runID)
	}
	return findings, nil
}
