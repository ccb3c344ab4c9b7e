package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines audit finding persistence.
type Repository interface {
	Record(ctx context.Context, f *Finding) error
	ByRun(ctx context.Context, runID uuid.UUID) ([]Finding, error)
}
