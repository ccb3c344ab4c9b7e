package promotion

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the promotion ledger and position store.
type Repository interface {
	RecordDecision(ctx context.Context, d *Decision) error
	DecisionsByRun(ctx context.Context, runID uuid.UUID) ([]Decision, error)

	CreatePosition(ctx context.Context, p *Position) error
	OpenPositions(ctx context.Context) ([]Position, error)
	ClosePosition(ctx context.Context, id int64) error
}
