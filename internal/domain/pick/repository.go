package pick

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines pick and miss-log persistence.
type Repository interface {
	SavePicks(ctx context.Context, picks []WeeklyPick) error
	LogMiss(ctx context.Context, miss *Miss) error

	// LatestRunID returns the run id of the most recent persisted run.
	LatestRunID(ctx context.Context) (uuid.UUID, error)

	// PicksByRun returns a run's picks ordered by rank ascending.
	PicksByRun(ctx context.Context, runID uuid.UUID) ([]WeeklyPick, error)

	MissesByRun(ctx context.Context, runID uuid.UUID) ([]Miss, error)
}
