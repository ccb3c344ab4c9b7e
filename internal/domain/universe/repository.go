package universe

import "context"

// Repository defines watch-list data access.
type Repository interface {
	Upsert(ctx context.Context, entry *Entry) error
	SetEnabled(ctx context.Context, ticker string, enabled bool) error

	// ListEnabled returns enabled tickers sorted ascending, so batch passes
	// process the universe in stable order.
	ListEnabled(ctx context.Context) ([]Entry, error)
}
