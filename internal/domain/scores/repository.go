package scores

import "context"

// Repository reads the external scorer's table. There is deliberately no
// write method here: the scorer owns its rows.
type Repository interface {
	Latest(ctx context.Context, ticker string) (*Row, error)
}
