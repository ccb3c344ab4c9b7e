package audit

import (
	"time"

	"github.com/google/uuid"
)

// Fields the audit pass recomputes.
const (
	FieldPackCost    = "pack_100_cost"
	FieldPremium     = "premium_100"
	FieldYield       = "prem_yield"
	FieldSources     = "sources"
	FieldPlaceholder = "premium_vs_price"
)

// Finding is one write-only audit row comparing a persisted value against an
// independent recomputation. The audit pass reports; it never corrects.
type Finding struct {
	ID        int64     `db:"id"`
	RunID     uuid.UUID `db:"run_id"`
	Ticker    string    `db:"ticker"`
	Field     string    `db:"field"`
	Expected  string    `db:"expected"`
	Actual    string    `db:"actual"`
	Passed    bool      `db:"passed"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}
