package promotion

import (
	"time"

	"github.com/google/uuid"

	"covertrack/internal/domain/pick"
)

// Outcome of one gate evaluation.
const (
	DecisionPromoted = "promoted"
	DecisionSkipped  = "skipped"
)

// Skip reasons, recorded verbatim in the ledger.
const (
	ReasonMissingPrice        = "missing_price"
	ReasonOverBudget          = "over_budget"
	ReasonAlreadyOpen         = "already_open"
	ReasonInsufficientHistory = "insufficient_history"
	ReasonStrikeBelowSpot     = "strike_below_spot"
	ReasonYieldBelowFloor     = "yield_below_floor"
)

// Decision is one ledger row. Every candidate the gating loop evaluates gets
// exactly one, promoted or not, with a snapshot of the inputs that decided it.
type Decision struct {
	ID        int64     `db:"id"`
	RunID     uuid.UUID `db:"run_id"`
	Ticker    string    `db:"ticker"`
	Expiry    string    `db:"expiry"`
	Strike    float64   `db:"strike"`
	Lane      pick.Lane `db:"lane"`
	Seed      float64   `db:"seed"`
	Decision  string    `db:"decision"`
	Reason    string    `db:"reason"`
	Price     float64   `db:"price"`
	PackCost  float64   `db:"pack_cost"`
	PremYield float64   `db:"prem_yield"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}

// PositionStatus is the open/closed lifecycle state.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Position is one covered-call holding: 100 shares backing one short call.
// Positions are never deleted, only marked CLOSED.
type Position struct {
	ID          int64          `db:"id"`
	Ticker      string         `db:"ticker"`
	Expiry      string         `db:"expiry"`
	Right       string         `db:"right"` // C or P
	Strike      float64        `db:"strike"`
	Qty         int            `db:"qty"`
	Shares      int            `db:"shares"`
	StockBasis  float64        `db:"stock_basis"`
	PremiumOpen float64        `db:"premium_open"`
	Status      PositionStatus `db:"status"`
	OpenedAt    time.Time      `db:"opened_at"`
	ClosedAt    *time.Time     `db:"closed_at"`
}

// Key identifies a position by its natural contract key.
type Key struct {
	Ticker string
	Expiry string
	Right  string
	Strike float64
}

// Key returns the natural key used for duplicate detection.
func (p *Position) Key() Key {
	return Key{Ticker: p.Ticker, Expiry: p.Expiry, Right: p.Right, Strike: p.Strike}
}
