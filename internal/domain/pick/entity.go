package pick

import (
	"time"

	"github.com/google/uuid"
)

// Lane is a risk bucket constraining strike selection and minimum yield.
type Lane string

const (
	LaneConservative Lane = "conservative"
	LaneMid          Lane = "mid"
	LaneSpeculative  Lane = "speculative"
)

// Valid checks if the lane is one of the three buckets.
func (l Lane) Valid() bool {
	return l == LaneConservative || l == LaneMid || l == LaneSpeculative
}

// String returns the string representation
func (l Lane) String() string {
	return string(l)
}

// WeeklyPick is one ranked covered-call candidate for one run. A pick row is
// only ever persisted complete: strike, bid, ask, mid, premium and yield all
// present and internally consistent. Tickers that cannot satisfy that go to
// the miss log instead.
type WeeklyPick struct {
	RunID uuid.UUID `db:"run_id"`
	RunTS time.Time `db:"run_ts"`

	Ticker string `db:"ticker"`
	Lane   Lane   `db:"lane"`
	Rank   int    `db:"rank"`

	Price       float64 `db:"price"`
	PriceSource string  `db:"price_source"`

	Expiry      string  `db:"expiry"`
	Strike      float64 `db:"strike"`
	Contract    string  `db:"contract"`
	Bid         float64 `db:"bid"`
	Ask         float64 `db:"ask"`
	Mid         float64 `db:"mid"`
	ChainSource string  `db:"chain_source"`

	Premium100  float64 `db:"premium_100"`
	Pack100Cost float64 `db:"pack_100_cost"`
	PremYield   float64 `db:"prem_yield"`

	// Rank decomposition
	YieldScore       float64 `db:"yield_score"`
	SuitabilityScore float64 `db:"suitability_score"`
	RiskPenalty      float64 `db:"risk_penalty"`
	RegimeAdj        float64 `db:"regime_adj"`
	BaseScore        float64 `db:"base_score"`
	FinalScore       float64 `db:"final_score"`

	CreatedAt time.Time `db:"created_at"`
}

// Stages at which a ticker can drop out of a run.
const (
	StagePrice     = "price"
	StageScores    = "scores"
	StageChain     = "chain"
	StageSelection = "selection"
	StageMath      = "math"
)

// Miss is one append-only miss-log entry explaining why a ticker is absent
// from a run's picks.
type Miss struct {
	ID        int64     `db:"id"`
	RunID     uuid.UUID `db:"run_id"`
	Ticker    string    `db:"ticker"`
	Stage     string    `db:"stage"`
	Reason    string    `db:"reason"`
	Detail    string    `db:"detail"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}
