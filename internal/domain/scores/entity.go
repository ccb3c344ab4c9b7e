package scores

import "time"

// Row is one output of the external suitability scorer, keyed by
// (ticker, ts). This repo only ever reads the latest row per ticker; the
// scorer itself is a separate process. Metrics are pointers because any of
// them may be absent for a thin history.
type Row struct {
	Ticker         string    `db:"ticker"`
	TS             time.Time `db:"ts"`
	Suitability    *float64  `db:"suitability"`
	AnnVol         *float64  `db:"ann_vol"`
	MaxDrawdown    *float64  `db:"max_drawdown"`
	ExpectedMove5D *float64  `db:"expected_move_5d"`
	RegimeScore    *float64  `db:"regime_score"`
	DownsideRisk5D *float64  `db:"downside_risk_5d"`
	HistoryDays    int       `db:"history_days"`
	Source         string    `db:"source"`
}

// HasLaneMetrics reports whether the row carries everything lane
// classification needs.
func (r *Row) HasLaneMetrics() bool {
	return r != nil && r.Suitability != nil && r.AnnVol != nil && r.MaxDrawdown != nil
}
