package picker

import (
	"time"

	"covertrack/internal/adapters/config"
	"covertrack/internal/domain/marketdata"
)

// nextFriday returns the next Friday strictly after the given day, formatted
// YYYY-MM-DD. Running on a Friday targets the following week.
func nextFriday(from time.Time) string {
	days := (int(time.Friday) - int(from.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return from.AddDate(0, 0, days).Format("2006-01-02")
}

// Reject reasons from strike selection.
const (
	rejectNoViableStrike = "no_viable_strike"
	rejectYieldFloor     = "yield_below_floor"
)

// selectStrike picks the call to write from a chain. Filters: strike at or
// above spot, bid and ask both quoted, usable mid, spread within the lane
// cap, delta inside the lane band when the feed provides it, weekly yield at
// or above the lane floor. Among survivors the contract closest to the
// lane's target delta wins; without deltas, the one closest to targetStrike,
// higher yield on ties. The second return value is the dominant reject
// reason when nothing survives.
func selectStrike(rows []marketdata.ChainRow, spot, targetStrike float64, lane config.LaneConfig) (*marketdata.ChainRow, string) {
	var best *marketdata.ChainRow
	var bestDist, bestYield float64
	yieldRejected := false

	for i := range rows {
		row := &rows[i]
		if row.Strike < spot {
			continue
		}
		// Persisted picks carry non-null bid/ask/mid; an unquoted row (a
		// bar-bootstrap estimate or a thin snapshot) is never a candidate.
		if row.Bid == nil || row.Ask == nil {
			continue
		}
		if row.Mid == nil || *row.Mid <= 0 {
			continue
		}
		if spread, ok := row.SpreadPct(); ok && spread > lane.MaxSpreadPct {
			continue
		}
		if row.Delta != nil && (*row.Delta < lane.DeltaLow || *row.Delta > lane.DeltaHigh) {
			continue
		}

		yield := *row.Mid / spot
		if yield < lane.MinYield {
			yieldRejected = true
			continue
		}

		dist := strikeDistance(row, targetStrike, lane)
		if best == nil || dist < bestDist || (dist == bestDist && yield > bestYield) {
			best = row
			bestDist = dist
			bestYield = yield
		}
	}

	if best == nil {
		if yieldRejected {
			return nil, rejectYieldFloor
		}
		return nil, rejectNoViableStrike
	}
	return best, ""
}

// strikeDistance ranks one candidate: delta distance to the lane target when
// the feed provides delta, strike distance to the lane-weighted target
// strike otherwise.
func strikeDistance(row *marketdata.ChainRow, targetStrike float64, lane config.LaneConfig) float64 {
	if row.Delta != nil {
		dist := *row.Delta - lane.TargetDelta
		if dist < 0 {
			dist = -dist
		}
		return dist
	}
	dist := row.Strike - targetStrike
	if dist < 0 {
		dist = -dist
	}
	if targetStrike > 0 {
		dist /= targetStrike
	}
	return dist
}
