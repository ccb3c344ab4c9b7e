package picker

import (
	"covertrack/internal/adapters/config"
	"covertrack/internal/domain/pick"
	"covertrack/internal/domain/scores"
	"covertrack/internal/domain/universe"
)

// Delta bands, target deltas and strike weights per lane. Yield floors and
// spread caps come from config so operators can tune them without a deploy.
var laneDeltas = map[pick.Lane]struct {
	low, high, target, weight float64
}{
	pick.LaneConservative: {low: 0.15, high: 0.35, target: 0.25, weight: 1.0},
	pick.LaneMid:          {low: 0.20, high: 0.40, target: 0.30, weight: 0.9},
	pick.LaneSpeculative:  {low: 0.25, high: 0.45, target: 0.35, weight: 0.8},
}

// laneParams assembles the full parameter set for one lane.
func laneParams(cfg config.PickerConfig, lane pick.Lane) config.LaneConfig {
	d := laneDeltas[lane]
	params := config.LaneConfig{
		DeltaLow:     d.low,
		DeltaHigh:    d.high,
		TargetDelta:  d.target,
		StrikeWeight: d.weight,
	}
	switch lane {
	case pick.LaneConservative:
		params.MinYield = cfg.ConservativeMinYield
		params.MaxSpreadPct = cfg.ConservativeMaxSpread
	case pick.LaneMid:
		params.MinYield = cfg.MidMinYield
		params.MaxSpreadPct = cfg.MidMaxSpread
	default:
		params.MinYield = cfg.SpeculativeMinYield
		params.MaxSpreadPct = cfg.SpeculativeMaxSpread
	}
	return params
}

// classifyLane buckets a ticker by scorer metrics, falling back to the
// watch-list category when metrics are missing. Cutoffs nest: a ticker that
// clears the conservative gate never lands in a riskier lane.
func classifyLane(cfg config.PickerConfig, entry universe.Entry, row *scores.Row) pick.Lane {
	if row.HasLaneMetrics() {
		vol, suit, dd := *row.AnnVol, *row.Suitability, *row.MaxDrawdown
		switch {
		case vol <= cfg.ConservativeMaxVol && suit >= cfg.ConservativeMinSuit && dd <= cfg.ConservativeMaxDrawdown:
			return pick.LaneConservative
		case vol <= cfg.MidMaxVol && suit >= cfg.MidMinSuit && dd <= cfg.MidMaxDrawdown:
			return pick.LaneMid
		default:
			return pick.LaneSpeculative
		}
	}

	// Category fallback, with a partial vol check when the scorer produced
	// volatility but nothing else.
	switch entry.Category {
	case universe.CategoryETF, universe.CategoryMegaTech:
		if row != nil && row.AnnVol != nil && *row.AnnVol > cfg.FallbackMidMaxVol {
			return pick.LaneMid
		}
		return pick.LaneConservative
	case universe.CategoryCrypto, universe.CategoryEV, universe.CategorySpec:
		return pick.LaneSpeculative
	default:
		return pick.LaneMid
	}
}
