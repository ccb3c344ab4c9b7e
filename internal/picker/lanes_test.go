package picker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"covertrack/internal/domain/pick"
	"covertrack/internal/domain/scores"
	"covertrack/internal/domain/universe"
)

func scoresRow(suit, vol, dd float64) *scores.Row {
	return &scores.Row{Suitability: ptr(suit), AnnVol: ptr(vol), MaxDrawdown: ptr(dd)}
}

func TestClassifyLaneByMetrics(t *testing.T) {
	cfg := defaultPickerConfig()
	entry := universe.Entry{Ticker: "X", Category: universe.CategoryGrowth}

	cases := []struct {
		name string
		row  *scores.Row
		want pick.Lane
	}{
		{"clears conservative gate", scoresRow(0.60, 0.30, 0.20), pick.LaneConservative},
		{"vol pushes to mid", scoresRow(0.60, 0.45, 0.20), pick.LaneMid},
		{"suitability pushes to mid", scoresRow(0.40, 0.30, 0.20), pick.LaneMid},
		{"drawdown pushes to mid", scoresRow(0.60, 0.30, 0.40), pick.LaneMid},
		{"everything hot is speculative", scoresRow(0.20, 0.80, 0.60), pick.LaneSpeculative},
		{"boundary values stay conservative", scoresRow(0.55, 0.35, 0.35), pick.LaneConservative},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyLane(cfg, entry, tc.row), tc.name)
	}
}

func TestClassifyLaneCategoryFallback(t *testing.T) {
	cfg := defaultPickerConfig()

	cases := []struct {
		category string
		want     pick.Lane
	}{
		{universe.CategoryETF, pick.LaneConservative},
		{universe.CategoryMegaTech, pick.LaneConservative},
		{universe.CategoryBank, pick.LaneMid},
		{universe.CategoryGrowth, pick.LaneMid},
		{universe.CategoryCrypto, pick.LaneSpeculative},
		{universe.CategoryEV, pick.LaneSpeculative},
		{universe.CategorySpec, pick.LaneSpeculative},
	}
	for _, tc := range cases {
		entry := universe.Entry{Ticker: "X", Category: tc.category}
		assert.Equal(t, tc.want, classifyLane(cfg, entry, nil), tc.category)
	}
}

func TestClassifyLaneFallbackVolCheck(t *testing.T) {
	cfg := defaultPickerConfig()
	entry := universe.Entry{Ticker: "SPY", Category: universe.CategoryETF}

	// Partial scorer output: volatility only. A hot ETF demotes to mid.
	hot := &scores.Row{AnnVol: ptr(0.55)}
	assert.Equal(t, pick.LaneMid, classifyLane(cfg, entry, hot))

	calm := &scores.Row{AnnVol: ptr(0.20)}
	assert.Equal(t, pick.LaneConservative, classifyLane(cfg, entry, calm))
}

func TestLaneParams(t *testing.T) {
	cfg := defaultPickerConfig()

	conservative := laneParams(cfg, pick.LaneConservative)
	assert.Equal(t, 0.004, conservative.MinYield)
	assert.Equal(t, 0.15, conservative.MaxSpreadPct)
	assert.Equal(t, 0.25, conservative.TargetDelta)
	assert.Equal(t, 1.0, conservative.StrikeWeight)

	speculative := laneParams(cfg, pick.LaneSpeculative)
	assert.Equal(t, 0.012, speculative.MinYield)
	assert.Equal(t, 0.25, speculative.MaxSpreadPct)
	assert.Equal(t, 0.8, speculative.StrikeWeight)
}
