package picker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covertrack/internal/adapters/config"
	"covertrack/internal/adapters/massive"
	"covertrack/internal/domain/pick"
	"covertrack/internal/domain/scores"
	"covertrack/internal/domain/universe"
	"covertrack/internal/resolver"
	"covertrack/internal/testsupport"
	"covertrack/pkg/errors"
)

type fakeAPI struct {
	prices map[string]float64
	chains map[string][]massive.ChainQuote
}

func (f *fakeAPI) LastTrade(_ context.Context, ticker string) (*massive.PriceQuote, error) {
	if p, ok := f.prices[ticker]; ok {
		return &massive.PriceQuote{Price: p, TS: time.Now()}, nil
	}
	return nil, errors.ErrDataMissing
}

func (f *fakeAPI) LastNBBO(context.Context, string) (*massive.PriceQuote, error) {
	return nil, errors.ErrDataMissing
}

func (f *fakeAPI) PrevClose(context.Context, string) (*massive.PriceQuote, error) {
	return nil, errors.ErrDataMissing
}

func (f *fakeAPI) ChainSnapshot(_ context.Context, underlying, _ string) ([]massive.ChainQuote, error) {
	return f.chains[underlying], nil
}

func (f *fakeAPI) Expirations(context.Context, string, string) ([]string, error) {
	return nil, nil
}

func defaultPickerConfig() config.PickerConfig {
	return config.PickerConfig{
		TopN:                    10,
		ConservativeMaxVol:      0.35,
		ConservativeMinSuit:     0.55,
		ConservativeMaxDrawdown: 0.35,
		MidMaxVol:               0.60,
		MidMinSuit:              0.35,
		MidMaxDrawdown:          0.50,
		FallbackMidMaxVol:       0.40,
		ConservativeMinYield:    0.004,
		MidMinYield:             0.008,
		SpeculativeMinYield:     0.012,
		ConservativeMaxSpread:   0.15,
		MidMaxSpread:            0.20,
		SpeculativeMaxSpread:    0.25,
		YieldWeight:             40,
		SuitWeight:              0.3,
		RiskWeight:              0.2,
		RegimeWeight:            0.1,
		DownsideWeight:          0.5,
	}
}

func ptr(v float64) *float64 { return &v }

type fixture struct {
	picker *Picker
	picks  *testsupport.MemPicks
	scores *testsupport.MemScores
	uni    *testsupport.MemUniverse
}

func newFixture(t *testing.T, api *fakeAPI) *fixture {
	t.Helper()
	store := testsupport.NewMemMarketData()
	res := resolver.New(config.ResolverConfig{
		PriceMaxAge: 15 * time.Minute,
		ChainMaxAge: 60 * time.Minute,
	}, api, store)

	f := &fixture{
		picks:  testsupport.NewMemPicks(),
		scores: testsupport.NewMemScores(),
		uni:    testsupport.NewMemUniverse(),
	}
	f.picker = New(defaultPickerConfig(), res, f.uni, f.scores, f.picks)
	return f
}

func conservativeScores(ticker string) scores.Row {
	return scores.Row{
		Ticker:      ticker,
		TS:          time.Now(),
		Suitability: ptr(0.60),
		AnnVol:      ptr(0.30),
		MaxDrawdown: ptr(0.20),
		HistoryDays: 250,
	}
}

func TestRunComputesPremiumEconomics(t *testing.T) {
	api := &fakeAPI{
		prices: map[string]float64{"ACME": 150.00},
		chains: map[string][]massive.ChainQuote{
			"ACME": {{
				Contract: "ACME250905C00155000", Strike: 155,
				Bid: ptr(2.00), Ask: ptr(2.20), Mid: ptr(2.10),
			}},
		},
	}
	f := newFixture(t, api)
	f.uni.Upsert(context.Background(), &universe.Entry{Ticker: "ACME", Category: universe.CategoryMegaTech, Enabled: true})
	f.scores.Put(conservativeScores("ACME"))

	runID, err := f.picker.Run(context.Background())
	require.NoError(t, err)

	picks, err := f.picks.PicksByRun(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, picks, 1)

	p := picks[0]
	assert.Equal(t, pick.LaneConservative, p.Lane)
	assert.Equal(t, 1, p.Rank)
	assert.Equal(t, 155.0, p.Strike)
	assert.Equal(t, 2.00, p.Bid)
	assert.Equal(t, 2.20, p.Ask)
	assert.InDelta(t, 2.10, p.Mid, 1e-9)
	assert.InDelta(t, 210.0, p.Premium100, 1e-9)
	assert.InDelta(t, 15000.0, p.Pack100Cost, 1e-9)
	assert.InDelta(t, 0.014, p.PremYield, 1e-9)
	assert.Equal(t, "massive_rest:last_trade", p.PriceSource)
	assert.Equal(t, "massive_rest:chain_snapshot", p.ChainSource)

	misses, err := f.picks.MissesByRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Empty(t, misses)
}

func TestRunLogsChainMissAndContinues(t *testing.T) {
	api := &fakeAPI{
		prices: map[string]float64{"ACME": 150.00, "EMPT": 80.00},
		chains: map[string][]massive.ChainQuote{
			"ACME": {{Contract: "ACME250905C00155000", Strike: 155, Bid: ptr(2.00), Ask: ptr(2.20), Mid: ptr(2.10)}},
		},
	}
	f := newFixture(t, api)
	f.uni.Upsert(context.Background(), &universe.Entry{Ticker: "ACME", Category: universe.CategoryMegaTech, Enabled: true})
	f.uni.Upsert(context.Background(), &universe.Entry{Ticker: "EMPT", Category: universe.CategoryMegaTech, Enabled: true})
	f.scores.Put(conservativeScores("ACME"))
	f.scores.Put(conservativeScores("EMPT"))

	runID, err := f.picker.Run(context.Background())
	require.NoError(t, err)

	picks, err := f.picks.PicksByRun(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, picks, 1)
	assert.Equal(t, "ACME", picks[0].Ticker)

	misses, err := f.picks.MissesByRun(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, misses, 1)
	assert.Equal(t, "EMPT", misses[0].Ticker)
	assert.Equal(t, pick.StageChain, misses[0].Stage)
	assert.Contains(t, misses[0].Detail, "massive_rest:chain_snapshot")
}

func TestRunLogsPriceMiss(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	f.uni.Upsert(context.Background(), &universe.Entry{Ticker: "GHST", Category: universe.CategoryGrowth, Enabled: true})

	runID, err := f.picker.Run(context.Background())
	require.NoError(t, err)

	misses, err := f.picks.MissesByRun(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, misses, 1)
	assert.Equal(t, pick.StagePrice, misses[0].Stage)
	assert.Equal(t, "unresolved", misses[0].Reason)
}

func TestRunRejectsYieldBelowFloor(t *testing.T) {
	// Speculative lane floor is 0.012; mid 0.50 on an 80 spot yields 0.00625.
	api := &fakeAPI{
		prices: map[string]float64{"RIOT": 80.00},
		chains: map[string][]massive.ChainQuote{
			"RIOT": {{Contract: "RIOT250905C00085000", Strike: 85, Bid: ptr(0.45), Ask: ptr(0.55), Mid: ptr(0.50)}},
		},
	}
	f := newFixture(t, api)
	f.uni.Upsert(context.Background(), &universe.Entry{Ticker: "RIOT", Category: universe.CategoryCrypto, Enabled: true})

	runID, err := f.picker.Run(context.Background())
	require.NoError(t, err)

	picks, err := f.picks.PicksByRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Empty(t, picks)

	misses, err := f.picks.MissesByRun(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, misses, 1)
	assert.Equal(t, "yield_below_floor", misses[0].Reason)
	assert.Equal(t, pick.StageSelection, misses[0].Stage)
}

func TestRunAssignsGlobalRanks(t *testing.T) {
	api := &fakeAPI{
		prices: map[string]float64{"AAAA": 100.00, "BBBB": 100.00, "RIOT": 80.00},
		chains: map[string][]massive.ChainQuote{
			"AAAA": {{Contract: "AAAA250905C00105000", Strike: 105, Bid: ptr(0.95), Ask: ptr(1.05), Mid: ptr(1.00)}},
			"BBBB": {{Contract: "BBBB250905C00105000", Strike: 105, Bid: ptr(1.90), Ask: ptr(2.10), Mid: ptr(2.00)}},
			"RIOT": {{Contract: "RIOT250905C00085000", Strike: 85, Bid: ptr(1.40), Ask: ptr(1.60), Mid: ptr(1.50)}},
		},
	}
	f := newFixture(t, api)
	for _, ticker := range []string{"AAAA", "BBBB"} {
		f.uni.Upsert(context.Background(), &universe.Entry{Ticker: ticker, Category: universe.CategoryMegaTech, Enabled: true})
		f.scores.Put(conservativeScores(ticker))
	}
	f.uni.Upsert(context.Background(), &universe.Entry{Ticker: "RIOT", Category: universe.CategoryCrypto, Enabled: true})

	runID, err := f.picker.Run(context.Background())
	require.NoError(t, err)

	picks, err := f.picks.PicksByRun(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, picks, 3)

	// One ordering per run across lanes: ranks are unique, never restarting
	// at 1 per lane, and follow the final score.
	assert.Equal(t, "BBBB", picks[0].Ticker)
	assert.Equal(t, pick.LaneConservative, picks[0].Lane)
	assert.Equal(t, 1, picks[0].Rank)
	assert.Equal(t, "RIOT", picks[1].Ticker)
	assert.Equal(t, pick.LaneSpeculative, picks[1].Lane)
	assert.Equal(t, 2, picks[1].Rank)
	assert.Equal(t, "AAAA", picks[2].Ticker)
	assert.Equal(t, 3, picks[2].Rank)
	assert.Greater(t, picks[0].FinalScore, picks[1].FinalScore)
	assert.Greater(t, picks[1].FinalScore, picks[2].FinalScore)
}

func TestRunSkipsUnquotedChain(t *testing.T) {
	// Mid-only rows, the shape a bar bootstrap produces, must not reach the
	// pick table with zero bid/ask.
	api := &fakeAPI{
		prices: map[string]float64{"ACME": 150.00},
		chains: map[string][]massive.ChainQuote{
			"ACME": {{Contract: "ACME250905C00155000", Strike: 155, Mid: ptr(2.10)}},
		},
	}
	f := newFixture(t, api)
	f.uni.Upsert(context.Background(), &universe.Entry{Ticker: "ACME", Category: universe.CategoryMegaTech, Enabled: true})
	f.scores.Put(conservativeScores("ACME"))

	runID, err := f.picker.Run(context.Background())
	require.NoError(t, err)

	picks, err := f.picks.PicksByRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Empty(t, picks)

	misses, err := f.picks.MissesByRun(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, misses, 1)
	assert.Equal(t, pick.StageSelection, misses[0].Stage)
	assert.Equal(t, "no_viable_strike", misses[0].Reason)
}

func TestRunRejectsPremiumEqualToPrice(t *testing.T) {
	// mid = price/100 is a misplaced decimal: premium_100 lands exactly on
	// the underlying price and must not persist.
	api := &fakeAPI{
		prices: map[string]float64{"ACME": 210.00},
		chains: map[string][]massive.ChainQuote{
			"ACME": {{Contract: "ACME250905C00215000", Strike: 215, Bid: ptr(2.00), Ask: ptr(2.20), Mid: ptr(2.10)}},
		},
	}
	f := newFixture(t, api)
	f.uni.Upsert(context.Background(), &universe.Entry{Ticker: "ACME", Category: universe.CategoryMegaTech, Enabled: true})
	f.scores.Put(conservativeScores("ACME"))

	runID, err := f.picker.Run(context.Background())
	require.NoError(t, err)

	picks, err := f.picks.PicksByRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Empty(t, picks)

	misses, err := f.picks.MissesByRun(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, misses, 1)
	assert.Equal(t, pick.StageMath, misses[0].Stage)
	assert.Equal(t, "premium_equals_price", misses[0].Reason)
	assert.Equal(t, errors.ErrDataInvalid.Error(), misses[0].Detail)
}
