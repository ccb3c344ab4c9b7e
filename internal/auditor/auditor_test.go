package auditor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covertrack/internal/domain/audit"
	"covertrack/internal/domain/pick"
	"covertrack/internal/testsupport"
	"covertrack/pkg/errors"
)

func consistentPick(runID uuid.UUID, ticker string) pick.WeeklyPick {
	return pick.WeeklyPick{
		RunID:       runID,
		RunTS:       time.Now(),
		Ticker:      ticker,
		Lane:        pick.LaneConservative,
		Rank:        1,
		Price:       150.00,
		PriceSource: "massive_rest:last_trade",
		Expiry:      "2025-09-05",
		Strike:      155,
		Bid:         2.00,
		Ask:         2.20,
		Mid:         2.10,
		ChainSource: "massive_rest:chain_snapshot",
		Premium100:  210.00,
		Pack100Cost: 15000.00,
		PremYield:   0.014,
	}
}

func TestConsistentRunPasses(t *testing.T) {
	picks := testsupport.NewMemPicks()
	findings := testsupport.NewMemAudit()
	runID := uuid.New()
	require.NoError(t, picks.SavePicks(context.Background(), []pick.WeeklyPick{consistentPick(runID, "ACME")}))

	summary, err := New(picks, findings).RunFor(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Checked)
	assert.Equal(t, 0, summary.Failed)

	recorded, err := findings.ByRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Len(t, recorded, 5)
	for _, f := range recorded {
		assert.True(t, f.Passed, f.Field)
	}
}

func TestDriftedPremiumFails(t *testing.T) {
	picks := testsupport.NewMemPicks()
	findings := testsupport.NewMemAudit()
	runID := uuid.New()

	p := consistentPick(runID, "ACME")
	p.Premium100 = 250.00 // mid says 210
	require.NoError(t, picks.SavePicks(context.Background(), []pick.WeeklyPick{p}))

	summary, err := New(picks, findings).RunFor(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	recorded, err := findings.ByRun(context.Background(), runID)
	require.NoError(t, err)
	var premium *audit.Finding
	for i := range recorded {
		if recorded[i].Field == audit.FieldPremium {
			premium = &recorded[i]
		}
	}
	require.NotNil(t, premium)
	assert.False(t, premium.Passed)
}

func TestPlaceholderPremiumIsFlagged(t *testing.T) {
	picks := testsupport.NewMemPicks()
	findings := testsupport.NewMemAudit()
	runID := uuid.New()

	// A spot price persisted where the option mid belongs makes the premium
	// equal the pack cost.
	p := consistentPick(runID, "ACME")
	p.Mid = 150.00
	p.Premium100 = 15000.00
	p.PremYield = 1.0
	require.NoError(t, picks.SavePicks(context.Background(), []pick.WeeklyPick{p}))

	summary, err := New(picks, findings).RunFor(context.Background(), runID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, summary.Failed, 1)

	recorded, err := findings.ByRun(context.Background(), runID)
	require.NoError(t, err)
	var placeholder *audit.Finding
	for i := range recorded {
		if recorded[i].Field == audit.FieldPlaceholder {
			placeholder = &recorded[i]
		}
	}
	require.NotNil(t, placeholder)
	assert.False(t, placeholder.Passed)
}

func TestPremiumEqualToPriceIsFlagged(t *testing.T) {
	picks := testsupport.NewMemPicks()
	findings := testsupport.NewMemAudit()
	runID := uuid.New()

	// mid = price/100: the economics recompute cleanly but premium_100 lands
	// exactly on the underlying price.
	p := consistentPick(runID, "ACME")
	p.Price = 210.00
	p.Strike = 215
	p.Mid = 2.10
	p.Premium100 = 210.00
	p.Pack100Cost = 21000.00
	p.PremYield = 0.01
	require.NoError(t, picks.SavePicks(context.Background(), []pick.WeeklyPick{p}))

	summary, err := New(picks, findings).RunFor(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	recorded, err := findings.ByRun(context.Background(), runID)
	require.NoError(t, err)
	var placeholder *audit.Finding
	for i := range recorded {
		if recorded[i].Field == audit.FieldPlaceholder {
			placeholder = &recorded[i]
		}
	}
	require.NotNil(t, placeholder)
	assert.False(t, placeholder.Passed)
}

func TestMissingSourceTagFails(t *testing.T) {
	picks := testsupport.NewMemPicks()
	findings := testsupport.NewMemAudit()
	runID := uuid.New()

	p := consistentPick(runID, "ACME")
	p.ChainSource = ""
	require.NoError(t, picks.SavePicks(context.Background(), []pick.WeeklyPick{p}))

	summary, err := New(picks, findings).RunFor(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
}

func TestEmptyRunIsAnError(t *testing.T) {
	picks := testsupport.NewMemPicks()
	findings := testsupport.NewMemAudit()

	_, err := New(picks, findings).RunFor(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, errors.ErrNoPicks))
}
