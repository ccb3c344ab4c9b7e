package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covertrack/internal/adapters/config"
)

func testTriggerConfig() config.TriggerConfig {
	return config.TriggerConfig{
		NearStrikePct: 0.03,
		RapidUpPct:    0.05,
		Cooldown:      300 * time.Second,
	}
}

func newTestBridge(t *testing.T) (*TriggerBridge, *[]Alert, *time.Time) {
	t.Helper()
	var alerts []Alert
	bridge := NewTriggerBridge(testTriggerConfig(), func(a Alert) {
		alerts = append(alerts, a)
	})
	now := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
	bridge.clock = func() time.Time { return now }
	return bridge, &alerts, &now
}

func TestNearStrikeFires(t *testing.T) {
	bridge, alerts, _ := newTestBridge(t)
	bridge.Watch("SPY", 650)

	// 3% band around 650 starts at 630.50.
	bridge.Observe("SPY", 629.00, time.Now())
	assert.Empty(t, *alerts)

	bridge.Observe("SPY", 631.00, time.Now())
	require.Len(t, *alerts, 1)
	assert.Equal(t, ConditionNearStrike, (*alerts)[0].Condition)
	assert.Equal(t, 650.0, (*alerts)[0].Strike)
}

func TestRapidUpFires(t *testing.T) {
	bridge, alerts, _ := newTestBridge(t)

	bridge.Observe("HOOD", 30.00, time.Now())
	bridge.Observe("HOOD", 31.20, time.Now()) // +4%, under threshold
	assert.Empty(t, *alerts)

	bridge.Observe("HOOD", 32.80, time.Now()) // +5.1% from 31.20
	require.Len(t, *alerts, 1)
	assert.Equal(t, ConditionRapidUp, (*alerts)[0].Condition)
}

func TestCooldownSuppressesRepeatFires(t *testing.T) {
	bridge, alerts, now := newTestBridge(t)
	bridge.Watch("SPY", 650)

	bridge.Observe("SPY", 645, time.Now())
	bridge.Observe("SPY", 646, time.Now())
	bridge.Observe("SPY", 647, time.Now())
	assert.Len(t, *alerts, 1)

	// Past the cooldown the same condition fires again.
	*now = now.Add(301 * time.Second)
	bridge.Observe("SPY", 648, time.Now())
	assert.Len(t, *alerts, 2)
}

func TestCooldownIsPerCondition(t *testing.T) {
	bridge, alerts, _ := newTestBridge(t)
	bridge.Watch("SPY", 650)

	bridge.Observe("SPY", 600, time.Now())
	bridge.Observe("SPY", 645, time.Now()) // near strike and +7.5%
	require.Len(t, *alerts, 2)

	conditions := map[string]bool{}
	for _, a := range *alerts {
		conditions[a.Condition] = true
	}
	assert.True(t, conditions[ConditionNearStrike])
	assert.True(t, conditions[ConditionRapidUp])
}

func TestUnwatchDropsState(t *testing.T) {
	bridge, alerts, _ := newTestBridge(t)
	bridge.Watch("SPY", 650)
	bridge.Unwatch("SPY")

	bridge.Observe("SPY", 649, time.Now())
	assert.Empty(t, *alerts)
}
