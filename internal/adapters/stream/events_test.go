package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessageSingleObject(t *testing.T) {
	events, err := ParseMessage([]byte(`{"ev":"status","status":"auth_success","message":"authenticated"}`))
	require.NoError(t, err)
	require.Len(t, events, 1)

	st, ok := events[0].(StatusEvent)
	require.True(t, ok)
	assert.Equal(t, StatusAuthSuccess, st.Status)
}

func TestParseMessageBatch(t *testing.T) {
	frame := `[
		{"ev":"status","status":"connected"},
		{"ev":"AM","sym":"SPY","o":644.0,"h":645.5,"l":643.8,"c":645.1,"v":120000,"s":1735000000000,"e":1735000060000},
		{"ev":"T","sym":"AAPL","p":232.41,"s":100,"t":1735000000123},
		{"ev":"Q","sym":"AAPL","bp":232.40,"ap":232.42,"t":1735000000456}
	]`

	events, err := ParseMessage([]byte(frame))
	require.NoError(t, err)
	require.Len(t, events, 4)

	bar, ok := events[1].(AggregateBar)
	require.True(t, ok)
	assert.Equal(t, "SPY", bar.Symbol)
	require.NotNil(t, bar.Close)
	assert.Equal(t, 645.1, *bar.Close)
	assert.Equal(t, int64(1735000000000), bar.Start)

	tick, ok := events[2].(TradeTick)
	require.True(t, ok)
	require.NotNil(t, tick.Price)
	assert.Equal(t, 232.41, *tick.Price)

	quote, ok := events[3].(QuoteTick)
	require.True(t, ok)
	require.NotNil(t, quote.BidPrice)
	assert.Equal(t, 232.40, *quote.BidPrice)
}

func TestParseMessageSkipsUnknownKinds(t *testing.T) {
	events, err := ParseMessage([]byte(`[{"ev":"LULD","sym":"SPY"},{"ev":"T","sym":"SPY","p":645.0,"t":1}]`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, KindTrade, events[0].Kind())
}

func TestParseMessageEmptyAndBad(t *testing.T) {
	events, err := ParseMessage([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = ParseMessage([]byte(`{"ev":`))
	assert.Error(t, err)
}
