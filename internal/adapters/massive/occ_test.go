package massive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeOCC(t *testing.T) {
	sym, err := EncodeOCC("SPY", "2025-12-19", "C", 650)
	require.NoError(t, err)
	assert.Equal(t, "SPY251219C00650000", sym)

	sym, err = EncodeOCC("aapl", "2026-01-16", "c", 232.5)
	require.NoError(t, err)
	assert.Equal(t, "AAPL260116C00232500", sym)
}

func TestEncodeOCCRejectsBadInput(t *testing.T) {
	_, err := EncodeOCC("SPY", "12/19/2025", "C", 650)
	assert.Error(t, err)

	_, err = EncodeOCC("SPY", "2025-12-19", "X", 650)
	assert.Error(t, err)
}

func TestParseOCCRoundTrip(t *testing.T) {
	cases := []struct {
		ticker string
		expiry string
		right  string
		strike float64
	}{
		{"SPY", "2025-12-19", "C", 650},
		{"AAPL", "2026-01-16", "C", 232.5},
		{"HOOD", "2025-09-05", "P", 27},
		{"TSM", "2026-03-20", "C", 1000},
	}

	for _, tc := range cases {
		sym, err := EncodeOCC(tc.ticker, tc.expiry, tc.right, tc.strike)
		require.NoError(t, err)

		occ, ok := ParseOCC(sym)
		require.True(t, ok, sym)
		assert.Equal(t, tc.ticker, occ.Ticker)
		assert.Equal(t, tc.expiry, occ.Expiry)
		assert.Equal(t, tc.right, occ.Right)
		assert.Equal(t, tc.strike, occ.Strike)
	}
}

func TestParseOCCToleratesPrefix(t *testing.T) {
	occ, ok := ParseOCC("O:SPY251219C00650000")
	require.True(t, ok)
	assert.Equal(t, "SPY", occ.Ticker)
	assert.Equal(t, 650.0, occ.Strike)
}

func TestParseOCCRejectsPlainSymbols(t *testing.T) {
	for _, sym := range []string{"SPY", "AAPL", "", "BRK.B", "SPY251219X00650000"} {
		_, ok := ParseOCC(sym)
		assert.False(t, ok, sym)
	}
}
