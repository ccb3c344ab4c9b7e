package massive

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"covertrack/pkg/errors"
)

// OCCContract is a decoded standard option contract identifier.
type OCCContract struct {
	Ticker string
	Expiry string // YYYY-MM-DD
	Right  string // C or P
	Strike float64
}

// EncodeOCC builds the compact contract symbol, e.g.
// ("SPY", "2025-12-19", "C", 650) -> "SPY251219C00650000".
func EncodeOCC(ticker, expiry, right string, strike float64) (string, error) {
	exp, err := time.Parse("2006-01-02", expiry)
	if err != nil {
		return "", errors.Wrapf(err, "bad expiry %q", expiry)
	}
	right = strings.ToUpper(strings.TrimSpace(right))
	if right != "C" && right != "P" {
		return "", errors.Newf("bad option right %q", right)
	}
	return fmt.Sprintf("%s%s%s%08d",
		strings.ToUpper(strings.TrimSpace(ticker)),
		exp.Format("060102"),
		right,
		int64(strike*1000+0.5),
	), nil
}

// ParseOCC decodes a contract symbol. A leading "O:" prefix is tolerated.
// Returns false when the symbol does not look like an option contract, which
// is how the ingest engine tells option bars from underlying bars.
func ParseOCC(sym string) (OCCContract, bool) {
	if idx := strings.Index(sym, "O:"); idx >= 0 {
		sym = sym[idx+2:]
	}
	// TICKER + YYMMDD + right + 8-digit strike
	if len(sym) < 16 {
		return OCCContract{}, false
	}

	tail := sym[len(sym)-15:]
	ticker := sym[:len(sym)-15]
	if ticker == "" || strings.ContainsAny(ticker, "0123456789") {
		return OCCContract{}, false
	}

	date := tail[:6]
	right := string(tail[6])
	strikeRaw := tail[7:]

	if right != "C" && right != "P" {
		return OCCContract{}, false
	}
	exp, err := time.Parse("060102", date)
	if err != nil {
		return OCCContract{}, false
	}
	milli, err := strconv.ParseInt(strikeRaw, 10, 64)
	if err != nil {
		return OCCContract{}, false
	}

	return OCCContract{
		Ticker: ticker,
		Expiry: exp.Format("2006-01-02"),
		Right:  right,
		Strike: float64(milli) / 1000.0,
	}, true
}
