package marketdata

import "time"

// CachedPrice is the latest known underlying price for a ticker. Source is
// never empty while Price is set: every write path stamps the tier that
// produced the value.
type CachedPrice struct {
	Ticker string    `db:"ticker"`
	Price  float64   `db:"price"`
	TS     time.Time `db:"ts"`
	Source string    `db:"source"`
}

// ChainRow is one normalized per-strike call quote. Optional feed fields are
// pointers so a missing key stays an explicit nil instead of a silent zero.
// Mid is derived from bid/ask or the last trade, never from the underlying.
type ChainRow struct {
	Ticker       string    `db:"ticker"`
	Expiry       string    `db:"expiry"` // YYYY-MM-DD
	Strike       float64   `db:"strike"`
	Contract     string    `db:"contract"`
	Bid          *float64  `db:"bid"`
	Ask          *float64  `db:"ask"`
	Mid          *float64  `db:"mid"`
	Last         *float64  `db:"last"`
	OpenInterest *int64    `db:"oi"`
	IV           *float64  `db:"iv"`
	Delta        *float64  `db:"delta"`
	AsOf         time.Time `db:"as_of"`
	Source       string    `db:"source"`
}

// SpreadPct returns (ask-bid)/mid, or false when any leg is missing.
func (r *ChainRow) SpreadPct() (float64, bool) {
	if r.Bid == nil || r.Ask == nil || r.Mid == nil || *r.Mid <= 0 {
		return 0, false
	}
	spread := (*r.Ask - *r.Bid) / *r.Mid
	if spread < 0 {
		spread = 0
	}
	return spread, true
}

// MinuteBar is a rolling per-minute aggregate for an underlying.
type MinuteBar struct {
	Ticker string    `db:"ticker"`
	TS     time.Time `db:"ts"`
	Open   float64   `db:"open"`
	High   float64   `db:"high"`
	Low    float64   `db:"low"`
	Close  float64   `db:"close"`
	Volume float64   `db:"volume"`
}

// OptionBar is the last aggregate close seen for one option contract. These
// feed the bar-bootstrap chain fallback when no live snapshot is available.
type OptionBar struct {
	Contract string    `db:"contract"`
	Ticker   string    `db:"ticker"`
	Expiry   string    `db:"expiry"`
	Strike   float64   `db:"strike"`
	Close    float64   `db:"close"`
	TS       time.Time `db:"ts"`
}
