package universe

import "time"

// Entry is one watch-list symbol. Entries are created by the sync command and
// read by every pipeline stage; disabling keeps history while excluding the
// ticker from new runs.
type Entry struct {
	Ticker   string    `db:"ticker"`
	Category string    `db:"category"`
	Enabled  bool      `db:"enabled"`
	AddedAt  time.Time `db:"added_at"`
}

// Categories used by the lane-classification fallback when scorer metrics are
// missing.
const (
	CategoryETF      = "ETF"
	CategoryMegaTech = "MEGA_TECH"
	CategorySemis    = "SEMIS"
	CategoryBank     = "BANK"
	CategoryInfra    = "INFRA"
	CategoryFintech  = "FINTECH"
	CategoryGrowth   = "GROWTH"
	CategoryCrypto   = "CRYPTO"
	CategoryEV       = "EV"
	CategorySpec     = "SPEC"
)

// Default returns the built-in operator watch-list with categories.
func Default() []Entry {
	byCategory := map[string][]string{
		CategoryETF:      {"SPY", "QQQ", "DIA", "IWM", "XLF", "XLE", "XLK"},
		CategoryMegaTech: {"AAPL", "MSFT", "GOOG", "AMZN", "META", "NVDA"},
		CategorySemis:    {"TSM", "AVGO", "ASML", "TXN", "ARM", "MRVL"},
		CategoryBank:     {"BAC", "WFC"},
		CategoryInfra:    {"CSCO", "IBM"},
		CategoryFintech:  {"PYPL", "SOFI", "HOOD", "AFRM"},
		CategoryGrowth:   {"UBER", "SHOP", "PLTR"},
		CategoryCrypto:   {"COIN", "RIOT", "MARA"},
		CategoryEV:       {"TSLA", "RIVN"},
		CategorySpec:     {"CLOV"},
	}

	var entries []Entry
	for category, tickers := range byCategory {
		for _, t := range tickers {
			entries = append(entries, Entry{Ticker: t, Category: category, Enabled: true})
		}
	}
	return entries
}
