package massive

import "time"

// Raw response envelopes. The feed is loose about key names across plan
// tiers, so optional fields are pointers and the boundary helpers below pick
// the first populated variant; nothing past this package ever sees a raw map.

type lastTradeResponse struct {
	Results *struct {
		Price        *float64 `json:"price"`
		P            *float64 `json:"p"`
		SIPTimestamp *float64 `json:"sip_timestamp"`
		T            *float64 `json:"t"`
	} `json:"results"`
	Status string `json:"status"`
}

type lastNBBOResponse struct {
	Results *struct {
		BidPrice     *float64 `json:"bid_price"`
		Bid          *float64 `json:"p"`
		AskPrice     *float64 `json:"ask_price"`
		Ask          *float64 `json:"P"`
		SIPTimestamp *float64 `json:"sip_timestamp"`
		T            *float64 `json:"t"`
	} `json:"results"`
	Status string `json:"status"`
}

type aggsResponse struct {
	Results []struct {
		Close     *float64 `json:"c"`
		Timestamp *float64 `json:"t"`
	} `json:"results"`
	Status string `json:"status"`
}

type chainSnapshotResponse struct {
	Results []chainSnapshotResult `json:"results"`
	NextURL string                `json:"next_url"`
	Status  string                `json:"status"`
}

type chainSnapshotResult struct {
	Details *struct {
		Ticker         string   `json:"ticker"`
		StrikePrice    *float64 `json:"strike_price"`
		ExpirationDate string   `json:"expiration_date"`
		ContractType   string   `json:"contract_type"`
	} `json:"details"`
	LastQuote *struct {
		Bid         *float64 `json:"bid"`
		Ask         *float64 `json:"ask"`
		Midpoint    *float64 `json:"midpoint"`
		LastUpdated *float64 `json:"last_updated"`
	} `json:"last_quote"`
	LastTrade *struct {
		Price *float64 `json:"price"`
	} `json:"last_trade"`
	Greeks *struct {
		Delta *float64 `json:"delta"`
	} `json:"greeks"`
	ImpliedVolatility *float64 `json:"implied_volatility"`
	OpenInterest      *int64   `json:"open_interest"`
	Day               *struct {
		Volume *float64 `json:"volume"`
	} `json:"day"`
}

type contractsResponse struct {
	Results []struct {
		Ticker         string   `json:"ticker"`
		StrikePrice    *float64 `json:"strike_price"`
		ExpirationDate string   `json:"expiration_date"`
		ContractType   string   `json:"contract_type"`
	} `json:"results"`
	NextURL string `json:"next_url"`
	Status  string `json:"status"`
}

// PriceQuote is a validated underlying price observation.
type PriceQuote struct {
	Price float64
	TS    time.Time
}

// ChainQuote is one validated per-strike call quote from a chain snapshot.
// Mid is (bid+ask)/2 when both legs are present, else the contract's last
// trade; it is never defaulted to anything else.
type ChainQuote struct {
	Contract     string
	Expiry       string
	Strike       float64
	Bid          *float64
	Ask          *float64
	Mid          *float64
	Last         *float64
	OpenInterest *int64
	IV           *float64
	Delta        *float64
}

func firstFloat(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// tsFromEpoch normalizes a nano/milli/second epoch into a time.Time. The
// feed mixes units across endpoints.
func tsFromEpoch(val *float64) time.Time {
	if val == nil || *val <= 0 {
		return time.Time{}
	}
	ts := *val
	switch {
	case ts > 1e15: // nanoseconds
		return time.Unix(0, int64(ts)).UTC()
	case ts > 1e12: // milliseconds
		return time.UnixMilli(int64(ts)).UTC()
	default: // seconds
		return time.Unix(int64(ts), 0).UTC()
	}
}

func normalizeChainResult(r chainSnapshotResult) (ChainQuote, bool) {
	if r.Details == nil || r.Details.StrikePrice == nil {
		return ChainQuote{}, false
	}
	if ct := r.Details.ContractType; ct != "" && ct != "call" {
		return ChainQuote{}, false
	}

	q := ChainQuote{
		Contract:     r.Details.Ticker,
		Expiry:       r.Details.ExpirationDate,
		Strike:       *r.Details.StrikePrice,
		IV:           r.ImpliedVolatility,
		OpenInterest: r.OpenInterest,
	}
	if r.LastQuote != nil {
		q.Bid = r.LastQuote.Bid
		q.Ask = r.LastQuote.Ask
		q.Mid = r.LastQuote.Midpoint
	}
	if r.LastTrade != nil {
		q.Last = r.LastTrade.Price
	}
	if r.Greeks != nil {
		q.Delta = r.Greeks.Delta
	}

	if q.Mid == nil {
		if q.Bid != nil && q.Ask != nil {
			mid := (*q.Bid + *q.Ask) / 2.0
			q.Mid = &mid
		} else if q.Last != nil {
			q.Mid = q.Last
		}
	}
	return q, true
}
