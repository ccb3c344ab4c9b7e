package massive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/time/rate"

	"covertrack/internal/adapters/config"
	"covertrack/pkg/errors"
	"covertrack/pkg/logger"
)

const maxPages = 50

// Client is a typed REST client for the Massive market-data API. A single
// process-wide rate limiter gates every outbound call so the whole pipeline
// stays inside the provider quota regardless of which stage is calling.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewClient creates a REST client. cfg.RESTInterval is the enforced minimum
// gap between calls.
func NewClient(cfg config.MassiveConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.RESTBase, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: rate.NewLimiter(rate.Every(cfg.RESTInterval), 1),
		log:     logger.Get().With("component", "massive_rest"),
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rest pacing wait")
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	sep := "?"
	if strings.Contains(path, "?") { // pagination paths carry their own query
		sep = "&"
	}
	endpoint := c.baseURL + path + sep + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}

	c.log.Debugf("GET %s", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return errors.Wrapf(errors.ErrRateLimited, "GET %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Newf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

// LastTrade returns the most recent trade price for a ticker.
func (c *Client) LastTrade(ctx context.Context, ticker string) (*PriceQuote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	var resp lastTradeResponse
	if err := c.get(ctx, "/v2/last/trade/"+ticker, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, errors.Wrapf(errors.ErrDataMissing, "last trade %s", ticker)
	}

	price := firstFloat(resp.Results.Price, resp.Results.P)
	if price == nil {
		return nil, errors.Wrapf(errors.ErrDataMissing, "last trade %s: no price field", ticker)
	}
	return &PriceQuote{
		Price: *price,
		TS:    tsFromEpoch(firstFloat(resp.Results.SIPTimestamp, resp.Results.T)),
	}, nil
}

// LastNBBO returns the best bid/ask midpoint for a ticker.
func (c *Client) LastNBBO(ctx context.Context, ticker string) (*PriceQuote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	var resp lastNBBOResponse
	if err := c.get(ctx, "/v2/last/nbbo/"+ticker, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, errors.Wrapf(errors.ErrDataMissing, "nbbo %s", ticker)
	}

	bid := firstFloat(resp.Results.BidPrice, resp.Results.Bid)
	ask := firstFloat(resp.Results.AskPrice, resp.Results.Ask)
	if bid == nil || ask == nil {
		return nil, errors.Wrapf(errors.ErrDataMissing, "nbbo %s: missing bid/ask", ticker)
	}
	return &PriceQuote{
		Price: (*bid + *ask) / 2.0,
		TS:    tsFromEpoch(firstFloat(resp.Results.SIPTimestamp, resp.Results.T)),
	}, nil
}

// PrevClose returns the previous aggregate close for a ticker. This is the
// degraded last tier of price resolution on plans without realtime quotes.
func (c *Client) PrevClose(ctx context.Context, ticker string) (*PriceQuote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	var resp aggsResponse
	if err := c.get(ctx, "/v2/aggs/ticker/"+ticker+"/prev", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 || resp.Results[0].Close == nil {
		return nil, errors.Wrapf(errors.ErrDataMissing, "prev close %s", ticker)
	}
	return &PriceQuote{
		Price: *resp.Results[0].Close,
		TS:    tsFromEpoch(resp.Results[0].Timestamp),
	}, nil
}

// ChainSnapshot returns normalized call quotes for one underlying/expiration.
func (c *Client) ChainSnapshot(ctx context.Context, underlying, expiry string) ([]ChainQuote, error) {
	underlying = strings.ToUpper(strings.TrimSpace(underlying))

	params := url.Values{}
	params.Set("expiration_date", expiry)
	params.Set("contract_type", "call")
	params.Set("limit", "250")

	var resp chainSnapshotResponse
	if err := c.get(ctx, "/v3/snapshot/options/"+underlying, params, &resp); err != nil {
		return nil, err
	}

	var quotes []ChainQuote
	for _, r := range resp.Results {
		q, ok := normalizeChainResult(r)
		if !ok {
			continue
		}
		if q.Expiry != "" && q.Expiry != expiry {
			continue
		}
		quotes = append(quotes, q)
	}

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Strike < quotes[j].Strike })
	return quotes, nil
}

// Expirations lists reference-data call expirations for an underlying on or
// after fromDate, ascending. Paginates through next_url.
func (c *Client) Expirations(ctx context.Context, underlying, fromDate string) ([]string, error) {
	underlying = strings.ToUpper(strings.TrimSpace(underlying))

	params := url.Values{}
	params.Set("underlying_ticker", underlying)
	params.Set("contract_type", "call")
	params.Set("expiration_date.gte", fromDate)
	params.Set("limit", "1000")

	seen := make(map[string]struct{})
	path := "/v3/reference/options/contracts"

	for page := 0; page < maxPages; page++ {
		var resp contractsResponse
		if err := c.get(ctx, path, params, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Results {
			if r.ExpirationDate != "" {
				seen[r.ExpirationDate] = struct{}{}
			}
		}
		if resp.NextURL == "" {
			break
		}
		next, err := nextPath(resp.NextURL)
		if err != nil {
			break
		}
		path = next
		params = url.Values{} // next_url carries its own query
	}

	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

// nextPath extracts the request path+query from a full next_url.
func nextPath(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery, nil
	}
	return u.Path, nil
}
