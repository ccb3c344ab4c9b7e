package massive

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covertrack/internal/adapters/config"
	"covertrack/pkg/errors"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.MassiveConfig{
		APIKey:       "test-key",
		RESTBase:     srv.URL,
		RESTInterval: time.Millisecond,
		HTTPTimeout:  2 * time.Second,
	})
}

func TestLastTrade(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/last/trade/SPY", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		fmt.Fprint(w, `{"results":{"p":645.12,"t":1735000000000}}`)
	}))

	quote, err := c.LastTrade(context.Background(), "spy")
	require.NoError(t, err)
	assert.Equal(t, 645.12, quote.Price)
	assert.False(t, quote.TS.IsZero())
}

func TestLastTradeMissingPrice(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":{}}`)
	}))

	_, err := c.LastTrade(context.Background(), "SPY")
	assert.True(t, errors.Is(err, errors.ErrDataMissing))
}

func TestLastNBBOMidpoint(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/last/nbbo/QQQ", r.URL.Path)
		fmt.Fprint(w, `{"results":{"p":500.10,"P":500.30}}`)
	}))

	quote, err := c.LastNBBO(context.Background(), "QQQ")
	require.NoError(t, err)
	assert.InDelta(t, 500.20, quote.Price, 1e-9)
}

func TestRateLimitMapsToSentinel(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.LastTrade(context.Background(), "SPY")
	assert.True(t, errors.Is(err, errors.ErrRateLimited))
}

func TestChainSnapshotSortedByStrike(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/snapshot/options/AAPL", r.URL.Path)
		assert.Equal(t, "2025-09-05", r.URL.Query().Get("expiration_date"))
		assert.Equal(t, "call", r.URL.Query().Get("contract_type"))
		fmt.Fprint(w, `{"results":[
			{"details":{"ticker":"AAPL250905C00240000","strike_price":240,"expiration_date":"2025-09-05"},
			 "last_quote":{"bid":1.10,"ask":1.20}},
			{"details":{"ticker":"AAPL250905C00235000","strike_price":235,"expiration_date":"2025-09-05"},
			 "last_quote":{"bid":2.00,"ask":2.20}}
		]}`)
	}))

	quotes, err := c.ChainSnapshot(context.Background(), "AAPL", "2025-09-05")
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, 235.0, quotes[0].Strike)
	assert.Equal(t, 240.0, quotes[1].Strike)

	require.NotNil(t, quotes[0].Mid)
	assert.InDelta(t, 2.10, *quotes[0].Mid, 1e-9)
}

func TestExpirationsPaginates(t *testing.T) {
	var base string
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/reference/options/contracts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "page2" {
			fmt.Fprint(w, `{"results":[{"expiration_date":"2025-09-12"}]}`)
			return
		}
		fmt.Fprintf(w, `{"results":[{"expiration_date":"2025-09-05"}],
			"next_url":"%s/v3/reference/options/contracts?cursor=page2"}`, base)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	base = srv.URL

	c := NewClient(config.MassiveConfig{
		APIKey:       "test-key",
		RESTBase:     srv.URL,
		RESTInterval: time.Millisecond,
		HTTPTimeout:  2 * time.Second,
	})

	dates, err := c.Expirations(context.Background(), "SPY", "2025-09-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-09-05", "2025-09-12"}, dates)
}
