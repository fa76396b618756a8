package numista

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for exercising the persistent tier and
// quota accounting without touching disk.
type memStore struct {
	entries map[string]json.RawMessage
	usage   map[string]int
	limit   int
}

func newMemStore() *memStore {
	return &memStore{
		entries: map[string]json.RawMessage{},
		usage:   map[string]int{},
		limit:   2000,
	}
}

func (s *memStore) Get(key string) json.RawMessage { return s.entries[key] }
func (s *memStore) Set(key string, v json.RawMessage, ttl time.Duration) {
	if ttl > 0 {
		s.entries[key] = v
	}
}
func (s *memStore) IncrementUsage(endpoint string) { s.usage[endpoint]++ }
func (s *memStore) MonthlyTotal() int {
	total := 0
	for _, n := range s.usage {
		total += n
	}
	return total
}
func (s *memStore) MonthlyLimit() int { return s.limit }

func fastOpts(extra ...Option) []Option {
	return append([]Option{WithMinInterval(time.Millisecond)}, extra...)
}

func TestSearchTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/types", r.URL.Path)
		assert.Equal(t, "1 cent Lincoln", r.URL.Query().Get("q"))
		assert.Equal(t, "united-states", r.URL.Query().Get("issuer"))
		assert.Equal(t, "test-key", r.Header.Get("Numista-API-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count":1,"types":[{"id":1544,"title":"1 Cent \"Lincoln Wheat Penny\"","issuer":{"code":"united-states","name":"United States"},"min_year":1909,"max_year":1958}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", fastOpts(WithBaseURL(srv.URL))...)
	resp, err := c.SearchTypes(context.Background(), "1 cent Lincoln", WithIssuer("united-states"))
	require.NoError(t, err)
	require.Len(t, resp.Types, 1)
	assert.Equal(t, 1544, resp.Types[0].ID)
	assert.Equal(t, 1909, resp.Types[0].MinYear)
}

func TestGetType_TieredCaching(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/types/1544", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":1544,"title":"1 Cent","weight":3.11}`))
	}))
	defer srv.Close()

	store := newMemStore()
	c := NewClient("k", fastOpts(WithBaseURL(srv.URL), WithStore(store, time.Hour))...)

	// First read goes to the network and populates both tiers.
	typ, err := c.GetType(context.Background(), 1544)
	require.NoError(t, err)
	assert.Equal(t, "1 Cent", typ.Title)
	assert.Equal(t, int32(1), hits.Load())
	assert.Contains(t, store.entries, "type:1544")

	// Second read is served from session memory.
	_, err = c.GetType(context.Background(), 1544)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	// A fresh client (new session) hits the persistent tier, not the network.
	c2 := NewClient("k", fastOpts(WithBaseURL(srv.URL), WithStore(store, time.Hour))...)
	_, err = c2.GetType(context.Background(), 1544)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetType_ZeroTTLSkipsPersistentTier(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer srv.Close()

	store := newMemStore()
	c := NewClient("k", fastOpts(WithBaseURL(srv.URL), WithStore(store, 0))...)

	_, err := c.GetType(context.Background(), 7)
	require.NoError(t, err)
	assert.NotContains(t, store.entries, "type:7")
	// Quota accounting still runs even when the disk tier is off.
	assert.Equal(t, 1, store.usage[EndpointType])
}

func TestGetIssuePricing_NotPersisted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/types/5/issues/9/prices", r.URL.Path)
		assert.Equal(t, "EUR", r.URL.Query().Get("currency"))
		_, _ = w.Write([]byte(`{"currency":"EUR","prices":[{"grade":"vf","price":12.5},{"grade":"xf","price":40}]}`))
	}))
	defer srv.Close()

	store := newMemStore()
	c := NewClient("k", fastOpts(WithBaseURL(srv.URL), WithStore(store, time.Hour))...)

	p, err := c.GetIssuePricing(context.Background(), 5, 9, "EUR")
	require.NoError(t, err)
	require.Len(t, p.Prices, 2)
	assert.Equal(t, "EUR", p.Currency)
	assert.Empty(t, store.entries)
	assert.Equal(t, 1, store.usage[EndpointIssuesWithPrices])
}

func TestGetIssuers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/issuers", r.URL.Path)
		_, _ = w.Write([]byte(`{"count":2,"issuers":[{"code":"france","name":"France"},{"code":"germany-empire","name":"Germany","level":2}]}`))
	}))
	defer srv.Close()

	c := NewClient("k", fastOpts(WithBaseURL(srv.URL))...)
	issuers, err := c.GetIssuers(context.Background())
	require.NoError(t, err)
	require.Len(t, issuers, 2)
	assert.Equal(t, 2, issuers[1].Level)
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		check    func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "rate_limited",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrRateLimited)
			},
		},
		{
			name:   "not_found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name:   "service_error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				var se *ServiceError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusBadGateway, se.Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			c := NewClient("k", fastOpts(WithBaseURL(srv.URL))...)
			_, err := c.GetType(context.Background(), 1)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient("k", fastOpts(WithBaseURL(srv.URL))...)
	_, err := c.GetType(context.Background(), 1)
	require.Error(t, err)
	var ne *NetworkError
	assert.ErrorAs(t, err, &ne)
}

func TestQuotaExceeded(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	store := newMemStore()
	store.limit = 100
	store.usage["search"] = 100

	c := NewClient("k", fastOpts(WithBaseURL(srv.URL), WithStore(store, time.Hour))...)
	_, err := c.GetType(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, int32(0), hits.Load())
}

func TestQuotaExceeded_CachedReadsStillServe(t *testing.T) {
	store := newMemStore()
	store.limit = 100
	store.usage["search"] = 100
	store.entries["type:1"] = json.RawMessage(`{"id":1,"title":"Cached"}`)

	c := NewClient("k", fastOpts(WithStore(store, time.Hour))...)
	typ, err := c.GetType(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Cached", typ.Title)
}

func TestMinIntervalSpacing(t *testing.T) {
	var stamps []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		stamps = append(stamps, time.Now())
		_, _ = w.Write([]byte(`{"count":0,"types":[]}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithMinInterval(120*time.Millisecond))
	_, err := c.SearchTypes(context.Background(), "a")
	require.NoError(t, err)
	_, err = c.SearchTypes(context.Background(), "b")
	require.NoError(t, err)

	require.Len(t, stamps, 2)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 100*time.Millisecond)
}
