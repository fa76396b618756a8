// Package numista provides a rate-limited, cache-fronted client for the
// external numismatic catalog API.
package numista

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Client defines the catalog operations the enrichment pipeline consumes.
type Client interface {
	// SearchTypes searches catalog types by free-text query.
	SearchTypes(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
	// GetType fetches full type detail by catalog id.
	GetType(ctx context.Context, id int) (*Type, error)
	// GetIssues fetches the year/mint issue history of a type.
	GetIssues(ctx context.Context, typeID int) ([]Issue, error)
	// GetIssuePricing fetches price-by-grade data for one issue.
	GetIssuePricing(ctx context.Context, typeID, issueID int, currency string) (*PricingSnapshot, error)
	// GetIssuers fetches the full issuer list.
	GetIssuers(ctx context.Context) ([]Issuer, error)
}

// Store is the persistent tier behind the client's in-memory cache:
// catalog responses with a TTL plus monthly quota accounting. Implemented
// by internal/cache.Cache.
type Store interface {
	Get(key string) json.RawMessage
	Set(key string, value json.RawMessage, ttl time.Duration)
	IncrementUsage(endpoint string)
	MonthlyTotal() int
	MonthlyLimit() int
}

// SearchOption refines a type search.
type SearchOption func(url.Values)

// WithIssuer restricts a search to one issuer code.
func WithIssuer(code string) SearchOption {
	return func(v url.Values) {
		v.Set("issuer", code)
	}
}

// WithCategory restricts a search to a category ("coin", "banknote", "exonumia").
func WithCategory(category string) SearchOption {
	return func(v url.Values) {
		v.Set("category", category)
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithStore attaches the persistent cache tier. Type, issue, and issuer
// reads are written through with the given TTL; a non-positive TTL keeps
// the store for quota accounting only.
func WithStore(s Store, ttl time.Duration) Option {
	return func(c *httpClient) {
		c.store = s
		c.diskTTL = ttl
	}
}

// WithMinInterval sets the minimum delay between outbound requests.
func WithMinInterval(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

const (
	defaultBaseURL     = "https://api.numista.com/v3"
	defaultMinInterval = 2 * time.Second
	apiKeyHeader       = "Numista-API-Key"
)

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	store   Store
	diskTTL time.Duration

	mu  sync.Mutex
	mem map[string]json.RawMessage
}

// NewClient creates a catalog client. Requests are serialized by a
// minimum inter-request delay (default 2s) and time out after 30s. The
// client never retries; retry policy belongs to the caller.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(defaultMinInterval), 1),
		mem:     make(map[string]json.RawMessage),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SearchTypes(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	v := url.Values{}
	v.Set("q", query)
	for _, opt := range opts {
		opt(v)
	}

	// Searches are high-cardinality and volatile: session cache only.
	key := "search:" + v.Encode()
	raw, err := c.cachedGet(ctx, key, "/types", v, false)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &ClientError{Err: fmt.Errorf("decode search response: %w", err)}
	}
	return &resp, nil
}

func (c *httpClient) GetType(ctx context.Context, id int) (*Type, error) {
	raw, err := c.cachedGet(ctx, fmt.Sprintf("type:%d", id), fmt.Sprintf("/types/%d", id), nil, true)
	if err != nil {
		return nil, err
	}

	var t Type
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, &ClientError{Err: fmt.Errorf("decode type %d: %w", id, err)}
	}
	return &t, nil
}

func (c *httpClient) GetIssues(ctx context.Context, typeID int) ([]Issue, error) {
	raw, err := c.cachedGet(ctx, fmt.Sprintf("issues:%d", typeID), fmt.Sprintf("/types/%d/issues", typeID), nil, true)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	if err := json.Unmarshal(raw, &issues); err != nil {
		return nil, &ClientError{Err: fmt.Errorf("decode issues for type %d: %w", typeID, err)}
	}
	return issues, nil
}

func (c *httpClient) GetIssuePricing(ctx context.Context, typeID, issueID int, currency string) (*PricingSnapshot, error) {
	v := url.Values{}
	if currency != "" {
		v.Set("currency", currency)
	}

	// Prices move; keep them out of the persistent tier.
	key := fmt.Sprintf("prices:%d:%d:%s", typeID, issueID, currency)
	raw, err := c.cachedGet(ctx, key, fmt.Sprintf("/types/%d/issues/%d/prices", typeID, issueID), v, false)
	if err != nil {
		return nil, err
	}

	var p PricingSnapshot
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &ClientError{Err: fmt.Errorf("decode pricing for issue %d: %w", issueID, err)}
	}
	return &p, nil
}

func (c *httpClient) GetIssuers(ctx context.Context) ([]Issuer, error) {
	raw, err := c.cachedGet(ctx, "issuers", "/issuers", nil, true)
	if err != nil {
		return nil, err
	}

	var resp IssuersResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &ClientError{Err: fmt.Errorf("decode issuers: %w", err)}
	}
	return resp.Issuers, nil
}

// cachedGet is the tiered read path: session memory, then the persistent
// store when persist is set and a TTL is configured, then the network. A
// network hit populates every tier it was allowed to consult.
func (c *httpClient) cachedGet(ctx context.Context, key, path string, query url.Values, persist bool) (json.RawMessage, error) {
	c.mu.Lock()
	raw, ok := c.mem[key]
	c.mu.Unlock()
	if ok {
		return raw, nil
	}

	useDisk := persist && c.store != nil && c.diskTTL > 0
	if useDisk {
		if raw := c.store.Get(key); raw != nil {
			c.mu.Lock()
			c.mem[key] = raw
			c.mu.Unlock()
			return raw, nil
		}
	}

	raw, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.mem[key] = raw
	c.mu.Unlock()
	if useDisk {
		c.store.Set(key, raw, c.diskTTL)
	}
	return raw, nil
}

// get performs one rate-limited request against the catalog service and
// maps the response onto the error taxonomy. No retries.
func (c *httpClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.store != nil && c.store.MonthlyTotal() >= c.store.MonthlyLimit() {
		return nil, ErrQuotaExceeded
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ClientError{Err: err}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &ClientError{Err: err}
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	if c.store != nil {
		c.store.IncrementUsage(EndpointName(path))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, &ServiceError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
}
