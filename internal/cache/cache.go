// Package cache provides the disk-backed catalog response cache: TTL
// entries, monthly per-endpoint quota counters, and an advisory lock for
// cache files shared between independently launched processes.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// fileVersion is bumped when the on-disk layout changes. Files carrying a
// different version are treated as empty rather than migrated.
const fileVersion = 1

// DefaultMonthlyLimit is the catalog service's free-tier request quota.
const DefaultMonthlyLimit = 2000

// minMonthlyLimit is the floor enforced by SetMonthlyLimit.
const minMonthlyLimit = 100

// manualBucket is the synthetic endpoint bucket used when a usage total is
// set by hand with no existing per-endpoint breakdown to redistribute.
const manualBucket = "manual"

type entry struct {
	Data     json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cachedAt"`
	TTLSecs  int64           `json:"ttl"`
}

type cacheFile struct {
	Version      int                       `json:"version"`
	Entries      map[string]entry          `json:"entries"`
	MonthlyUsage map[string]map[string]int `json:"monthlyUsage"`
	MonthlyLimit int                       `json:"monthlyLimit"`
}

// Usage summarizes one month's request accounting.
type Usage struct {
	PerEndpoint map[string]int
	Total       int
}

// Stats describes the cache contents for diagnostics.
type Stats struct {
	Entries int
	Path    string
}

// Cache is a write-through, TTL-based key/value store backed by a single
// JSON file. It is not internally synchronized: callers sharing one Cache
// across concurrent tasks must serialize access themselves.
type Cache struct {
	path string
	data cacheFile
	now  func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithNow sets the clock, for tests that need to age entries.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Open loads the cache file at path, creating parent directories as
// needed. A missing, corrupt, or version-mismatched file yields an empty
// cache: reads fail open, never closed. Expired entries and stale month
// buckets are pruned on load.
func Open(path string, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrap(err, "cache: create cache dir")
	}

	c := &Cache{path: path, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	c.data = c.load()
	c.Prune()
	return c, nil
}

// load reads and validates the cache file, falling back to an empty state
// on any failure.
func (c *Cache) load() cacheFile {
	empty := cacheFile{
		Version:      fileVersion,
		Entries:      map[string]entry{},
		MonthlyUsage: map[string]map[string]int{},
		MonthlyLimit: DefaultMonthlyLimit,
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("cache: unreadable cache file, starting empty",
				zap.String("path", c.path),
				zap.Error(err),
			)
		}
		return empty
	}

	var f cacheFile
	if err := json.Unmarshal(raw, &f); err != nil {
		zap.L().Warn("cache: corrupt cache file, starting empty",
			zap.String("path", c.path),
			zap.Error(err),
		)
		return empty
	}
	if f.Version != fileVersion {
		zap.L().Warn("cache: cache file version mismatch, starting empty",
			zap.String("path", c.path),
			zap.Int("version", f.Version),
		)
		return empty
	}
	if f.Entries == nil {
		f.Entries = map[string]entry{}
	}
	if f.MonthlyUsage == nil {
		f.MonthlyUsage = map[string]map[string]int{}
	}
	if f.MonthlyLimit < minMonthlyLimit {
		f.MonthlyLimit = DefaultMonthlyLimit
	}
	return f
}

// Get returns the cached value for key, or nil when absent. An expired
// entry is evicted and reported as absent.
func (c *Cache) Get(key string) json.RawMessage {
	e, ok := c.data.Entries[key]
	if !ok {
		return nil
	}
	if c.expired(e) {
		delete(c.data.Entries, key)
		c.persist()
		return nil
	}
	return e.Data
}

// Set stores value under key for the given ttl and writes through to
// disk. A non-positive ttl means "do not cache" and is a no-op.
func (c *Cache) Set(key string, value json.RawMessage, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.data.Entries[key] = entry{
		Data:     value,
		CachedAt: c.now().UTC(),
		TTLSecs:  int64(ttl / time.Second),
	}
	c.persist()
}

// Prune evicts expired entries and drops monthly usage buckets other than
// the current and immediately preceding month, persisting if anything
// changed.
func (c *Cache) Prune() {
	changed := false

	for key, e := range c.data.Entries {
		if c.expired(e) {
			delete(c.data.Entries, key)
			changed = true
		}
	}

	keep := map[string]bool{
		monthKey(c.now()):         true,
		previousMonthKey(c.now()): true,
	}
	for month := range c.data.MonthlyUsage {
		if !keep[month] {
			delete(c.data.MonthlyUsage, month)
			changed = true
		}
	}

	if changed {
		c.persist()
	}
}

// IncrementUsage records one request against the named endpoint for the
// current month.
func (c *Cache) IncrementUsage(endpoint string) {
	month := monthKey(c.now())
	if c.data.MonthlyUsage[month] == nil {
		c.data.MonthlyUsage[month] = map[string]int{}
	}
	c.data.MonthlyUsage[month][endpoint]++
	c.persist()
}

// MonthlyUsage returns the current month's per-endpoint counts and total.
func (c *Cache) MonthlyUsage() Usage {
	u := Usage{PerEndpoint: map[string]int{}}
	for endpoint, count := range c.data.MonthlyUsage[monthKey(c.now())] {
		u.PerEndpoint[endpoint] = count
		u.Total += count
	}
	return u
}

// MonthlyTotal returns the current month's total request count.
func (c *Cache) MonthlyTotal() int {
	total := 0
	for _, count := range c.data.MonthlyUsage[monthKey(c.now())] {
		total += count
	}
	return total
}

// MonthlyLimit returns the configured monthly request quota.
func (c *Cache) MonthlyLimit() int {
	return c.data.MonthlyLimit
}

// SetMonthlyLimit sets the monthly request quota, floored at 100.
func (c *Cache) SetMonthlyLimit(n int) {
	if n < minMonthlyLimit {
		n = minMonthlyLimit
	}
	c.data.MonthlyLimit = n
	c.persist()
}

// SetMonthlyUsageTotal overrides the current month's usage total, e.g. to
// reconcile against the service's own dashboard. With no existing
// breakdown the whole total lands in a synthetic "manual" bucket;
// otherwise it is redistributed proportionally to the existing
// per-endpoint ratios so reports keep their relative shape.
func (c *Cache) SetMonthlyUsageTotal(n int) {
	if n < 0 {
		n = 0
	}
	month := monthKey(c.now())
	existing := c.data.MonthlyUsage[month]

	oldTotal := 0
	for _, count := range existing {
		oldTotal += count
	}

	if oldTotal == 0 {
		c.data.MonthlyUsage[month] = map[string]int{manualBucket: n}
		c.persist()
		return
	}

	scaled := make(map[string]int, len(existing))
	distributed := 0
	for endpoint, count := range existing {
		v := int(float64(count)*float64(n)/float64(oldTotal) + 0.5)
		scaled[endpoint] = v
		distributed += v
	}
	// Rounding drift lands in the manual bucket so the total stays exact.
	if diff := n - distributed; diff != 0 {
		scaled[manualBucket] += diff
	}
	c.data.MonthlyUsage[month] = scaled
	c.persist()
}

// GetStats reports the cache's live entry count.
func (c *Cache) GetStats() Stats {
	n := 0
	for _, e := range c.data.Entries {
		if !c.expired(e) {
			n++
		}
	}
	return Stats{Entries: n, Path: c.path}
}

func (c *Cache) expired(e entry) bool {
	return c.now().UTC().Sub(e.CachedAt) > time.Duration(e.TTLSecs)*time.Second
}

// persist writes the cache file synchronously. Failures are logged and
// swallowed: a broken disk must not take down a read path that already
// has its answer.
func (c *Cache) persist() {
	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		zap.L().Error("cache: marshal cache file", zap.Error(err))
		return
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		zap.L().Error("cache: write cache file",
			zap.String("path", c.path),
			zap.Error(err),
		)
	}
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func previousMonthKey(t time.Time) string {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0).Format("2006-01")
}
