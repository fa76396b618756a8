package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is an adjustable clock for aging cache entries.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T, clk *fakeClock) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	c, err := Open(path, WithNow(clk.now))
	require.NoError(t, err)
	return c
}

func TestGetSet(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clk)

	assert.Nil(t, c.Get("type:123"))

	c.Set("type:123", json.RawMessage(`{"id":123}`), time.Hour)
	assert.JSONEq(t, `{"id":123}`, string(c.Get("type:123")))
}

func TestSet_NonPositiveTTLIsNoop(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clk)

	c.Set("k", json.RawMessage(`1`), 0)
	c.Set("k", json.RawMessage(`1`), -time.Hour)
	assert.Nil(t, c.Get("k"))
	assert.Equal(t, 0, c.GetStats().Entries)
}

func TestGet_ExpiryEvicts(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clk)

	c.Set("k", json.RawMessage(`"v"`), time.Hour)
	assert.Equal(t, 1, c.GetStats().Entries)

	clk.advance(time.Hour + time.Second)
	assert.Nil(t, c.Get("k"))
	assert.Equal(t, 0, c.GetStats().Entries)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	path := filepath.Join(t.TempDir(), "catalog.json")

	c1, err := Open(path, WithNow(clk.now))
	require.NoError(t, err)
	c1.Set("issues:9", json.RawMessage(`[1,2]`), 24*time.Hour)
	c1.IncrementUsage("issues")

	c2, err := Open(path, WithNow(clk.now))
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(c2.Get("issues:9")))
	assert.Equal(t, 1, c2.MonthlyUsage().Total)
}

func TestOpen_CorruptFileFailsOpen(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c, err := Open(path, WithNow(clk.now))
	require.NoError(t, err)
	assert.Equal(t, 0, c.GetStats().Entries)
	assert.Equal(t, DefaultMonthlyLimit, c.MonthlyLimit())
}

func TestOpen_VersionMismatchFailsOpen(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"version":99,"entries":{"k":{"data":"1","cachedAt":"2026-03-10T00:00:00Z","ttl":9999}}}`), 0o644))

	c, err := Open(path, WithNow(clk.now))
	require.NoError(t, err)
	assert.Nil(t, c.Get("k"))
}

func TestPrune_DropsOldMonths(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clk)

	c.IncrementUsage("search")
	clk.advance(31 * 24 * time.Hour) // April
	c.IncrementUsage("search")
	clk.advance(31 * 24 * time.Hour) // May
	c.IncrementUsage("search")

	c.Prune()
	// March is gone, April (previous) and May (current) survive.
	assert.NotContains(t, c.data.MonthlyUsage, "2026-03")
	assert.Contains(t, c.data.MonthlyUsage, "2026-04")
	assert.Contains(t, c.data.MonthlyUsage, "2026-05")
}

func TestMonthlyUsage(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clk)

	c.IncrementUsage("search")
	c.IncrementUsage("search")
	c.IncrementUsage("issues")

	u := c.MonthlyUsage()
	assert.Equal(t, 3, u.Total)
	assert.Equal(t, 2, u.PerEndpoint["search"])
	assert.Equal(t, 1, u.PerEndpoint["issues"])
}

func TestSetMonthlyLimit_Floor(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clk)

	c.SetMonthlyLimit(5000)
	assert.Equal(t, 5000, c.MonthlyLimit())

	c.SetMonthlyLimit(3)
	assert.Equal(t, 100, c.MonthlyLimit())
}

func TestSetMonthlyUsageTotal_ManualBucket(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clk)

	c.SetMonthlyUsageTotal(42)
	u := c.MonthlyUsage()
	assert.Equal(t, 42, u.Total)
	assert.Equal(t, 42, u.PerEndpoint["manual"])
}

func TestSetMonthlyUsageTotal_ProportionalRedistribution(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clk)

	for i := 0; i < 30; i++ {
		c.IncrementUsage("search")
	}
	for i := 0; i < 10; i++ {
		c.IncrementUsage("issues")
	}

	c.SetMonthlyUsageTotal(100)
	u := c.MonthlyUsage()
	assert.Equal(t, 100, u.Total)
	assert.Equal(t, 75, u.PerEndpoint["search"])
	assert.Equal(t, 25, u.PerEndpoint["issues"])
}
