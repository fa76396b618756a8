package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/open-collect/numisync/internal/cache"
	"github.com/open-collect/numisync/internal/enrich"
	"github.com/open-collect/numisync/internal/match"
	"github.com/open-collect/numisync/internal/store"
	"github.com/open-collect/numisync/internal/units"
	"github.com/open-collect/numisync/pkg/numista"
)

// enrichEnv holds the store, cache, lock, and pipeline shared by the
// enrich/batch/serve commands.
type enrichEnv struct {
	Store    store.Store
	Cache    *cache.Cache
	Lock     *cache.Lock
	Catalog  numista.Client
	Pipeline *enrich.Pipeline
}

// Close releases the cache lock and the store. Safe to call once.
func (e *enrichEnv) Close() {
	if e.Lock != nil {
		e.Lock.Release()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "collection.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initCache opens the shared catalog cache, holding its cross-process
// lock for the lifetime of the environment.
func initCache(ctx context.Context) (*cache.Cache, *cache.Lock, error) {
	lock := cache.NewLock(cfg.Cache.Path)
	if err := lock.Acquire(ctx, cfg.Cache.LockTimeout()); err != nil {
		return nil, nil, eris.Wrap(err, "cache busy")
	}

	c, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		lock.Release()
		return nil, nil, err
	}
	if cfg.Cache.MonthlyLimit > 0 {
		c.SetMonthlyLimit(cfg.Cache.MonthlyLimit)
	}
	return c, lock, nil
}

// initEnrich sets up the store, the cache-backed catalog client, alias
// tables, and the pipeline. Callers should defer env.Close().
func initEnrich(ctx context.Context) (*enrichEnv, error) {
	if cfg.Catalog.Key == "" {
		return nil, eris.New("catalog API key is required (NUMISYNC_CATALOG_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	c, lock, err := initCache(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	catalog := numista.NewClient(cfg.Catalog.Key,
		numista.WithBaseURL(cfg.Catalog.BaseURL),
		numista.WithMinInterval(cfg.Catalog.MinInterval()),
		numista.WithStore(c, cfg.Cache.TTL()),
		numista.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Catalog.TimeoutSecs) * time.Second}),
	)

	un, err := loadUnits()
	if err != nil {
		lock.Release()
		_ = st.Close()
		return nil, err
	}
	issuerAliases, err := loadIssuerAliases()
	if err != nil {
		lock.Release()
		_ = st.Close()
		return nil, err
	}

	return &enrichEnv{
		Store:    st,
		Cache:    c,
		Lock:     lock,
		Catalog:  catalog,
		Pipeline: enrich.New(cfg.Enrich, st, catalog, un, issuerAliases),
	}, nil
}

func loadUnits() (*units.Normalizer, error) {
	if cfg.Enrich.UnitAliasPath == "" {
		return units.NewNormalizer(), nil
	}
	table, err := units.LoadTable(cfg.Enrich.UnitAliasPath)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded unit alias table",
		zap.String("path", cfg.Enrich.UnitAliasPath),
		zap.Int("units", len(table)),
	)
	return units.NewNormalizerFrom(units.MergeTables(units.Builtin(), table)), nil
}

func loadIssuerAliases() (map[string]match.IssuerAlias, error) {
	if cfg.Enrich.IssuerAliasPath == "" {
		return nil, nil
	}
	table, err := match.LoadIssuerAliases(cfg.Enrich.IssuerAliasPath)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded issuer alias table",
		zap.String("path", cfg.Enrich.IssuerAliasPath),
		zap.Int("issuers", len(table)),
	)
	return table, nil
}
