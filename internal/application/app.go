// Package application assembles the long-lived components the server and
// the combosync CLI share: the database pools, the redis cache, the catalog
// reader and the syncer.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"

	"github.com/JonMunkholm/combokiosk/internal/catalog"
	"github.com/JonMunkholm/combokiosk/internal/config"
	"github.com/JonMunkholm/combokiosk/internal/core"
	_ "github.com/JonMunkholm/combokiosk/internal/core/tables" // Register all tables
)

// App holds the wired components. Close releases them.
type App struct {
	Config  *config.Config
	Pool    *pgxpool.Pool
	Source  *pgxpool.Pool // source queries run here; Pool unless configured
	Redis   *redis.Client // nil without REDIS_URL
	Catalog *catalog.Reader
	Loader  *core.Loader
	Syncer  *core.Syncer
}

// New connects to the catalog database (and the source database and redis
// when configured) and wires the reader and syncer. A configured but
// unreachable redis is logged and the reader runs uncached.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := OpenPool(ctx, cfg.Database.URL, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Pool: pool, Source: pool}

	if u := cfg.Sync.SourceDatabaseURL; u != "" && u != cfg.Database.URL {
		src, err := OpenPool(ctx, u, cfg.Database)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("source database: %w", err)
		}
		a.Source = src
	}

	readerOpts := []catalog.ReaderOption{
		catalog.WithDefaultLanguage(language.Make(cfg.Ordering.Language)),
	}
	if cfg.Redis.URL != "" {
		rdb, err := catalog.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			slog.Warn("redis unavailable, catalog cache disabled", "error", err)
		} else {
			a.Redis = rdb
			readerOpts = append(readerOpts, catalog.WithCache(catalog.NewRedisCache(rdb, cfg.Redis.Prefix, cfg.Redis.TTL)))
			slog.Info("catalog cache enabled", "prefix", cfg.Redis.Prefix, "ttl", cfg.Redis.TTL.String())
		}
	}
	a.Catalog = catalog.NewReader(catalog.PgStore{DB: pool}, readerOpts...)

	a.Loader = NewLoader(pool, cfg.Sync)
	a.Syncer = core.NewSyncer(a.Loader,
		core.NewSyncLimiter(core.DefaultMaxConcurrentSyncs, cfg.Sync.MaxWaitTime),
		core.WithHistory(core.PgRunStore{DB: pool}),
		core.WithInvalidator(a.Catalog),
		core.WithTimeout(cfg.Sync.Timeout),
	)

	slog.Info("tables registered", "count", core.TableCount(), "tables", core.Keys())
	return a, nil
}

// NewLoader creates the bulk loader for the sync settings.
func NewLoader(pool *pgxpool.Pool, cfg config.SyncConfig) *core.Loader {
	l := core.NewLoader(pool, core.PgSchema{DB: pool})
	l.ChunkSize = cfg.ChunkSize
	if cfg.Atomic {
		l.Mode = core.LoadAtomic
	}
	return l
}

// OpenPool connects and pings a pgx pool sized by the database settings.
func OpenPool(ctx context.Context, dsn string, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("connected to database", "name", databaseName(dsn))
	return pool, nil
}

// databaseName extracts the database name from a URL DSN for logging.
func databaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// SyncRequest builds the request for the configured sources.
func (a *App) SyncRequest() core.SyncRequest {
	return Sources(a.Config.Sync, a.Source)
}

// ConfiguredSync returns SyncRequest when a combo source is configured, nil
// otherwise.
func (a *App) ConfiguredSync() func() core.SyncRequest {
	if !a.Config.Sync.HasSource() {
		return nil
	}
	return a.SyncRequest
}

// Sources maps the sync settings to sources: a path is opened by extension,
// a query runs against db.
func Sources(cfg config.SyncConfig, db core.DBTX) core.SyncRequest {
	return core.SyncRequest{
		Combos:   source(cfg.SourcePath, cfg.SourceQuery, db),
		Products: source(cfg.ProductsPath, cfg.ProductsQuery, db),
	}
}

func source(path, query string, db core.DBTX) core.Source {
	switch {
	case path != "":
		return core.OpenSource(path)
	case query != "":
		return &core.QuerySource{DB: db, SQL: query}
	}
	return nil
}

// Close releases every connection.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.Source != nil && a.Source != a.Pool {
		a.Source.Close()
	}
	a.Pool.Close()
}
