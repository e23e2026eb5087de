package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/weather-export/internal/domain/export"
	"github.com/yanqian/weather-export/internal/domain/observation"
	"github.com/yanqian/weather-export/internal/infra/config"
	"github.com/yanqian/weather-export/internal/infra/exportarchive"
	"github.com/yanqian/weather-export/internal/infra/obsrepo"
	"github.com/yanqian/weather-export/internal/infra/openweather"
	"github.com/yanqian/weather-export/internal/infra/searchstats"
	"github.com/yanqian/weather-export/internal/scheduler"
)

func provideObservationConfig(cfg *config.Config) observation.Config {
	return observation.Config{
		DefaultPageSize: cfg.Stats.DefaultPageSize,
		MaxPageSize:     cfg.Stats.MaxPageSize,
		TrendingLimit:   cfg.Stats.TrendingLimit,
	}
}

func provideExportConfig(cfg *config.Config) (export.Config, error) {
	loc, err := cfg.Location()
	if err != nil {
		return export.Config{}, fmt.Errorf("load export timezone: %w", err)
	}
	return export.Config{
		Location:        loc,
		TimestampLayout: cfg.Export.TimestampLayout,
	}, nil
}

// provideObservationRepository opens the configured store and bounds every call by the
// query timeout. Postgres falls back to memory when it cannot be reached.
func provideObservationRepository(cfg *config.Config, logger *slog.Logger) (observation.Repository, func(), error) {
	timeout := cfg.Storage.QueryTimeout
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "postgres":
		repo, cleanup := providePostgresRepository(cfg, logger)
		if repo == nil {
			return obsrepo.WithQueryTimeout(obsrepo.NewMemoryRepository(), timeout), func() {}, nil
		}
		return obsrepo.WithQueryTimeout(repo, timeout), cleanup, nil
	case "sqlite":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		repo, err := obsrepo.OpenSQLite(ctx, cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("sqlite observation store enabled", "path", cfg.Storage.SQLite.Path)
		cleanup := func() {
			if err := repo.Close(); err != nil {
				logger.Error("close sqlite store", "error", err)
			}
		}
		return obsrepo.WithQueryTimeout(repo, timeout), cleanup, nil
	default:
		logger.Info("using in-memory observation store")
		return obsrepo.WithQueryTimeout(obsrepo.NewMemoryRepository(), timeout), func() {}, nil
	}
}

func providePostgresRepository(cfg *config.Config, logger *slog.Logger) (*obsrepo.PostgresRepository, func()) {
	dsn := strings.TrimSpace(cfg.Storage.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory store")
		return nil, nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory store", "error", err)
		return nil, nil
	}
	if cfg.Storage.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Storage.Postgres.MaxConns
	}
	if cfg.Storage.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Storage.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory store", "error", err)
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory store", "error", err)
		pool.Close()
		return nil, nil
	}
	repo := obsrepo.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("postgres schema setup failed, using memory store", "error", err)
		pool.Close()
		return nil, nil
	}
	logger.Info("postgres observation store enabled")
	return repo, pool.Close
}

func provideRecordStore(repo observation.Repository) export.RecordStore {
	return repo
}

func provideSearchStats(cfg *config.Config, logger *slog.Logger) (observation.SearchStats, func()) {
	if cfg.Stats.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory stats", "error", err)
			return searchstats.NewMemoryStats(), func() {}
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory stats", "error", err)
			return searchstats.NewMemoryStats(), func() {}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory stats", "error", err)
			client.Close()
		} else {
			logger.Info("valkey search stats enabled", "addr", cfg.Stats.Redis.Addr)
			return searchstats.NewValkeyStats(client, cfg.Stats.Redis.Prefix), client.Close
		}
	}
	return searchstats.NewMemoryStats(), func() {}
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Stats.Redis.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Stats.Redis.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Stats.Redis.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

// provideExportArchive returns nil when archiving is disabled; exports then skip the upload.
func provideExportArchive(cfg *config.Config, logger *slog.Logger) export.Archive {
	a := cfg.Export.Archive
	if !a.Enabled {
		return nil
	}
	archive, err := exportarchive.NewS3Archive(a.Endpoint, a.AccessKey, a.SecretKey, a.Bucket, a.Region, logger)
	if err != nil {
		logger.Error("failed to create export archive, archiving disabled", "error", err)
		return nil
	}
	logger.Info("export archive enabled", "bucket", a.Bucket)
	return archive
}

// provideWeatherProvider returns nil without an API key; lookups then fail with provider_unavailable.
func provideWeatherProvider(cfg *config.Config, logger *slog.Logger) (observation.Provider, error) {
	p := cfg.Provider
	if strings.TrimSpace(p.APIKey) == "" {
		logger.Info("openweather api key not set, lookups disabled")
		return nil, nil
	}
	client, err := openweather.NewClient(openweather.Config{
		APIKey:            p.APIKey,
		BaseURL:           p.BaseURL,
		Timeout:           p.Timeout,
		RequestsPerSecond: p.RequestsPerSecond,
		Burst:             p.Burst,
		Backoff: openweather.BackoffConfig{
			MaxRetries:      p.MaxRetries,
			InitialInterval: p.InitialBackoff,
			MaxInterval:     p.MaxBackoff,
		},
	}, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("create openweather client: %w", err)
	}
	return client, nil
}

func provideScheduler(cfg *config.Config, svc observation.Service, logger *slog.Logger) *scheduler.Scheduler {
	return scheduler.New(cfg.Tracking.Locations, cfg.Tracking.Interval, svc, logger)
}
