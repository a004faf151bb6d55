package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/healthsync/internal/domain/auth"
	"github.com/yanqian/healthsync/internal/domain/healthsync"
	"github.com/yanqian/healthsync/internal/infra/config"
	"github.com/yanqian/healthsync/internal/infra/events"
	"github.com/yanqian/healthsync/internal/infra/healthstore"
	"github.com/yanqian/healthsync/internal/infra/healthstore/bridge"
	"github.com/yanqian/healthsync/internal/infra/healthstore/snapshot"
	"github.com/yanqian/healthsync/internal/infra/metricrepo"
	"github.com/yanqian/healthsync/internal/infra/queue"
	"github.com/yanqian/healthsync/internal/infra/runlock"
	"github.com/yanqian/healthsync/internal/observability"
)

func provideSyncConfig(cfg *config.Config) (healthsync.Config, error) {
	loc, err := cfg.Sync.Location()
	if err != nil {
		return healthsync.Config{}, err
	}
	return healthsync.Config{
		DefaultDays:        cfg.Sync.DefaultDays,
		MaxDays:            cfg.Sync.MaxDays,
		BatchSize:          cfg.Sync.BatchSize,
		Location:           loc,
		ParallelCategories: cfg.Sync.ParallelCategories,
	}, nil
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TokenTTL: cfg.Auth.TokenTTL,
		Leeway:   cfg.Auth.Leeway,
	}
}

// provideValkeyClient returns nil when Valkey is disabled or unreachable;
// dependents fall back to in-process implementations.
func provideValkeyClient(cfg *config.Config, logger *slog.Logger) (valkey.Client, func()) {
	noop := func() {}
	if !cfg.Valkey.Enabled {
		logger.Info("valkey disabled, using in-process lock and queue")
		return nil, noop
	}
	opt, err := buildValkeyOptions(cfg.Valkey.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, using in-process lock and queue", "error", err)
		return nil, noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, using in-process lock and queue", "error", err)
		return nil, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, using in-process lock and queue", "error", err)
		client.Close()
		return nil, noop
	}
	logger.Info("valkey enabled", "addr", cfg.Valkey.Addr)
	return client, client.Close
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideRunLocker(cfg *config.Config, client valkey.Client) healthsync.RunLocker {
	if client == nil {
		return runlock.NewMemoryLocker()
	}
	return runlock.NewValkeyLocker(client, cfg.Lock.Prefix, cfg.Lock.TTL)
}

func provideJobQueue(cfg *config.Config, client valkey.Client, logger *slog.Logger) (queue.HandlerQueue, func()) {
	if client == nil {
		return queue.NewImmediateQueue(nil), func() {}
	}
	q := queue.NewValkeyQueue(client, cfg.Queue.Key, logger)
	return q, q.Close
}

func provideEnqueuer(q queue.HandlerQueue) healthsync.JobQueue {
	return q
}

func provideRecordStore(cfg *config.Config, logger *slog.Logger) (healthsync.RecordStore, func(), error) {
	noop := func() {}
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := newPostgresPool(cfg.Store.Postgres)
		if err != nil {
			logger.Error("postgres unavailable, using memory store", "error", err)
			return metricrepo.NewMemoryRepository(), noop, nil
		}
		repo := metricrepo.NewPostgresRepository(pool)
		if cfg.Store.Postgres.EnsureSchema {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := repo.EnsureSchema(ctx); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("ensure wearables_data schema: %w", err)
			}
		}
		logger.Info("postgres record store enabled")
		return repo, pool.Close, nil
	case config.StoreSQLite:
		repo, err := metricrepo.NewSQLiteRepository(cfg.Store.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("sqlite record store enabled", "path", cfg.Store.SQLite.Path)
		return repo, func() { _ = repo.Close() }, nil
	default:
		logger.Info("using memory record store")
		return metricrepo.NewMemoryRepository(), noop, nil
	}
}

func newPostgresPool(cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(strings.TrimSpace(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func providePlatformProvider(cfg *config.Config, logger *slog.Logger) (healthsync.PlatformProvider, error) {
	switch cfg.Platform.Driver {
	case config.PlatformBridge:
		b := cfg.Platform.Bridge
		logger.Info("bridge platform enabled", "base_url", b.BaseURL)
		return bridge.NewClient(bridge.Config{
			BaseURL:      b.BaseURL,
			ClientID:     b.ClientID,
			ClientSecret: b.ClientSecret,
			TokenURL:     b.TokenURL,
			Scopes:       b.Scopes,
			Timeout:      b.Timeout,
			PageSize:     b.PageSize,
		})
	case config.PlatformSnapshot:
		s := cfg.Platform.Snapshot
		objects, err := snapshot.NewBucketReader(snapshot.BucketConfig{
			Endpoint:  s.Endpoint,
			AccessKey: s.AccessKey,
			SecretKey: s.SecretKey,
			Bucket:    s.Bucket,
			Region:    s.Region,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("snapshot platform enabled", "bucket", s.Bucket, "prefix", s.Prefix)
		return snapshot.NewProvider(objects, s.Prefix), nil
	default:
		logger.Warn("memory platform in use, syncs will find no samples")
		return healthstore.NewMemoryProvider(), nil
	}
}

func provideEventPublisher(cfg *config.Config, logger *slog.Logger) (healthsync.EventPublisher, func(), error) {
	if !cfg.Events.Enabled {
		return events.NewLogPublisher(logger), func() {}, nil
	}
	publisher, err := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("kafka events enabled", "topic", cfg.Events.Topic)
	return publisher, func() { _ = publisher.Close() }, nil
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideRunObserver(reg *prometheus.Registry) (healthsync.RunObserver, error) {
	return observability.NewSyncObserver(reg)
}

func provideMetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
