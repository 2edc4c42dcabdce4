package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/standardhub/internal/adapter/memory"
	cfnats "github.com/Strob0t/standardhub/internal/adapter/nats"
	"github.com/Strob0t/standardhub/internal/adapter/natskv"
	cfotel "github.com/Strob0t/standardhub/internal/adapter/otel"
	"github.com/Strob0t/standardhub/internal/adapter/postgres"
	"github.com/Strob0t/standardhub/internal/adapter/ristretto"
	"github.com/Strob0t/standardhub/internal/adapter/tiered"
	"github.com/Strob0t/standardhub/internal/config"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/port/cache"
	"github.com/Strob0t/standardhub/internal/port/database"
	"github.com/Strob0t/standardhub/internal/resilience"
	"github.com/Strob0t/standardhub/internal/service"
	"github.com/Strob0t/standardhub/internal/service/feedbacktarget"
)

// app holds the wired services and the resources to release on exit.
type app struct {
	cfg      *config.Config
	store    database.Store
	queue    *cfnats.Queue
	cache    cache.Cache
	feedback *service.FeedbackService
	catalog  *service.CatalogService

	closers []func()
}

// buildApp connects storage, NATS and the cache and wires the services.
// On error every resource opened so far is released.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg
	if err := a.openStore(ctx); err != nil {
		return err
	}

	if cfg.NATS.Enabled {
		q, err := cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		a.queue = q
		a.closers = append(a.closers, func() {
			if err := q.Drain(); err != nil {
				slog.Warn("nats drain failed", "error", err)
			}
		})
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}

	if err := a.openCache(ctx); err != nil {
		return err
	}

	regs, err := feedbacktarget.NewRegistries(nil)
	if err != nil {
		return fmt.Errorf("feedback registries: %w", err)
	}

	defaultRisk := make(map[feedback.TargetType]feedback.RiskLevel, len(cfg.Feedback.DefaultRisk))
	for tt, risk := range cfg.Feedback.DefaultRisk {
		defaultRisk[feedback.TargetType(tt)] = feedback.RiskLevel(risk)
	}

	a.catalog = service.NewCatalogService(a.store, a.cache, cfg.Cache.TTL)
	a.feedback = service.NewFeedbackService(a.store, regs, defaultRisk)
	a.feedback.SetCatalog(a.catalog)

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}
	a.feedback.SetMetrics(metrics)

	if a.queue != nil {
		a.feedback.SetQueue(a.queue, resilience.NewBreaker("nats-publish", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	}
	return nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		// a fresh in-memory catalogue has one convention and one package
		// structure so ADD proposals have a parent to reference
		store.AddConvention(1)
		store.AddPackageStructure(1)
		a.store = store
		slog.Warn("using in-memory storage; data is lost on exit")
		return nil
	default:
		if a.cfg.Postgres.AutoMigrate {
			if err := postgres.RunMigrations(ctx, a.cfg.Postgres.DSN); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			slog.Info("migrations applied")
		}
		pool, err := postgres.NewPool(ctx, a.cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		a.store = postgres.NewStore(pool)
		a.closers = append(a.closers, pool.Close)
		slog.Info("postgres connected")
		return nil
	}
}

// openCache builds the in-process cache, tiered over a JetStream KV bucket
// when NATS is available. Invalidations clear the local L1 and the shared L2;
// other replicas may serve a stale L1 entry until its TTL expires.
func (a *app) openCache(ctx context.Context) error {
	l1, err := ristretto.New(a.cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	a.closers = append(a.closers, l1.Close)
	a.cache = l1

	if a.queue == nil {
		return nil
	}
	l2, err := natskv.Open(ctx, a.queue.JetStream(), a.cfg.Cache.KVBucket, max(a.cfg.Cache.TTL, a.cfg.Cache.IdempotencyTTL))
	if err != nil {
		return fmt.Errorf("cache kv: %w", err)
	}
	a.cache = tiered.New(l1, l2, a.cfg.Cache.TTL)
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
