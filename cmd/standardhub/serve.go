package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cfhttp "github.com/Strob0t/standardhub/internal/adapter/http"
	shmcp "github.com/Strob0t/standardhub/internal/adapter/mcp"
	cfotel "github.com/Strob0t/standardhub/internal/adapter/otel"
	"github.com/Strob0t/standardhub/internal/adapter/ws"
	"github.com/Strob0t/standardhub/internal/middleware"
)

const rateLimitCleanupInterval = time.Minute

func serveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and, when enabled, the MCP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), c)
		},
	}
}

func runServe(parent context.Context, c *cli) error {
	cfg := c.cfg
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
		"nats", cfg.NATS.Enabled,
		"mcp", cfg.MCP.Enabled,
		"otel", cfg.OTEL.Enabled,
	)

	otelShutdown, err := cfotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("otel shutdown failed", "error", err)
		}
	}()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	limiter.StartCleanup(ctx, rateLimitCleanupInterval, cfg.Rate.MaxIdleTime)

	hub := ws.NewHub(cfg.Server.CORSOrigin)
	defer hub.Close()
	a.feedback.SetBroadcaster(hub)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfhttp.SecurityHeaders)
	r.Use(limiter.Handler)

	// long-lived; outside the request timeout
	r.Get("/ws/feedback", hub.HandleWS)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
		r.Use(middleware.Idempotency(a.cache, cfg.Cache.IdempotencyTTL))
		cfhttp.MountRoutes(r, &cfhttp.Handlers{
			Feedback: a.feedback,
			Catalog:  a.catalog,
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.MCP.Enabled {
		mcpSrv := shmcp.NewServer(shmcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "standardhub",
			Version: Version,
			APIKey:  cfg.MCP.APIKey,
		}, shmcp.ServerDeps{
			Feedback: a.feedback,
			Catalog:  a.catalog,
		})
		if err := mcpSrv.Start(); err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("mcp server: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
			defer cancel()
			return mcpSrv.Stop(shutdownCtx)
		})
	}

	return g.Wait()
}
