package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/lmsynth/lmsynth/internal/config"
	"github.com/lmsynth/lmsynth/internal/domain/reference"
	"github.com/lmsynth/lmsynth/internal/domain/scenario"
	"github.com/lmsynth/lmsynth/internal/platform/auth"
	"github.com/lmsynth/lmsynth/internal/platform/cache"
	"github.com/lmsynth/lmsynth/internal/platform/db"
	"github.com/lmsynth/lmsynth/internal/platform/middleware"
	"github.com/lmsynth/lmsynth/internal/platform/telemetry"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// deps is everything the HTTP surface needs. Pinger and Saved may be nil.
type deps struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Tracer    trace.TracerProvider
	Catalog   reference.Catalog
	Provider  reference.Provider
	Saved     scenario.Repository
	Pinger    db.Pinger
	PoolStats func() *db.PoolStats
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	ctx := context.Background()

	tp, shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        cfg.OTelEnabled,
		ServiceName:    cfg.OTelServiceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		Endpoint:       cfg.OTelEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Error().Err(err).Msg("tracer shutdown failed")
		}
	}()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	store, err := newCacheStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	refRepo := reference.NewRepo(pool)

	e := newServer(deps{
		Config:    cfg,
		Logger:    logger,
		Tracer:    tp,
		Catalog:   refRepo,
		Provider:  reference.NewCachedProvider(refRepo, store, cfg.ReferenceCacheTTL, logger),
		Saved:     scenario.NewRepo(pool),
		Pinger:    pool,
		PoolStats: func() *db.PoolStats { return db.GetPoolStats(pool) },
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// redisKeyPrefix namespaces every key the server and seed command share.
const redisKeyPrefix = "lmsynth:"

// newCacheStore uses Redis when REDIS_URL is set and an in-process map
// otherwise.
func newCacheStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Store, error) {
	if cfg.RedisURL == "" {
		logger.Info().Msg("REDIS_URL not set, using in-memory reference cache")
		return cache.NewMemoryStore(), nil
	}
	store, err := cache.NewRedisStore(ctx, cfg.RedisURL, redisKeyPrefix)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("connected to redis")
	return store, nil
}

func newServer(d deps) *echo.Echo {
	cfg := d.Config

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(d.Logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.Logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.Tracing(d.Tracer))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		Skip:              auth.PublicPathSkipper,
	}))
	e.Use(middleware.Timeout(cfg.RequestTimeout))

	if cfg.AuthDisabled {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.PublicPathSkipper,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if d.Pinger != nil {
		e.GET("/health/db", db.HealthHandler(d.Pinger, d.PoolStats))
	}

	opts := []scenario.Option{
		scenario.WithLogger(d.Logger),
		scenario.WithTracerProvider(d.Tracer),
		scenario.WithConcurrency(cfg.ScenarioFetchConcurrency),
	}
	if d.Saved != nil {
		opts = append(opts, scenario.WithRepository(d.Saved))
	}

	apiV1 := e.Group("/api/v1")
	reference.NewHandler(reference.NewService(d.Catalog, d.Provider)).RegisterRoutes(apiV1)
	scenario.NewHandler(scenario.NewService(d.Provider, opts...)).RegisterRoutes(apiV1)

	return e
}
