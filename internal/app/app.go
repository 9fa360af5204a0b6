package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/api"
	"github.com/dealscout/dealscout/internal/cache"
	"github.com/dealscout/dealscout/internal/catalog"
	"github.com/dealscout/dealscout/internal/check"
	"github.com/dealscout/dealscout/internal/client/deals"
	"github.com/dealscout/dealscout/internal/client/storefront"
	"github.com/dealscout/dealscout/internal/pipeline"
	"github.com/dealscout/dealscout/internal/resolve"
	"github.com/dealscout/dealscout/pkg/health"
	"github.com/dealscout/dealscout/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("resolver", cfg.Resolver.Strategy),
		zap.String("cache", cfg.Cache.Backend),
	)

	// Upstream clients.
	dealsClient := deals.NewClient(deals.Config{
		BaseURL: cfg.Deals.URL,
		APIKey:  cfg.Deals.Key,
		Country: cfg.Deals.Country,
		Timeout: cfg.Deals.Timeout,
	})
	storeClient := storefront.NewClient(storefront.Config{
		BaseURL: cfg.Storefront.URL,
		Timeout: cfg.Storefront.Timeout,
	})

	// Payload cache backend.
	var payloadCache cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:      cfg.Cache.Redis.Addr,
			Password:  cfg.Cache.Redis.Password,
			DB:        cfg.Cache.Redis.DB,
			KeyPrefix: cfg.Cache.Redis.KeyPrefix,
		})
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() { _ = r.Close() }()
		payloadCache = r
	default:
		mem := cache.NewMemory()
		defer func() { _ = mem.Close() }()
		payloadCache = mem
	}

	// Title resolution strategy. The remote strategy maps titles through
	// the aggregator and supplies trading-card data; the local one matches
	// against the storefront catalog.
	var (
		resolver resolve.Resolver
		provider *catalog.Provider
	)
	hasCards := cfg.Resolver.Strategy == "remote"
	if hasCards {
		resolver = resolve.NewRemote(dealsClient)
	} else {
		var source catalog.Source = storeClient
		if cfg.Catalog.Source == "file" {
			source = catalog.FileSource{Path: cfg.Catalog.Path}
		}
		provider = catalog.NewProvider(source, payloadCache, cfg.Catalog.TTL)
		resolver = resolve.NewLocal(provider)
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc-pause", time.Second, health.GCMaxPauseCheck(500*time.Millisecond))
	healthSvc.AddReadinessCheck("aggregator", 10*time.Second, health.HTTPReachableCheck(nil, cfg.Deals.URL))
	if provider != nil {
		// Get both probes and warms the catalog; a failed load is retried
		// on the next probe.
		healthSvc.AddReadinessCheck("catalog", cfg.Storefront.Timeout, func(ctx context.Context) error {
			if provider.Ready() {
				return nil
			}
			_, err := provider.Get(ctx)
			return err
		})
	}
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Run registry and the check orchestrator.
	registry := check.NewRegistry(cfg.Runs.TTL)
	registry.Start(ctx)

	checks := check.NewService(ctx, check.Deps{
		Resolver:  resolver,
		Prices:    dealsClient,
		Wishlist:  storeClient,
		Registry:  registry,
		Pacer:     pipeline.NewPacer(cfg.Pricing.Interval),
		ChunkSize: cfg.Pricing.ChunkSize,
		HasCards:  hasCards,
	})

	// Router: health endpoints + check API on one server.
	r := chi.NewRouter()
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	api.NewHandler(checks).Routes(r)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		// Request contexts inherit the app logger and telemetry but not
		// the app lifetime: graceful shutdown must not kill in-flight
		// requests.
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
		Handler: httpmiddleware.Wrap(r,
			httpmiddleware.Recovery(),
			cors.Handler(cors.Options{
				AllowedOrigins:   cfg.CORS.Origins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("dealscout-api",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
