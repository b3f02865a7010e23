// Package app wires the Catalog Store server.
package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/idfilter"
	"github.com/xenking/storefront/internal/storage/jsonfile"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the server.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("backend", cfg.Backend),
	)

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc-pause", time.Second, health.GCMaxPauseCheck(time.Second))

	products, closeCatalog, err := openCatalog(ctx, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer closeCatalog()

	if cfg.Prefilter.Enabled {
		filtered := idfilter.New(products, cfg.Prefilter.FalsePositiveRate)
		if err := filtered.Refresh(ctx); err != nil {
			return errors.Wrap(err, "build id prefilter")
		}
		go func() { _ = filtered.Run(ctx, cfg.Prefilter.Refresh) }()
		products = filtered
		lg.Info("Id prefilter enabled", zap.Duration("refresh", cfg.Prefilter.Refresh))
	}

	limiter := httpmiddleware.NewRateLimiter(httpmiddleware.RateLimitConfig{
		Max:     cfg.RateLimit.Max,
		Window:  cfg.RateLimit.Window,
		Methods: cfg.RateLimit.Methods,
	})
	go func() { _ = limiter.Run(ctx) }()

	root, err := NewRouter(RouterConfig{
		Config:         cfg,
		Products:       products,
		Health:         healthSvc,
		Limiter:        limiter,
		Logger:         zctx.From(ctx),
		MeterProvider:  m.MeterProvider(),
		TracerProvider: m.TracerProvider(),
	})
	if err != nil {
		return err
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           root,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
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

// openCatalog opens the configured backend and registers its readiness check.
func openCatalog(ctx context.Context, cfg *Config, hs *health.Health) (product.Repository, func(), error) {
	switch cfg.Backend {
	case BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.WithMaxConns(cfg.MaxConns))
		if err != nil {
			return nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		hs.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
		return postgres.NewProductRepository(pool), pool.Close, nil
	default:
		repo, err := jsonfile.NewProductRepository(cfg.ProductsFile)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open products file")
		}
		hs.AddReadinessCheck("products-file", time.Second, health.FileCheck(repo.Path()))
		return repo, func() {}, nil
	}
}

// RouterConfig collects the dependencies of the server's root handler.
type RouterConfig struct {
	Config         *Config
	Products       product.Repository
	Health         *health.Health
	Limiter        *httpmiddleware.RateLimiter
	Logger         *zap.Logger
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// NewRouter builds the instrumented root handler: health probes, the API
// routes and the middleware chain.
func NewRouter(rc RouterConfig) (http.Handler, error) {
	cfg := rc.Config

	h, err := handler.NewHandler(
		handler.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
		rc.Products,
		address.NewSimulated(cfg.AddressLatency),
		rc.MeterProvider,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", rc.Health.LiveEndpoint)
	mux.HandleFunc("GET /readyz", rc.Health.ReadyEndpoint)
	h.Register(mux)

	instrumented := otelhttp.NewHandler(mux, "catalog-store",
		otelhttp.WithTracerProvider(rc.TracerProvider),
		otelhttp.WithMeterProvider(rc.MeterProvider),
	)

	return httpmiddleware.Wrap(instrumented,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(rc.Logger),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:  cfg.CORS.Origins,
			AllowMethods:  []string{http.MethodGet, http.MethodPut, http.MethodOptions},
			AllowHeaders:  []string{"Content-Type", httpmiddleware.RequestIDHeader},
			ExposeHeaders: []string{httpmiddleware.RequestIDHeader},
			MaxAge:        cfg.CORS.MaxAge,
		}),
		rc.Limiter.Middleware(),
		httpmiddleware.LogRequests("/livez", "/readyz"),
	), nil
}
