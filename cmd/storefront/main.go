package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/angelmondragon/shopster-storefront/api/routes"
	"github.com/angelmondragon/shopster-storefront/api/views"
	"github.com/angelmondragon/shopster-storefront/internal/admin"
	"github.com/angelmondragon/shopster-storefront/internal/auth"
	"github.com/angelmondragon/shopster-storefront/internal/cart"
	"github.com/angelmondragon/shopster-storefront/internal/catalog"
	"github.com/angelmondragon/shopster-storefront/internal/content"
	"github.com/angelmondragon/shopster-storefront/internal/reviews"
	"github.com/angelmondragon/shopster-storefront/internal/search"
	"github.com/angelmondragon/shopster-storefront/internal/sitemap"
	"github.com/angelmondragon/shopster-storefront/pkg/auth/session"
	"github.com/angelmondragon/shopster-storefront/pkg/backend"
	"github.com/angelmondragon/shopster-storefront/pkg/cache"
	"github.com/angelmondragon/shopster-storefront/pkg/config"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	"github.com/angelmondragon/shopster-storefront/pkg/metrics"
	"github.com/angelmondragon/shopster-storefront/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	outbound := &http.Client{
		Timeout:   cfg.Backend.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	backendClient, err := backend.NewClient(
		cfg.Backend.BaseURL,
		backend.WithHTTPClient(outbound),
		backend.WithBreaker(cfg.Backend),
		backend.WithMetrics(metrics.NewBackendMetrics(registry)),
		backend.WithLogger(logg),
	)
	if err != nil {
		logg.Error(ctx, "failed to create backend client", err)
		os.Exit(1)
	}

	loader := cache.New(redisClient, logg, cfg.Cache.Enabled)
	catalogService, err := catalog.NewService(backendClient, loader, cfg.Cache, logg)
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}
	contentService, err := content.NewService(backendClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to create content service", err)
		os.Exit(1)
	}
	reviewService, err := reviews.NewService(backendClient)
	if err != nil {
		logg.Error(ctx, "failed to create review service", err)
		os.Exit(1)
	}
	statsService, err := admin.NewService(backendClient)
	if err != nil {
		logg.Error(ctx, "failed to create stats service", err)
		os.Exit(1)
	}

	cartAPI, err := cart.NewBackendAPI(backendClient)
	if err != nil {
		logg.Error(ctx, "failed to create cart api", err)
		os.Exit(1)
	}
	cartIDs, err := cart.NewRedisIDStore(redisClient, cfg.Cart.IDTTL)
	if err != nil {
		logg.Error(ctx, "failed to create cart id store", err)
		os.Exit(1)
	}
	cartLocker, err := cart.NewRedisLocker(redisClient, cart.LockTTLFor(cfg.Cart.LockTTL, cfg.Backend.Timeout), cfg.Cart.LockWait)
	if err != nil {
		logg.Error(ctx, "failed to create cart locker", err)
		os.Exit(1)
	}
	carts, err := cart.NewFactory(cart.FactoryParams{
		API:             cartAPI,
		IDs:             cartIDs,
		Locker:          cartLocker,
		Metrics:         metrics.NewCartMetrics(registry),
		Logger:          logg,
		DefaultCurrency: cfg.Backend.DefaultCurrency,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cart factory", err)
		os.Exit(1)
	}

	sessions, err := session.NewManager(redisClient, cfg.Auth)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}
	authService, err := auth.NewService(auth.ServiceParams{
		Client:   backendClient,
		Sessions: sessions,
		Config:   cfg.Auth,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	searchClient := search.NewClient(cfg.Search, logg, search.WithImageBase(cfg.Backend.BaseURL))
	sitemapBuilder, err := sitemap.NewBuilder(backendClient, cfg.Site, logg)
	if err != nil {
		logg.Error(ctx, "failed to create sitemap builder", err)
		os.Exit(1)
	}

	renderer, err := views.New(cfg.Site, searchClient.Enabled(), logg)
	if err != nil {
		logg.Error(ctx, "failed to parse templates", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Views:       renderer,
		Redis:       redisClient,
		Idempotency: redisClient,
		Auth:        authService,
		Catalog:     catalogService,
		Content:     contentService,
		Reviews:     reviewService,
		Carts:       carts,
		Stats:       statsService,
		Search:      searchClient,
		Sitemap:     sitemapBuilder,
		Metrics:     metrics.NewHTTPMetrics(registry),
		Gatherer:    registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"addr":    addr,
		"backend": cfg.Backend.BaseURL,
	})
	logg.Info(logCtx, "starting storefront server")

	server := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "storefront"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "storefront server stopped unexpectedly", err)
			if cerr := redisClient.Close(); cerr != nil {
				logg.Error(logCtx, "error closing redis", cerr)
			}
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down storefront server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx, server, redisClient); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}
