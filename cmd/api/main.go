package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/calderhq/storefront-backend/api/controllers"
	"github.com/calderhq/storefront-backend/api/routes"
	"github.com/calderhq/storefront-backend/internal/brands"
	"github.com/calderhq/storefront-backend/internal/catalogmedia"
	"github.com/calderhq/storefront-backend/internal/categories"
	"github.com/calderhq/storefront-backend/internal/mediaassets"
	"github.com/calderhq/storefront-backend/internal/products"
	"github.com/calderhq/storefront-backend/internal/variants"
	"github.com/calderhq/storefront-backend/pkg/config"
	"github.com/calderhq/storefront-backend/pkg/db"
	"github.com/calderhq/storefront-backend/pkg/logger"
	"github.com/calderhq/storefront-backend/pkg/metrics"
	"github.com/calderhq/storefront-backend/pkg/migrate"
	"github.com/calderhq/storefront-backend/pkg/redis"
	"github.com/calderhq/storefront-backend/pkg/storage/cloudinary"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	storageClient, err := cloudinary.NewClient(cfg.Cloudinary)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap blob storage", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	catalogMetrics := metrics.NewCatalogMetrics(registry)

	coordinator, err := catalogmedia.NewCoordinator(dbClient, mediaassets.NewRepository(dbClient.DB()), storageClient, logg, catalogMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create media coordinator", err)
		os.Exit(1)
	}

	categoryRepo := categories.NewRepository(dbClient.DB())
	brandRepo := brands.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	variantRepo := variants.NewRepository(dbClient.DB())

	categoryService, err := categories.NewService(categoryRepo, dbClient, coordinator)
	if err != nil {
		logg.Error(context.Background(), "failed to create category service", err)
		os.Exit(1)
	}

	brandService, err := brands.NewService(brandRepo, dbClient, coordinator)
	if err != nil {
		logg.Error(context.Background(), "failed to create brand service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(productRepo, brandRepo, categoryRepo, dbClient, coordinator)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	variantService, err := variants.NewService(variantRepo, productRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create variant service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:   cfg,
			Logger:   logg,
			Redis:    redisClient,
			Registry: registry,
			Health: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
				"storage":  storageClient,
			},
			Categories: categoryService,
			Brands:     brandService,
			Products:   productService,
			Variants:   variantService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
