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
	"go.uber.org/multierr"

	"github.com/krestenlaust/micro-stregsystemet/api/routes"
	"github.com/krestenlaust/micro-stregsystemet/internal/buystring"
	"github.com/krestenlaust/micro-stregsystemet/internal/feedback"
	"github.com/krestenlaust/micro-stregsystemet/internal/members"
	"github.com/krestenlaust/micro-stregsystemet/internal/orders"
	"github.com/krestenlaust/micro-stregsystemet/internal/products"
	"github.com/krestenlaust/micro-stregsystemet/internal/quickbuy"
	"github.com/krestenlaust/micro-stregsystemet/internal/sales"
	"github.com/krestenlaust/micro-stregsystemet/pkg/config"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db"
	"github.com/krestenlaust/micro-stregsystemet/pkg/logger"
	"github.com/krestenlaust/micro-stregsystemet/pkg/metrics"
	"github.com/krestenlaust/micro-stregsystemet/pkg/migrate"
	"github.com/krestenlaust/micro-stregsystemet/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

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
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "redis not configured; alias cache and idempotency disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	saleMetrics := metrics.NewSaleMetrics(registry)

	memberRepo := members.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	aliasRepo := products.NewAliasRepository(dbClient.DB())
	saleRepo := sales.NewRepository(dbClient.DB())

	var aliases buystring.AliasLookup = aliasRepo
	if redisClient != nil {
		cached, err := products.NewCachedAliasLookup(aliasRepo, redisClient, cfg.Sale.AliasCacheTTL, logg)
		if err != nil {
			logg.Error(ctx, "failed to create alias cache", err)
			os.Exit(1)
		}
		aliases = cached
	}

	resolver, err := buystring.NewResolver(aliases)
	if err != nil {
		logg.Error(ctx, "failed to create alias resolver", err)
		os.Exit(1)
	}

	estimator, err := members.NewIntakeEstimator(saleRepo)
	if err != nil {
		logg.Error(ctx, "failed to create intake estimator", err)
		os.Exit(1)
	}

	engine, err := orders.NewEngine(orders.EngineParams{
		Tx:       dbClient,
		Members:  memberRepo,
		Products: productRepo,
		Sales:    saleRepo,
		Metrics:  saleMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create order engine", err)
		os.Exit(1)
	}

	quickbuyService, err := quickbuy.NewService(quickbuy.Params{
		Resolver:           resolver,
		Parser:             buystring.Parser{MaxQuantity: cfg.Sale.MaxQuantity},
		Members:            memberRepo,
		Rooms:              productRepo,
		Sales:              saleRepo,
		Engine:             engine,
		Estimator:          estimator,
		Calculator:         feedback.NewCalculator(cfg.Sale.LowBalanceThreshold, cfg.Sale.MultibuyWindow),
		CoffeeMasterWindow: cfg.Sale.CoffeeMasterWindow,
		Metrics:            saleMetrics,
		Logger:             logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create quickbuy service", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"driver": cfg.DB.Driver,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, registry, quickbuyService, memberRepo, saleRepo, productRepo, aliasRepo),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	err = multierr.Append(err, dbClient.Close())
	if redisClient != nil {
		err = multierr.Append(err, redisClient.Close())
	}
	if err != nil {
		logg.Error(shutdownCtx, "error during shutdown", err)
		exitCode = 1
	}
	os.Exit(exitCode)
}
