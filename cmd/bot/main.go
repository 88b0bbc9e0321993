package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/adilkhan-b/scentwatch/internal/catalog"
	"github.com/adilkhan-b/scentwatch/internal/notify"
	"github.com/adilkhan-b/scentwatch/internal/ops"
	"github.com/adilkhan-b/scentwatch/internal/pipeline"
	"github.com/adilkhan-b/scentwatch/internal/scheduler"
	"github.com/adilkhan-b/scentwatch/internal/scrape"
	"github.com/adilkhan-b/scentwatch/internal/subscriptions"
	"github.com/adilkhan-b/scentwatch/internal/telegram"
	"github.com/adilkhan-b/scentwatch/pkg/config"
	"github.com/adilkhan-b/scentwatch/pkg/db"
	"github.com/adilkhan-b/scentwatch/pkg/logger"
	"github.com/adilkhan-b/scentwatch/pkg/metrics"
	"github.com/adilkhan-b/scentwatch/pkg/redis"
)

const serviceName = "scentwatch-bot"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
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

	if err := db.MaybeAutoMigrate(context.Background(), cfg, dbClient, logg); err != nil {
		logg.Error(context.Background(), "failed to migrate schema", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	jobMetrics := metrics.NewJobMetrics(promRegistry)
	dispatchMetrics := metrics.NewDispatchMetrics(promRegistry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting restock tracker")

	app, err := buildApp(cfg, logg, dbClient, redisClient, jobMetrics, dispatchMetrics, promRegistry)
	if err != nil {
		logg.Error(ctx, "failed to wire application", err)
		os.Exit(1)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return app.scheduler.Run(groupCtx) })
	group.Go(func() error { return app.poller.Run(groupCtx) })
	group.Go(func() error { return app.opsServer.Run(groupCtx) })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "service stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "shutting down gracefully")
}

type app struct {
	scheduler *scheduler.Service
	poller    *telegram.Poller
	opsServer *ops.Server
}

func buildApp(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	jobMetrics *metrics.JobMetrics,
	dispatchMetrics *metrics.DispatchMetrics,
	promRegistry *prometheus.Registry,
) (*app, error) {
	catalogRepo := catalog.NewRepository(dbClient.DB())
	subsRepo := subscriptions.NewRepository(dbClient.DB())

	subsService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Store:   subsRepo,
		Catalog: catalogRepo,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}

	api, err := telegram.NewAPI(cfg.Telegram)
	if err != nil {
		return nil, err
	}
	transport, err := telegram.NewTransport(api)
	if err != nil {
		return nil, err
	}

	runtime := notify.NewRuntime()
	dispatcher, err := notify.NewDispatcher(notify.DispatcherParams{
		Transport:   transport,
		Directory:   subsRepo,
		Runtime:     runtime,
		Logger:      logg,
		Metrics:     dispatchMetrics,
		Config:      cfg.Notify,
		AdminChatID: cfg.Telegram.AdminChatID,
	})
	if err != nil {
		return nil, err
	}

	reconciler, err := catalog.NewReconciler(catalogRepo, logg, nil)
	if err != nil {
		return nil, err
	}

	job, err := pipeline.NewJob(pipeline.JobParams{
		Fetcher:    scrape.NewFetcher(cfg.Scrape, logg),
		Parser:     scrape.NewParser(logg),
		Reconciler: reconciler,
		Dispatcher: dispatcher,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	var lock scheduler.Lock
	if redisClient != nil {
		lock, err = scheduler.NewRedisLock(redisClient, redisClient.LockKey(pipeline.JobName), 0)
		if err != nil {
			return nil, err
		}
	} else {
		lock = scheduler.NewLocalLock()
	}

	schedService, err := scheduler.NewService(scheduler.ServiceParams{
		Logger:   logg,
		Registry: scheduler.NewRegistry(job),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Scrape.Interval,
	})
	if err != nil {
		return nil, err
	}

	handler, err := telegram.NewHandler(telegram.HandlerParams{
		API:           api,
		Subscriptions: subsService,
		Broadcaster:   dispatcher,
		Runtime:       runtime,
		Logger:        logg,
		AdminChatID:   cfg.Telegram.AdminChatID,
		AdminCooldown: cfg.Notify.AdminCooldown,
	})
	if err != nil {
		return nil, err
	}
	poller, err := telegram.NewPoller(api, handler, logg, cfg.Telegram)
	if err != nil {
		return nil, err
	}

	pingers := map[string]ops.Pinger{"db": dbClient}
	if redisClient != nil {
		pingers["redis"] = redisClient
	}
	opsServer, err := ops.NewServer(ops.ServerParams{
		Logger:   logg,
		Registry: promRegistry,
		Pingers:  pingers,
		Config:   cfg.Ops,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		scheduler: schedService,
		poller:    poller,
		opsServer: opsServer,
	}, nil
}
