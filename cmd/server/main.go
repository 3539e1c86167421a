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

	"github.com/iliyamo/mechanic-shop/internal/auth"
	"github.com/iliyamo/mechanic-shop/internal/config"
	"github.com/iliyamo/mechanic-shop/internal/database"
	"github.com/iliyamo/mechanic-shop/internal/handler"
	"github.com/iliyamo/mechanic-shop/internal/logging"
	"github.com/iliyamo/mechanic-shop/internal/metrics"
	"github.com/iliyamo/mechanic-shop/internal/middleware"
	"github.com/iliyamo/mechanic-shop/internal/queue"
	"github.com/iliyamo/mechanic-shop/internal/repository"
	"github.com/iliyamo/mechanic-shop/internal/router"
	"github.com/iliyamo/mechanic-shop/internal/seed"
	"github.com/iliyamo/mechanic-shop/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, "info").Error(context.Background(), "invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.InsecureSecret {
		log.Warn(ctx, "JWT_SECRET is not set; using the insecure development secret", "env", cfg.Env)
	}

	m := metrics.New(cfg.MetricsEnabled)

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info(ctx, "database connected", "driver", db.Driver, "dsn", db.Redacted)

	guard := database.NewGuard(
		database.NewBackend(db, cfg.MigrationLockTimeout, log),
		cfg.AutoMigrate,
		database.WithObserver(func(o database.Outcome) { m.RecordMigration(string(o)) }),
	)
	if res := guard.Run(ctx); res.Err != nil {
		log.Error(ctx, "schema migration failed; continuing with the existing schema", "outcome", string(res.Outcome), "error", res.Err)
	} else {
		log.Info(ctx, "schema migration finished", "outcome", string(res.Outcome))
	}

	customers := repository.NewCustomerRepo(db.DB)
	mechanics := repository.NewMechanicRepo(db.DB)
	if cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		res, err := seed.Apply(ctx, f, customers, mechanics, cfg.BcryptCost, log)
		if err != nil {
			return err
		}
		log.Info(ctx, "seed applied", "created", res.Created, "skipped", res.Skipped)
	}

	codec, err := auth.NewCodec([]byte(cfg.JWTSecret), cfg.JWTAlgorithm, cfg.JWTTTL)
	if err != nil {
		return err
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Info(ctx, "redis not available; response cache and rate limiting disabled")
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log, m)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log, m)

	var events handler.EventPublisher
	if cfg.EventsEnabled {
		pub := service.NewTicketPublisher(cfg.AMQPURL, nil, log, m)
		defer pub.Close()
		events = pub

		consumer := queue.NewConsumer(cfg.AMQPURL, queue.DefaultLogDir, log, m)
		go func() { _ = consumer.Run(ctx) }()
	}

	vehicles := repository.NewVehicleRepo(db.DB)
	e := router.New(router.Deps{
		Log:         log,
		Gate:        middleware.NewGate(auth.NewGuard(codec), m),
		Cache:       cache,
		Limiter:     limiter,
		Metrics:     m.Handler(),
		CORSOrigins: cfg.CORSOrigins,

		Auth:      handler.NewAuthHandler(auth.NewService(repository.NewPrincipalRepo(db.DB), codec), m),
		Customers: handler.NewCustomerHandler(customers, cfg.BcryptCost),
		Mechanics: handler.NewMechanicHandler(mechanics, cfg.BcryptCost, cache),
		Vehicles:  handler.NewVehicleHandler(vehicles),
		Inventory: handler.NewInventoryHandler(repository.NewInventoryRepo(db.DB), cache),
		Tickets:   handler.NewTicketHandler(repository.NewTicketRepo(db.DB), vehicles, events, cache),
		Ops:       handler.NewOpsHandler(db),
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", addr, "env", cfg.Env)
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
