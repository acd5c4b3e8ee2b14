package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	_ "github.com/lib/pq"

	"github.com/Proton-105/gatekeeper-bot/internal/access"
	"github.com/Proton-105/gatekeeper-bot/internal/bot"
	"github.com/Proton-105/gatekeeper-bot/internal/database"
	apperrors "github.com/Proton-105/gatekeeper-bot/internal/errors"
	"github.com/Proton-105/gatekeeper-bot/internal/health"
	"github.com/Proton-105/gatekeeper-bot/internal/i18n"
	"github.com/Proton-105/gatekeeper-bot/internal/idempotency"
	"github.com/Proton-105/gatekeeper-bot/internal/lifecycle"
	"github.com/Proton-105/gatekeeper-bot/internal/lookup"
	"github.com/Proton-105/gatekeeper-bot/internal/middleware"
	"github.com/Proton-105/gatekeeper-bot/internal/ratelimit"
	"github.com/Proton-105/gatekeeper-bot/internal/state"
	"github.com/Proton-105/gatekeeper-bot/internal/store"
	"github.com/Proton-105/gatekeeper-bot/internal/user"
	"github.com/Proton-105/gatekeeper-bot/pkg/config"
	"github.com/Proton-105/gatekeeper-bot/pkg/graceful"
	"github.com/Proton-105/gatekeeper-bot/pkg/logger"
	"github.com/Proton-105/gatekeeper-bot/pkg/metrics"
	redisclient "github.com/Proton-105/gatekeeper-bot/pkg/redis"
)

const (
	metricsInterval       = time.Minute
	cleanupInterval       = 10 * time.Minute
	rateLimitMaxAge       = time.Hour
	idempotencyMaxTTL     = 25 * time.Hour
	healthCheckTimeout    = 2 * time.Second
	sentryFlushTimeout    = 2 * time.Second
	httpReadHeaderTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gatekeeper-bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(*cfg)
	log.Info("starting gatekeeper bot", slog.String("config", cfg.String()))

	config.Watch(v, func(next *config.Config) {
		logger.SetLevel(next.Logger.Level)
		log.Info("configuration reloaded", slog.String("log_level", logger.Level().String()))
	}, func(err error) {
		log.Warn("ignoring invalid configuration change", slog.Any("error", err))
	})

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.AppEnv,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(sentryFlushTimeout)
	}

	shutdown := lifecycle.NewShutdown(log)
	checker := health.NewChecker(log, healthCheckTimeout)

	var rdb *redisclient.Client
	if cfg.RedisEnabled() {
		rdb, err = redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		shutdown.Register("redis", func(context.Context) error { return rdb.Close() })
		checker.AddCheck("redis", health.NewRedisChecker(rdb))
	}

	userStore, err := openStore(ctx, cfg, rdb, shutdown, log)
	if err != nil {
		return err
	}
	checker.AddCheck("store", userStore)

	catalog, err := i18n.Load(cfg.Bot.DefaultLang)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	sessions := state.NewSessions(sessionStorage(cfg, rdb, log), log, metrics.RecordModeTransition)

	tb, err := bot.NewTelebot(cfg.Bot, log)
	if err != nil {
		return err
	}
	checker.AddCheck("telegram", health.NewTelegramChecker(tb))

	gate := access.NewGate(
		userStore,
		access.NewTelegramMembership(tb, cfg.Access.Channel, cfg.Access.MembershipTimeout),
		access.SystemClock{},
		access.Policy{
			TrialDuration:   cfg.Access.TrialDuration,
			PremiumDuration: cfg.Access.PremiumDuration,
			AdminIDs:        cfg.Access.AdminIDs,
		},
		log,
	)

	client := lookup.NewClient(cfg.Lookup.Timeout, log,
		lookup.WithObserver(metrics.RecordLookup),
		lookup.WithBreakerListener(func(name string, _, to apperrors.State) {
			metrics.SetCircuitState(name, int(to))
		}),
	)

	stats := user.NewService(userStore, cfg.Bot.CreatedDate, log)

	var workers sync.WaitGroup
	goWorker := func(fn func(context.Context)) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			fn(ctx)
		}()
	}

	limiter := newLimiter(cfg, rdb, goWorker, log)

	var idem idempotency.Manager
	if rdb != nil {
		idem = idempotency.NewManager(idempotency.NewRedisStore(rdb.Client, log), log)
		goWorker(idempotency.NewCleaner(rdb.Client, log, cleanupInterval, idempotencyMaxTTL).Run)
	}

	b := bot.New(tb, *cfg, bot.Deps{
		Gate:        gate,
		Sessions:    sessions,
		Lookups:     lookup.NewDispatcherFromConfig(cfg.Lookup, client, log),
		Stats:       stats,
		Catalog:     catalog,
		Idempotency: idem,
		RateLimit: middleware.NewRateLimitMiddleware(
			limiter,
			ratelimit.NewRules(cfg.RateLimit, cfg.Access.AdminIDs...),
			catalog,
			log,
		),
	}, log)

	goWorker(metrics.NewCollector(stats, sessions, metricsInterval, log).Run)

	status := lifecycle.NewStatus(checker, log)
	server := graceful.NewServer(log, &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           health.Routes(status, logger.Middleware, middleware.New(log)),
		ReadHeaderTimeout: httpReadHeaderTimeout,
	}, cfg.Server.ShutdownTimeout)

	serverErr := make(chan error, 1)
	workers.Add(1)
	go func() {
		defer workers.Done()
		serverErr <- server.ListenAndServe(ctx)
	}()

	go b.Start()
	shutdown.Register("workers", func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			workers.Wait()
			close(done)
		}()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	shutdown.Register("telegram", func(context.Context) error {
		b.Stop()
		return nil
	})

	log.Info("gatekeeper bot started", slog.String("ops_addr", cfg.Server.Port))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
		if runErr != nil {
			runErr = fmt.Errorf("ops server: %w", runErr)
		}
		stop()
	}

	status.MarkDraining()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return errors.Join(runErr, shutdown.Execute(shutdownCtx))
}

func openStore(ctx context.Context, cfg *config.Config, rdb *redisclient.Client, shutdown *lifecycle.Shutdown, log *slog.Logger) (store.Store, error) {
	if cfg.Storage.Driver != "postgres" {
		return store.NewRedisStore(rdb.Client, log), nil
	}

	db, err := sql.Open("postgres", cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	shutdown.Register("postgres", func(context.Context) error { return db.Close() })

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := database.NewMigrator(db, log).ApplyDir(ctx, cfg.Storage.MigrationsDir); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return store.NewPostgresStore(db, log), nil
}

func sessionStorage(cfg *config.Config, rdb *redisclient.Client, log *slog.Logger) state.Storage {
	if cfg.Session.Backend == "redis" {
		return state.NewRedisStorage(rdb.Client, log)
	}
	return state.NewMemoryStorage()
}

func newLimiter(cfg *config.Config, rdb *redisclient.Client, goWorker func(func(context.Context)), log *slog.Logger) ratelimit.Limiter {
	memory := ratelimit.NewMemoryLimiter(log)
	goWorker(func(ctx context.Context) {
		memory.RunCleanup(ctx, cleanupInterval, rateLimitMaxAge)
	})

	if cfg.RateLimit.Backend != "redis" {
		return memory
	}

	goWorker(ratelimit.NewCleaner(rdb.Client, log, cleanupInterval, rateLimitMaxAge).Run)
	return ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rdb.Client, log), memory, log)
}
