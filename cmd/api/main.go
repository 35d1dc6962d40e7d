package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/complaint-service/internal/api/http"
	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/notify"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/ticket"
)

const (
	cacheKeyPrefix  = "complaint"
	shutdownTimeout = 10 * time.Second
)

func main() {
	var (
		envFiles    []string
		migrateOnly bool
	)
	flags := pflag.NewFlagSet("complaint-service", pflag.ExitOnError)
	flags.StringArrayVar(&envFiles, "env-file", nil, "dotenv file to load before the environment (repeatable)")
	flags.BoolVar(&migrateOnly, "migrate-only", false, "apply postgres migrations and exit")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(envFiles...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	complaints, checks, closeStore, err := openComplaintStore(ctx, cfg, logger, migrateOnly)
	if err != nil {
		logger.Fatal("failed to open complaint store", zap.Error(err))
	}
	defer closeStore()
	if migrateOnly {
		logger.Info("migrations complete; exiting")
		return
	}

	generator, err := ticket.NewGenerator(cfg.Ticket.Policy)
	if err != nil {
		logger.Fatal("invalid ticket policy", zap.Error(err))
	}

	sender, err := newSender(cfg.Mail, logger)
	if err != nil {
		logger.Fatal("failed to init mail sender", zap.Error(err))
	}

	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo:     complaints,
		Tickets:           generator,
		Notifier:          sender,
		Logger:            logger,
		MaxTicketAttempts: cfg.Ticket.MaxAttempts,
	})

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:         logger,
		Metrics:        metrics,
		Timeout:        cfg.App.RequestTimeout(),
		FrontendOrigin: cfg.App.FrontendOrigin,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks...),
		Complaints: handlers.NewComplaintsHandler(complaintService),
		Metrics:    metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownServer(app, shutdownTimeout, logger)
}

// openComplaintStore builds the configured repository, wrapping it with the
// Redis cache when enabled, and returns the readiness checks for its backends.
func openComplaintStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrateOnly bool) (repository.ComplaintRepository, []handlers.DependencyCheck, func(), error) {
	var (
		repo    repository.ComplaintRepository
		checks  []handlers.DependencyCheck
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Store.Driver {
	case config.StoreDriverBolt:
		if migrateOnly {
			return nil, nil, nil, fmt.Errorf("--migrate-only requires STORE_DRIVER=%s", config.StoreDriverPostgres)
		}
		db, err := persistence.NewBolt(cfg.Bolt, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, db.Close)
		repo = repository.NewBoltComplaintRepository(db.DB, persistence.ComplaintsBucket)
		checks = append(checks, handlers.DependencyCheck{Name: "bolt", Ping: db.Ping})
	default:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, pg.Close)
		if cfg.Postgres.RunMigrations || migrateOnly {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				closeAll()
				return nil, nil, nil, err
			}
		}
		repo = repository.NewComplaintRepository(pg.PoolHandle())
		checks = append(checks, handlers.DependencyCheck{Name: "postgres", Ping: pg.Ping})
	}

	if cfg.Redis.Enabled && !migrateOnly {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		closers = append(closers, redis.Close)
		cache := repository.NewRedisComplaintCache(redis.Client, cacheKeyPrefix, cfg.Redis.CacheTTL())
		repo = repository.NewCachedComplaintRepository(repo, cache, logger)
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Ping: redis.Ping})
	}

	return repo, checks, closeAll, nil
}

func newSender(cfg config.MailConfig, logger *zap.Logger) (notify.Sender, error) {
	if cfg.Server == "" {
		logger.Warn("MAIL_SERVER not provided; notifications will only be logged")
		return notify.NewLogSender(logger), nil
	}
	return notify.NewSMTPSender(cfg, logger)
}

// shutdownServer drains in-flight requests, giving up after timeout.
func shutdownServer(app *fiber.App, timeout time.Duration, logger *zap.Logger) {
	if err := app.ShutdownWithTimeout(timeout); err != nil {
		logger.Error("graceful shutdown failed", zap.Duration("timeout", timeout), zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
