package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fieldserve/fieldserve/internal/api/http"
	"github.com/fieldserve/fieldserve/internal/api/http/handlers"
	"github.com/fieldserve/fieldserve/internal/auth"
	"github.com/fieldserve/fieldserve/internal/config"
	"github.com/fieldserve/fieldserve/internal/events"
	"github.com/fieldserve/fieldserve/internal/lifecycle"
	"github.com/fieldserve/fieldserve/internal/observability"
	"github.com/fieldserve/fieldserve/internal/persistence"
	"github.com/fieldserve/fieldserve/internal/repository"
	"github.com/fieldserve/fieldserve/internal/service"
	"github.com/fieldserve/fieldserve/internal/worker"
)

func main() {
	cfg, err := config.Load()
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	natsConn, err := persistence.NewNATS(cfg.NATS, logger)
	if err != nil {
		logger.Fatal("failed to connect nats", zap.Error(err))
	}
	defer natsConn.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	policyRepo := repository.NewSLAPolicyRepository(pool)

	dispatcher := newDispatcher(cfg, redis, natsConn, logger)

	engine := lifecycle.NewEngine(lifecycle.Dependencies{
		TicketRepo: ticketRepo,
		StaffRepo:  staffRepo,
		PolicyRepo: policyRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	authService := service.NewAuthService(*cfg, staffRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), staffRepo)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Staff:          handlers.NewStaffHandler(authService),
		Tickets:        handlers.NewTicketsHandler(engine),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func newDispatcher(cfg *config.Config, redis *persistence.Redis, natsConn *persistence.NATS, logger *zap.Logger) events.Dispatcher {
	switch cfg.Events.Backend {
	case "redis":
		return events.NewRedisDispatcher(redis.Client, cfg.Events.Subject, logger)
	case "nats":
		if natsConn.Conn == nil {
			logger.Warn("events backend is nats but NATS_URL is unset; using in-memory dispatcher")
			return events.NewInMemoryDispatcher()
		}
		return events.NewNATSDispatcher(natsConn.Conn, cfg.Events.Subject, logger)
	default:
		return events.NewInMemoryDispatcher()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
