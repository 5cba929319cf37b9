package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/turno-service/internal/api/http"
	"github.com/spec-kit/turno-service/internal/api/http/handlers"
	"github.com/spec-kit/turno-service/internal/auth"
	"github.com/spec-kit/turno-service/internal/clock"
	"github.com/spec-kit/turno-service/internal/config"
	"github.com/spec-kit/turno-service/internal/events"
	"github.com/spec-kit/turno-service/internal/observability"
	"github.com/spec-kit/turno-service/internal/persistence"
	"github.com/spec-kit/turno-service/internal/repository"
	"github.com/spec-kit/turno-service/internal/service"
	"github.com/spec-kit/turno-service/internal/worker"
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

	pool := pg.PoolHandle()

	var (
		ticketRepo       repository.TicketRepository
		cafeteriaRepo    repository.CafeteriaRepository
		penaltyRepo      repository.PenaltyRepository
		userRepo         repository.UserRepository
		turnEventRepo    repository.TurnEventRepository
		notificationRepo repository.NotificationRepository
	)
	if pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		cafeteriaRepo = repository.NewCafeteriaRepository(pool)
		penaltyRepo = repository.NewPenaltyRepository(pool)
		userRepo = repository.NewUserRepository(pool)
		turnEventRepo = repository.NewTurnEventRepository(pool)
		notificationRepo = repository.NewNotificationRepository(pool)
	} else {
		store := repository.NewMemoryStore()
		ticketRepo = store.Tickets()
		cafeteriaRepo = store.Cafeterias()
		penaltyRepo = store.Penalties()
		userRepo = store.Users()
		turnEventRepo = store.TurnEvents()
		notificationRepo = store.Notifications()
	}

	var (
		codeAllocator repository.CodeAllocator
		qrStore       repository.QRStore
	)
	if redis.Client != nil {
		codeAllocator = repository.NewRedisCodeAllocator(redis.Client)
		qrStore = repository.NewRedisQRStore(redis.Client)
	} else {
		codeAllocator = repository.NewMemoryCodeAllocator()
		qrStore = repository.NewMemoryQRStore()
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	dispatcher := events.NewInMemoryDispatcher()

	turnoService := service.NewTurnoService(cfg.Turno, service.TurnoDependencies{
		TicketRepo:    ticketRepo,
		CafeteriaRepo: cafeteriaRepo,
		PenaltyRepo:   penaltyRepo,
		TurnEventRepo: turnEventRepo,
		CodeAllocator: codeAllocator,
		Clock:         clock.System(),
		Dispatcher:    dispatcher,
		Logger:        logger,
		Metrics:       metrics,
	})
	queryService := service.NewQueryService(ticketRepo, penaltyRepo)
	cafeteriaService := service.NewCafeteriaService(cafeteriaRepo, dispatcher)
	qrService := service.NewQRService(qrStore, cafeteriaRepo, cfg.QR)
	authService := service.NewAuthService(cfg.Auth, userRepo, logger)
	notificationService := service.NewNotificationService(dispatcher, notificationRepo, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	if err := authService.EnsureAdmin(ctx); err != nil {
		logger.Fatal("failed to bootstrap admin account", zap.Error(err))
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Turnos:         handlers.NewTurnosHandler(turnoService, queryService, qrService, cfg.Turno),
		AdminTurnos:    handlers.NewAdminTurnosHandler(turnoService, queryService, cfg.Turno),
		Cafeterias:     handlers.NewCafeteriasHandler(cafeteriaService, queryService, qrService, cfg.Turno, cfg.QR),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
		Registry:       registry,
	})

	sweeper := worker.NewSweeper(turnoService, cfg.Turno.SweepInterval(), logger)
	go sweeper.Run(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
