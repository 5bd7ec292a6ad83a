package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/incident-service/internal/api/http"
	"github.com/spec-kit/incident-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/persistence"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/service"
	"github.com/spec-kit/incident-service/internal/storage"
	"github.com/spec-kit/incident-service/internal/worker"
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
	userRepo := repository.NewUserRepository(pool)
	incidentRepo := repository.NewIncidentRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	fileStore := storage.NewLocalStore(cfg.Upload.Dir, logger)

	authService := service.NewAuthService(cfg.Auth, userRepo, logger)
	incidentService := service.NewIncidentService(incidentRepo, userRepo, commentRepo, attachmentRepo, dispatcher, logger)
	commentService := service.NewCommentService(incidentRepo, commentRepo, dispatcher, logger)
	attachmentService := service.NewAttachmentService(incidentRepo, attachmentRepo, fileStore, dispatcher, cfg.Upload.MaxFileSizeBytes, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.Upload.MaxFileSizeBytes) * 4,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Incidents:      handlers.NewIncidentsHandler(incidentService, commentService, attachmentService),
		Users:          handlers.NewUsersHandler(userRepo),
		AuthMiddleware: authMiddleware,
		UploadDir:      cfg.Upload.Dir,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
