package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/marketplace-service/internal/api/http"
	"github.com/spec-kit/marketplace-service/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/mail"
	"github.com/spec-kit/marketplace-service/internal/observability"
	"github.com/spec-kit/marketplace-service/internal/persistence"
	"github.com/spec-kit/marketplace-service/internal/service"
	"github.com/spec-kit/marketplace-service/internal/store"
	"github.com/spec-kit/marketplace-service/internal/worker"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
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

	var colls *store.Collections
	if pool := pg.PoolHandle(); pool != nil {
		colls = store.NewPostgresCollections(pool)
	} else {
		colls = store.NewMemoryCollections()
	}

	mailer := mail.New(cfg.Mail, logger)
	dispatcher := worker.StartNotificationWorker(mailer, logger)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Users:      colls.Users,
		Mailer:     mailer,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	session := auth.NewSessionResolver(authService.TokenManager(), colls.Users, cfg.Auth.CookieName)

	metrics := observability.NewMetrics()
	normalizer := apperrors.NewNormalizer(apperrors.ParseVerbosityMode(cfg.App.Env))

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, normalizer, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Users:      handlers.NewUsersHandler(authService, cfg.Auth, cfg.App.IsProduction()),
		UsersAdmin: handlers.NewUsersAdminHandler(colls),
		Jobs:       handlers.NewJobsHandler(colls, dispatcher),
		Reviews:    handlers.NewReviewsHandler(colls, dispatcher),
		Tours:      handlers.NewToursHandler(colls),
		Session:    session,
		Limiter:    httptransport.RateLimiter(redis.ClientHandle(), cfg.RateLimit, logger),
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
