package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailtriage/internal/ai"
	"mailtriage/internal/config"
	"mailtriage/internal/dedupe"
	"mailtriage/internal/gmail"
	"mailtriage/internal/handler"
	"mailtriage/internal/labelsync"
	"mailtriage/internal/logger"
	"mailtriage/internal/repository"
	"mailtriage/internal/repository/memory"
	"mailtriage/internal/repository/sqlstore"
	"mailtriage/internal/router"
	"mailtriage/internal/rules"
	"mailtriage/internal/service"
	"mailtriage/internal/sse"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type repositories struct {
	users       repository.UserRepository
	labels      repository.LabelRepository
	emails      repository.EmailRepository
	assignments repository.AssignmentRepository
	close       func() error
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal("Config validation failed:", err)
	}

	appLogger := logger.NewForEnv(cfg.Env)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		appLogger.Error("Failed to initialize storage:", err)
		os.Exit(1)
	}
	defer repos.close()
	appLogger.Info("Using", cfg.DatabaseDriver, "repositories")

	defaultLabels, err := config.LoadDefaultLabels(cfg.DefaultLabelsFile)
	if err != nil {
		appLogger.Error("Failed to load default labels:", err)
		os.Exit(1)
	}

	// Rule engine and synchronizer
	engine := rules.NewEngine(rules.WithCacheSize(cfg.RuleCacheSize))
	syncer := labelsync.New(engine,
		labelsync.WithWorkers(cfg.RuleWorkers),
		labelsync.WithLogger(appLogger.With("component", "labelsync")),
	)

	// SSE manager for real-time board updates
	sseManager := sse.NewSSEManager(appLogger)
	defer sseManager.Close()

	deduper := dedupe.New(dedupe.NewClient(cfg.RedisAddr, cfg.RedisPassword), dedupe.DefaultTTL)
	defer deduper.Close()

	aiClient := ai.NewAIClient(cfg.AIProvider, cfg.AIKey, appLogger)

	// Initialize services
	labelService := service.NewLabelService(repos.labels, repos.emails, repos.assignments, engine, syncer, sseManager, appLogger)
	emailService := service.NewEmailService(repos.emails, repos.labels, repos.users, repos.assignments, syncer, aiClient, sseManager, deduper, appLogger)
	authService := service.NewAuthService(repos.users, labelService, defaultLabels, appLogger)
	importer := gmail.NewImporter(emailService, cfg.MaxFetchEmails, appLogger)

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	store := handler.NewSessionStore([]byte(cfg.SessionSecret), cfg.IsProduction())
	router.SetupRoutes(e, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, store, cfg, e.Logger),
		Labels:  handler.NewLabelHandler(labelService, e.Logger),
		Emails:  handler.NewEmailHandler(emailService, sseManager, e.Logger),
		Webhook: handler.NewWebhookHandler(emailService, e.Logger),
		Import:  handler.NewImportHandler(importer, e.Logger),
	}, cfg.WebhookUser, cfg.WebhookPassword)

	go func() {
		appLogger.Info("Starting server on port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Failed to start server:", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down")

	// Close SSE streams first so Shutdown does not wait on them
	sseManager.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Failed to shut down server:", err)
	}
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.DatabaseDriver == "memory" {
		return &repositories{
			users:       memory.NewInMemoryUserRepository(),
			labels:      memory.NewInMemoryLabelRepository(),
			emails:      memory.NewInMemoryEmailRepository(),
			assignments: memory.NewInMemoryAssignmentRepository(),
			close:       func() error { return nil },
		}, nil
	}

	store, err := sqlstore.Open(ctx, sqlstore.Dialect(cfg.DatabaseDriver), cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &repositories{
		users:       sqlstore.NewUserRepository(store),
		labels:      sqlstore.NewLabelRepository(store),
		emails:      sqlstore.NewEmailRepository(store),
		assignments: sqlstore.NewAssignmentRepository(store),
		close:       store.Close,
	}, nil
}
