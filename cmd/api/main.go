// Package main is the entry point for the Facturio follow-up service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/facturio/backend/config"
	"github.com/facturio/backend/internal/application/usecase/dispatch"
	"github.com/facturio/backend/internal/application/usecase/render"
	"github.com/facturio/backend/internal/infra/circuitbreaker"
	"github.com/facturio/backend/internal/infra/db"
	"github.com/facturio/backend/internal/infra/server/router"
	"github.com/facturio/backend/internal/integration/adapters"
	"github.com/facturio/backend/internal/integration/ai"
	"github.com/facturio/backend/internal/integration/document"
	"github.com/facturio/backend/internal/integration/email"
	"github.com/facturio/backend/internal/integration/entrypoint/controller"
	"github.com/facturio/backend/internal/integration/entrypoint/middleware"
	"github.com/facturio/backend/internal/integration/locks"
	"github.com/facturio/backend/internal/integration/persistence"
	"github.com/facturio/backend/internal/integration/persistence/model"
)

func main() {
	// Load .env file if it exists (development only)
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg := config.Load()

	slog.Info("Starting Facturio follow-up service",
		"environment", cfg.Server.Environment,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Initialize database connection
	database, err := db.NewPostgresConnection(&cfg.Database)
	if err != nil {
		slog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}()

	if err := database.AutoMigrate(
		&model.UserModel{},
		&model.ClientModel{},
		&model.InvoiceModel{},
		&model.QuoteModel{},
		&model.ReminderTemplateModel{},
		&model.FollowUpModel{},
		&model.OutboxModel{},
		&model.EventModel{},
	); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed successfully")

	// Redis backs the per-parent dispatch lock
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.Password != "" {
		redisOpts.Password = cfg.Redis.Password
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Create repositories
	followUpRepo := persistence.NewFollowUpRepository(database.DB())
	invoiceRepo := persistence.NewInvoiceRepository(database.DB())
	quoteRepo := persistence.NewQuoteRepository(database.DB())
	clientRepo := persistence.NewClientRepository(database.DB())
	userRepo := persistence.NewUserRepository(database.DB())
	templateRepo := persistence.NewTemplateRepository(database.DB())
	outboxRepo := persistence.NewOutboxRepository(database.DB())
	eventRepo := persistence.NewEventRepository(database.DB())

	// Create adapters/services
	sender := email.NewResendClient(cfg.Email.ResendAPIKey, cfg.Email.FromName, cfg.Email.FromEmail)
	entitlements := adapters.NewEntitlementService(userRepo)
	linkService := adapters.NewLinkService(cfg.Links.AppBaseURL, cfg.Links.Secret, cfg.Links.TokenTTL, nil)
	parentLocker := locks.NewRedisParentLocker(redisClient, cfg.FollowUp.LockTTL)
	resolver := render.NewResolver(templateRepo, cfg.FollowUp.DefaultLocale)

	documentBuilder, err := document.NewBuilder()
	if err != nil {
		slog.Error("Failed to initialize document builder", "error", err)
		os.Exit(1)
	}
	documentGenerator := document.NewGenerator(documentBuilder, cfg.Documents.RendererURLs, cfg.Documents.RequestTimeout, nil)
	if len(cfg.Documents.RendererURLs) == 0 {
		slog.Info("Document attachments disabled, no renderer backends configured")
	}

	var polisher *ai.GeminiPolisher
	if cfg.AI.GeminiAPIKey != "" {
		polisher = ai.NewGeminiPolisher(cfg.AI.GeminiAPIKey, circuitbreaker.New(3, time.Minute, nil))
	}

	// Create the dispatch engine
	deps := dispatch.Deps{
		FollowUps:    followUpRepo,
		Invoices:     invoiceRepo,
		Quotes:       quoteRepo,
		Clients:      clientRepo,
		Users:        userRepo,
		Templates:    resolver,
		Outbox:       outboxRepo,
		Events:       eventRepo,
		Sender:       sender,
		Documents:    documentGenerator,
		Entitlements: entitlements,
		Locker:       parentLocker,
		Links:        linkService,
	}
	if polisher != nil {
		deps.Polisher = polisher
	}
	dispatcher := dispatch.NewDispatcher(deps, dispatch.Config{
		PageSize:    cfg.FollowUp.PageSize,
		ResendDelay: cfg.FollowUp.ResendDelay,
	})

	// Create controllers and middleware
	healthController := controller.NewHealthController(database.HealthCheck)
	dispatchController := controller.NewDispatchController(dispatcher, cfg.FollowUp.RunTimeout)
	triggerAuth := middleware.NewTriggerAuth(cfg.FollowUp.TriggerToken)
	triggerRateLimiter := middleware.NewRateLimiter()

	if cfg.FollowUp.TriggerToken == "" && cfg.Server.Environment == "production" {
		slog.Warn("FOLLOWUP_TRIGGER_TOKEN is empty, dispatch endpoint is unauthenticated")
	}

	// Setup router and HTTP server
	appRouter := router.NewRouter(healthController, dispatchController, triggerAuth, triggerRateLimiter)
	engine := appRouter.Setup(cfg.Server.Environment)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}
