package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/parassrivastav/traqcheck-test/internal/config"
	"github.com/parassrivastav/traqcheck-test/internal/handlers"
	"github.com/parassrivastav/traqcheck-test/internal/repositories"
	"github.com/parassrivastav/traqcheck-test/internal/services"
)

const resumeExtractionRetries = 3

func main() {
	// Load configuration
	cfg := config.Load()

	log := newLogger(cfg.Server.Env)
	defer func() { _ = log.Sync() }()
	log.Info("✅ Config loaded successfully")

	// Initialize database
	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize database", zap.Error(err))
	}

	// Initializes repositories
	candidateRepo := repositories.NewCandidateRepository(db)
	docRepo := repositories.NewDocumentRepository(db)
	requestRepo := repositories.NewDocumentRequestRepository(db)
	linkRepo := repositories.NewChatLinkRepository(db)
	sessionRepo := repositories.NewChatSessionRepository(db)
	log.Info("✅ Repositories initialized successfully")

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatal("❌ Failed to create upload directory", zap.Error(err))
	}

	pdfParser := services.NewPDFParserService()
	promptBuilder := services.NewPromptBuilder(services.Persona{
		Name:         cfg.Assistant.Name,
		Organization: cfg.Assistant.Organization,
	})
	log.Info("✅ Services initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Gemini AI
	var geminiService services.GeminiService
	if cfg.GenerationEnabled() {
		geminiService, err = services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, log)
		if err != nil {
			log.Fatal("❌ Failed to initialize Gemini AI", zap.Error(err))
		}
		log.Info("✅ Gemini AI initialized successfully", zap.String("model", cfg.Gemini.Model))
	} else {
		log.Warn("⚠️  GEMINI_API_KEY not set, using scripted replies and disabling resume extraction")
	}

	// Initialize Qdrant
	var qdrantService services.QdrantService
	if cfg.ResumeIndexEnabled() {
		qdrantService, err = services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, log)
		if err != nil {
			log.Fatal("❌ Failed to initialize Qdrant", zap.Error(err))
		}
		if err := qdrantService.InitCollection(ctx); err != nil {
			log.Fatal("❌ Failed to initialize Qdrant collection", zap.Error(err))
		}
		log.Info("✅ Qdrant initialized successfully")
	} else {
		log.Warn("⚠️  Resume search disabled (QDRANT_URL or GEMINI_API_KEY missing)")
	}

	resumeIndex := services.NewResumeIndex(geminiService, qdrantService, services.NewTextChunker(), log)
	resumeExtractor := services.NewResumeExtractor(pdfParser, geminiService, promptBuilder, resumeExtractionRetries, cfg.Gemini.GenerationTimeout*2)

	// Initialize Telegram
	telegramClient := services.NewTelegramClient(services.TelegramClientOptions{
		Token:       cfg.Telegram.BotToken,
		SendTimeout: cfg.Telegram.SendTimeout,
		FileTimeout: cfg.Telegram.FileTimeout,
		MaxFileSize: cfg.Storage.MaxFileSize,
	})
	if !telegramClient.Configured() {
		log.Warn("⚠️  Telegram bot token not set, outbound messages will fail")
	}

	var generator services.TextGenerator
	if geminiService != nil {
		generator = geminiService
	}

	var locker services.ChatLocker
	switch cfg.Worker.LockBackend {
	case config.LockBackendMemory:
		locker = services.NewKeyedLocker()
	default:
		locker = repositories.NewAdvisoryLocker(db, log)
	}
	log.Info("✅ Chat locker initialized", zap.String("backend", cfg.Worker.LockBackend))

	resolver := services.NewIdentityResolver(candidateRepo, linkRepo)
	engine := services.NewEngine(
		resolver,
		services.NewSessionManager(sessionRepo),
		services.NewReplyStrategist(generator, promptBuilder, cfg.Gemini.GenerationTimeout),
		telegramClient,
		storageService,
		locker,
		promptBuilder,
		cfg.Assistant.Name,
		cfg.Telegram.SendTimeout,
		log,
	)
	log.Info("✅ Session engine initialized")

	// Initialize dispatcher
	dispatcherOpts := services.DispatcherOptions{
		Concurrency: cfg.Worker.Concurrency,
		PollTimeout: cfg.Telegram.PollTimeout,
	}
	if cfg.Telegram.Mode == config.TelegramModePolling && telegramClient.Configured() {
		if err := telegramClient.DeleteWebhook(ctx); err != nil {
			log.Warn("⚠️  Failed to delete webhook before polling", zap.Error(err))
		}
		dispatcherOpts.Source = telegramClient
		log.Info("🔄 Telegram polling mode enabled")
	}
	dispatcher := services.NewDispatcher(engine, dispatcherOpts, log)
	dispatcher.Start(ctx)

	// Initialize Handlers
	telegramHandler := handlers.NewTelegramHandler(
		dispatcher,
		telegramClient,
		cfg.Telegram.WebhookSecret,
		cfg.Telegram.PublicBaseURL,
		log,
	)
	candidateHandler := handlers.NewCandidateHandler(handlers.CandidateHandlerDeps{
		Candidates:    candidateRepo,
		Documents:     docRepo,
		Requests:      requestRepo,
		Storage:       storageService,
		Extractor:     resumeExtractor,
		Index:         resumeIndex,
		PromptBuilder: promptBuilder,
		Chats:         resolver,
		Collector:     engine,
		BotConfigured: telegramClient.Configured(),
		MaxFileSize:   cfg.Storage.MaxFileSize,
		Logger:        log,
	})
	documentHandler := handlers.NewDocumentHandler(
		candidateRepo,
		docRepo,
		storageService,
		cfg.Storage.MaxFileSize,
		log,
	)
	log.Info("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Traqcheck Candidate API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) * 2,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// Candidates
	api.Post("/candidates/upload", candidateHandler.HandleUpload)
	api.Get("/candidates", candidateHandler.HandleList)
	api.Get("/candidates/search", candidateHandler.HandleSearch)
	api.Get("/candidates/:id", candidateHandler.HandleGet)
	api.Delete("/candidates/:id", candidateHandler.HandleDelete)
	api.Post("/candidates/:id/telegram", candidateHandler.HandleUpdateTelegram)
	api.Post("/candidates/:id/request-documents", candidateHandler.HandleRequestDocuments)

	// Documents
	api.Post("/candidates/:id/submit-documents", documentHandler.HandleSubmit)
	api.Get("/candidates/:id/documents", documentHandler.HandleList)
	api.Get("/documents/:id/file", documentHandler.HandleFile)

	// Telegram
	api.Post("/telegram/webhook", telegramHandler.HandleWebhook)
	api.Post("/telegram/setup-webhook", telegramHandler.HandleSetupWebhook)
	api.Get("/telegram/webhook-info", telegramHandler.HandleWebhookInfo)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Traqcheck Candidate API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/candidates/upload",
				"GET /api/v1/candidates",
				"GET /api/v1/candidates/search?q=",
				"GET /api/v1/candidates/:id",
				"DELETE /api/v1/candidates/:id",
				"POST /api/v1/candidates/:id/telegram",
				"POST /api/v1/candidates/:id/request-documents",
				"POST /api/v1/candidates/:id/submit-documents",
				"GET /api/v1/candidates/:id/documents",
				"GET /api/v1/documents/:id/file",
				"POST /api/v1/telegram/webhook",
				"POST /api/v1/telegram/setup-webhook",
				"GET /api/v1/telegram/webhook-info",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-quit
		log.Info("🛑 Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Error("❌ Server forced to shutdown", zap.Error(err))
		}
		dispatcher.Stop()
		cancel()
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		log.Fatal("❌ Failed to start server", zap.Error(err))
	}
	<-stopped
	log.Info("✅ Server stopped")
}

func newLogger(env string) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if env == "development" {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
