package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rensmac/govassist/internal/ai"
	aiGemini "github.com/rensmac/govassist/internal/ai/gemini"
	aiOllama "github.com/rensmac/govassist/internal/ai/ollama"
	"github.com/rensmac/govassist/internal/api/handler"
	customMiddleware "github.com/rensmac/govassist/internal/api/middleware"
	"github.com/rensmac/govassist/internal/config"
	"github.com/rensmac/govassist/internal/extract"
	"github.com/rensmac/govassist/internal/ledger"
	"github.com/rensmac/govassist/internal/repository/mongo"
	"github.com/rensmac/govassist/internal/repository/redis"
	"github.com/rensmac/govassist/internal/security"
	"github.com/rensmac/govassist/internal/service"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *mongo.DB, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize security components
	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Initialize repositories
	sessionRepo := mongo.NewSessionRepository(db)
	identityRepo := mongo.NewIdentityRepository(db)
	ledgerStore := ledger.NewStore(db.Database())

	// Initialize rate limiter and reply cache
	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Chat.RateLimit.RequestsPerMinute,
		cfg.Chat.RateLimit.Burst,
	)
	replyCache := redis.NewReplyCache(redisClient)

	// Initialize classifier router with providers
	classifierRouter := ai.NewRouter(cfg.AI.DefaultProvider)

	log.Info().Msgf("Initializing AI providers. Default: %s", cfg.AI.DefaultProvider)

	if cfg.AI.Gemini.APIKey != "" {
		classifierRouter.RegisterProvider(aiGemini.NewProvider(cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model))
	} else {
		log.Warn().Msg("Gemini API key is empty, skipping registration")
	}
	if cfg.AI.Ollama.Host != "" {
		log.Info().Str("host", cfg.AI.Ollama.Host).Msg("Registering Ollama provider")
		classifierRouter.RegisterProvider(aiOllama.NewProvider(cfg.AI.Ollama.Host, cfg.AI.Ollama.Model))
	}

	// Document extraction client
	extractor := extract.NewClient(cfg.Extract.BaseURL, cfg.Extract.Timeout)

	// Initialize services
	flowController := service.NewFlowController(
		sessionRepo,
		ledgerStore,
		ledgerStore,
		cfg.Chat.RenewalUnitPrice,
		cfg.Chat.MaxRenewalYears,
	)
	topicManager := service.NewTopicManager(sessionRepo)
	documentGate := service.NewDocumentGate(sessionRepo)
	documentPipeline := service.NewDocumentPipeline(sessionRepo, identityRepo, extractor, flowController)
	confirmationTracker := service.NewConfirmationTracker(sessionRepo, flowController)

	chatService := service.NewChatService(
		sessionRepo,
		classifierRouter,
		topicManager,
		documentGate,
		documentPipeline,
		confirmationTracker,
		flowController,
		replyCache,
	)

	// Initialize handlers
	chatHandler := handler.NewChatHandler(chatService, rateLimiter)

	// Auth middleware
	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/chat/message", chatHandler.Message)
		})
	})

	return r
}
