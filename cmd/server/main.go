package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"learnloop/internal/ai"
	"learnloop/internal/clock"
	"learnloop/internal/config"
	"learnloop/internal/database"
	"learnloop/internal/handlers"
	"learnloop/internal/promptbank"
	"learnloop/internal/repository"
	"learnloop/internal/security"
	"learnloop/internal/service"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	// Load configuration
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Load prompt templates
	prompts, err := promptbank.Load(cfg.PromptsPath)
	if err != nil {
		log.Fatalf("Failed to load prompt templates: %v", err)
	}

	// Initialize repositories
	itemRepo := repository.NewItemRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	// Initialize the question generator / answer grader collaborator
	aiClient := ai.NewClient(ai.Config{
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	}, prompts)

	// Initialize services
	clk := clock.System{}
	reviewService := service.NewReviewService(itemRepo, clk)

	recallOpts := []service.RecallOption{
		service.WithBatchSizes(cfg.DueSelectionWindow, cfg.SessionBatchSize),
	}
	if cfg.FallbackGrading {
		recallOpts = append(recallOpts, service.WithFallbackGrader(ai.RuleGrader{}))
	}
	recallService := service.NewRecallService(itemRepo, sessionRepo, aiClient, aiClient, clk, recallOpts...)

	// Initialize handlers
	limiter := security.NewRateLimiter(10, time.Minute)
	middleware := handlers.NewMiddleware(cfg.JWTSecret, limiter)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	recallHandler := handlers.NewRecallHandler(recallService)

	// Setup routes
	mux := http.NewServeMux()

	// Review item routes
	mux.HandleFunc("GET /api/items/{deck}/due", middleware.RequireOwner(reviewHandler.ListDue))
	mux.HandleFunc("POST /api/items/{deck}", middleware.RequireOwner(reviewHandler.AddItem))
	mux.HandleFunc("POST /api/items/import", middleware.RequireOwner(reviewHandler.ImportPoints))
	mux.HandleFunc("POST /api/items/{deck}/{id}/review", middleware.RequireOwner(reviewHandler.SubmitReview))
	mux.HandleFunc("GET /api/items/{deck}/stats", middleware.RequireOwner(reviewHandler.Stats))

	// Recall session routes; start and submit call out to the AI
	// collaborator, so they sit behind the rate limiter
	mux.HandleFunc("GET /api/recall/check", middleware.RequireOwner(recallHandler.Check))
	mux.HandleFunc("POST /api/recall/start", middleware.RequireOwner(middleware.RateLimit(recallHandler.Start)))
	mux.HandleFunc("POST /api/recall/{token}/submit", middleware.RequireOwner(middleware.RateLimit(recallHandler.Submit)))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
}
