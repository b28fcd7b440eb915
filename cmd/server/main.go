package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"videonotes-backend/internal/config"
	"videonotes-backend/internal/database"
	"videonotes-backend/internal/handlers"
	"videonotes-backend/internal/middleware"
	pdfrender "videonotes-backend/internal/pdf"
	"videonotes-backend/internal/repository"
	"videonotes-backend/internal/router"
	"videonotes-backend/internal/services"
	"videonotes-backend/internal/websocket"
	"videonotes-backend/internal/worker"
)

// workerCount is the number of generation worker goroutines; the queue
// Redis pool is sized from it.
const workerCount = 3

func main() {
	log.Println("🚀 Starting VideoNotes Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL, workerCount)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	noteRepo := repository.NewNoteRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		[]string{cfg.GeminiFlashModel},
		cfg.GeminiConcurrentReqs,
	)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	youtubeService := services.NewYouTubeService()
	fileExtractService := services.NewFileExtractService()
	renderer := pdfrender.NewRenderer(cfg.FontsPath)

	// ──── Initialize Handlers ────
	sessionHandler := handlers.NewSessionHandler(jwtAuth, cfg.AccessCodeHash)
	notesHandler := handlers.NewNotesHandler(
		noteRepo,
		jobRepo,
		redisClients.Queue,
		youtubeService,
		fileExtractService,
		renderer,
		cfg.MaxChunks,
		cfg.WarnTranscriptChars,
	)
	jobHandler := handlers.NewJobHandler(jobRepo)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		geminiService,
		youtubeService,
		jobRepo,
		noteRepo,
		cfg.MaxChunks,
		workerCount,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", workerCount)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		sessionHandler,
		notesHandler,
		jobHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // PDF rendering can run long
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ VideoNotes Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
