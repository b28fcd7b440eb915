package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"videonotes-backend/internal/handlers"
	"videonotes-backend/internal/middleware"
	"videonotes-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	sessionHandler *handlers.SessionHandler,
	notesHandler *handlers.NotesHandler,
	jobHandler *handlers.JobHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Session issuance rate limiter (10 req/min per IP)
	sessionLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Session Routes (public) ────
		r.Group(func(r chi.Router) {
			r.Use(sessionLimiter.Middleware)
			r.Post("/sessions", sessionHandler.Create)
		})

		// ──── Notes Routes ────
		r.Route("/notes", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/validate-youtube", notesHandler.ValidateYouTube)
			r.Post("/upload-transcript", notesHandler.UploadTranscript)
			r.Post("/generate", notesHandler.Generate)
			r.Get("/", notesHandler.List)
			r.Delete("/", notesHandler.BulkDelete)
			r.Get("/{id}", notesHandler.Get)
			r.Delete("/{id}", notesHandler.Delete)
			r.Get("/{id}/pdf", notesHandler.GetPDF)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", jobHandler.GetJob)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
