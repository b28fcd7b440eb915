package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pdfrender "videonotes-backend/internal/pdf"

	"videonotes-backend/internal/middleware"
	"videonotes-backend/internal/models"
	"videonotes-backend/internal/services"
)

type noteRepository interface {
	Create(ctx context.Context, n *models.Note) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID, search string, limit, offset int) ([]*models.Note, int, error)
	Delete(ctx context.Context, id, sessionID uuid.UUID) error
	BulkDelete(ctx context.Context, ids []uuid.UUID, sessionID uuid.UUID) (int64, error)
}

type jobRepository interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type videoMetadataFetcher interface {
	GetVideoMetadata(videoID string) (*models.YouTubeMetadata, error)
}

type NotesHandler struct {
	noteRepo    noteRepository
	jobRepo     jobRepository
	redis       *redis.Client
	youtube     videoMetadataFetcher
	fileExtract *services.FileExtractService
	renderer    *pdfrender.Renderer
	maxChunks   int
	warnChars   int
}

func NewNotesHandler(
	noteRepo noteRepository,
	jobRepo jobRepository,
	redisClient *redis.Client,
	youtube videoMetadataFetcher,
	fileExtract *services.FileExtractService,
	renderer *pdfrender.Renderer,
	maxChunks, warnChars int,
) *NotesHandler {
	return &NotesHandler{
		noteRepo:    noteRepo,
		jobRepo:     jobRepo,
		redis:       redisClient,
		youtube:     youtube,
		fileExtract: fileExtract,
		renderer:    renderer,
		maxChunks:   maxChunks,
		warnChars:   warnChars,
	}
}

func (h *NotesHandler) ValidateYouTube(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateYouTubeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	videoID := services.ExtractVideoID(req.URL)
	if videoID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid YouTube URL", r))
		return
	}

	meta, err := h.youtube.GetVideoMetadata(videoID)
	if err != nil {
		log.Printf("metadata lookup failed for %s: %v", videoID, err)
		// The video may still have captions; let generation decide.
		meta = &models.YouTubeMetadata{VideoID: videoID, Title: "YouTube Video"}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"video_id": videoID,
		"metadata": meta,
		"valid":    true,
	})
}

// UploadTranscript extracts text from an uploaded .txt, .pdf or .docx
// file and returns it for review before generation.
func (h *NotesHandler) UploadTranscript(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > 25*1024*1024 { // 25MB
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 25MB limit", r))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 25*1024*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read file", r))
		return
	}

	text, err := h.fileExtract.ExtractTranscript(header.Filename, data)
	if err != nil {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", err.Error(), r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transcript": text,
		"chars":      len(text),
		"long":       len(text) > h.warnChars,
	})
}

func (h *NotesHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Transcript) == "" && strings.TrimSpace(req.VideoURL) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"transcript": "Either a transcript or a video URL is required"}, r))
		return
	}

	if req.NumParts < 1 {
		req.NumParts = 1
	}
	if req.NumParts > h.maxChunks {
		req.NumParts = h.maxChunks
	}

	sessionID := middleware.GetSessionID(r.Context())

	title := "Video Notes"
	var videoID, videoTitle, channel *string
	if req.VideoURL != "" {
		id := services.ExtractVideoID(req.VideoURL)
		if id == "" {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid YouTube URL", r))
			return
		}
		videoID = &id
		if meta, err := h.youtube.GetVideoMetadata(id); err == nil {
			videoTitle = &meta.Title
			channel = &meta.ChannelName
			title = meta.Title
		}
	}

	configBytes, _ := json.Marshal(req)

	note := &models.Note{
		SessionID:  sessionID,
		Title:      title,
		VideoID:    videoID,
		VideoTitle: videoTitle,
		Channel:    channel,
		ConfigJSON: configBytes,
	}
	if err := h.noteRepo.Create(r.Context(), note); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create note", r))
		return
	}

	job := &models.Job{
		SessionID:   sessionID,
		Type:        "note-generation",
		ReferenceID: note.ID,
		ConfigJSON:  configBytes,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	if h.redis == nil {
		_ = h.jobRepo.UpdateStatus(r.Context(), job.ID, "failed")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Generation queue is unavailable", r))
		return
	}

	jobBytes, _ := json.Marshal(job)
	if err := h.redis.LPush(r.Context(), "queue:note-generation", string(jobBytes)).Err(); err != nil {
		log.Printf("failed to enqueue note-generation job %s: %v", job.ID, err)
		_ = h.jobRepo.UpdateStatus(r.Context(), job.ID, "failed")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enqueue generation job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":  job.ID,
		"note_id": note.ID,
	})
}

func (h *NotesHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	search := r.URL.Query().Get("search")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	notes, total, err := h.noteRepo.ListBySession(r.Context(), sessionID, search, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list notes", r))
		return
	}

	if notes == nil {
		notes = []*models.Note{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notes":  notes,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *NotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, ok := h.ownedNote(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *NotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	note, ok := h.ownedNote(w, r)
	if !ok {
		return
	}

	sessionID := middleware.GetSessionID(r.Context())
	if err := h.noteRepo.Delete(r.Context(), note.ID, sessionID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete note", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Note deleted"})
}

// BulkDelete removes several of the session's notes in one call. IDs
// the session does not own are ignored rather than failing the batch.
func (h *NotesHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"ids": "At least one note ID is required"}, r))
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid note ID: "+raw, r))
			return
		}
		ids = append(ids, id)
	}

	sessionID := middleware.GetSessionID(r.Context())
	deleted, err := h.noteRepo.BulkDelete(r.Context(), ids, sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete notes", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

// GetPDF renders a completed note as a downloadable study guide.
func (h *NotesHandler) GetPDF(w http.ResponseWriter, r *http.Request) {
	note, ok := h.ownedNote(w, r)
	if !ok {
		return
	}

	if note.Status != "completed" || len(note.ResultJSON) == 0 {
		writeJSON(w, http.StatusConflict, errorResp("NOT_READY", "Note generation has not completed", r))
		return
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(note.ResultJSON, &result); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Stored result is unreadable", r))
		return
	}

	format := pdfrender.FormatCompact
	if r.URL.Query().Get("format") == string(pdfrender.FormatSpacious) {
		format = pdfrender.FormatSpacious
	}

	videoID := ""
	if note.VideoID != nil {
		videoID = *note.VideoID
	}

	data, err := h.renderer.Render(result, videoID, format)
	if err != nil {
		log.Printf("pdf render failed for note %s: %v", note.ID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to render PDF", r))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(note.Title)+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// ownedNote loads the note from the URL and checks session ownership.
func (h *NotesHandler) ownedNote(w http.ResponseWriter, r *http.Request) (*models.Note, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid note ID", r))
		return nil, false
	}

	note, err := h.noteRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Note not found", r))
		return nil, false
	}

	if note.SessionID != middleware.GetSessionID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return note, true
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "notes"
	}
	replacer := strings.NewReplacer("/", "-", "\\", "-", "\"", "", "\n", " ", "\r", " ")
	name = replacer.Replace(name)
	if len(name) > 80 {
		name = name[:80]
	}
	return name
}
