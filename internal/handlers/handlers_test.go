package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"videonotes-backend/internal/middleware"
	"videonotes-backend/internal/models"
)

// ─── Mocks ───

type mockNoteRepo struct {
	notes   map[uuid.UUID]*models.Note
	created []*models.Note
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{notes: make(map[uuid.UUID]*models.Note)}
}

func (m *mockNoteRepo) Create(ctx context.Context, n *models.Note) error {
	n.ID = uuid.New()
	m.notes[n.ID] = n
	m.created = append(m.created, n)
	return nil
}

func (m *mockNoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, fmt.Errorf("note not found")
	}
	return n, nil
}

func (m *mockNoteRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, search string, limit, offset int) ([]*models.Note, int, error) {
	var out []*models.Note
	for _, n := range m.notes {
		if n.SessionID == sessionID {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (m *mockNoteRepo) Delete(ctx context.Context, id, sessionID uuid.UUID) error {
	delete(m.notes, id)
	return nil
}

func (m *mockNoteRepo) BulkDelete(ctx context.Context, ids []uuid.UUID, sessionID uuid.UUID) (int64, error) {
	var deleted int64
	for _, id := range ids {
		if n, ok := m.notes[id]; ok && n.SessionID == sessionID {
			delete(m.notes, id)
			deleted++
		}
	}
	return deleted, nil
}

type mockJobRepo struct {
	jobs    map[uuid.UUID]*models.Job
	created []*models.Job
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[uuid.UUID]*models.Job)}
}

func (m *mockJobRepo) Create(ctx context.Context, j *models.Job) error {
	j.ID = uuid.New()
	j.Status = "pending"
	m.jobs[j.ID] = j
	m.created = append(m.created, j)
	return nil
}

func (m *mockJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found")
	}
	return j, nil
}

func (m *mockJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if j, ok := m.jobs[id]; ok {
		j.Status = status
	}
	return nil
}

type mockMetadataFetcher struct {
	meta *models.YouTubeMetadata
	err  error
}

func (m *mockMetadataFetcher) GetVideoMetadata(videoID string) (*models.YouTubeMetadata, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.meta != nil {
		return m.meta, nil
	}
	return &models.YouTubeMetadata{VideoID: videoID, Title: "Test Video", ChannelName: "Test Channel"}, nil
}

func withSession(r *http.Request, sessionID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.SessionIDKey, sessionID)
	return r.WithContext(ctx)
}

// routerFor mounts the note routes that read an {id} URL parameter.
func routerFor(t *testing.T, h *NotesHandler, _ interface{}) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/notes/{id}", h.Get)
	r.Delete("/notes/{id}", h.Delete)
	r.Get("/notes/{id}/pdf", h.GetPDF)
	return r
}

func jobRouterFor(t *testing.T, h *JobHandler) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/jobs/{id}", h.GetJob)
	return r
}

// ─── Session Handler Tests ───

func TestSessionCreate_NoAccessCodeConfigured(t *testing.T) {
	jwtAuth := middleware.NewJWTAuth("test-secret")
	h := NewSessionHandler(jwtAuth, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()

	h.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Token == "" {
		t.Error("Expected a token")
	}
	if _, err := uuid.Parse(resp.SessionID); err != nil {
		t.Errorf("session_id is not a UUID: %q", resp.SessionID)
	}

	// Token round-trips through the JWT middleware parser
	sessionID, err := jwtAuth.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("Issued token does not parse: %v", err)
	}
	if sessionID.String() != resp.SessionID {
		t.Errorf("Token session %s != response session %s", sessionID, resp.SessionID)
	}
}

func TestSessionCreate_AccessCode(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	jwtAuth := middleware.NewJWTAuth("test-secret")
	h := NewSessionHandler(jwtAuth, string(hash))

	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"correct code", `{"access_code": "open-sesame"}`, http.StatusCreated},
		{"wrong code", `{"access_code": "guess"}`, http.StatusUnauthorized},
		{"missing code", `{}`, http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader([]byte(tc.body)))
			rr := httptest.NewRecorder()

			h.Create(rr, req)

			if rr.Code != tc.expected {
				t.Errorf("Expected %d, got %d: %s", tc.expected, rr.Code, rr.Body.String())
			}
		})
	}
}

// ─── Notes Handler Tests ───

func newTestNotesHandler(noteRepo *mockNoteRepo, jobRepo *mockJobRepo) *NotesHandler {
	return NewNotesHandler(noteRepo, jobRepo, nil, &mockMetadataFetcher{}, nil, nil, 10, 300000)
}

func TestValidateYouTube(t *testing.T) {
	h := newTestNotesHandler(newMockNoteRepo(), newMockJobRepo())

	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"valid watch url", `{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`, http.StatusOK},
		{"valid short url", `{"url": "https://youtu.be/dQw4w9WgXcQ"}`, http.StatusOK},
		{"invalid url", `{"url": "https://example.com/nope"}`, http.StatusBadRequest},
		{"malformed body", `not json`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/validate-youtube", bytes.NewReader([]byte(tc.body)))
			req = withSession(req, uuid.New())
			rr := httptest.NewRecorder()

			h.ValidateYouTube(rr, req)

			if rr.Code != tc.expected {
				t.Errorf("Expected %d, got %d: %s", tc.expected, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestValidateYouTube_ResponseShape(t *testing.T) {
	h := newTestNotesHandler(newMockNoteRepo(), newMockJobRepo())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/validate-youtube",
		bytes.NewReader([]byte(`{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`)))
	req = withSession(req, uuid.New())
	rr := httptest.NewRecorder()

	h.ValidateYouTube(rr, req)

	var resp struct {
		VideoID string                 `json:"video_id"`
		Valid   bool                   `json:"valid"`
		Meta    models.YouTubeMetadata `json:"metadata"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.VideoID != "dQw4w9WgXcQ" || !resp.Valid {
		t.Errorf("Unexpected response %+v", resp)
	}
	if resp.Meta.Title != "Test Video" {
		t.Errorf("Metadata not included: %+v", resp.Meta)
	}
}

func TestGenerate_RequiresTranscriptOrURL(t *testing.T) {
	noteRepo := newMockNoteRepo()
	jobRepo := newMockJobRepo()
	h := newTestNotesHandler(noteRepo, jobRepo)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/generate",
		bytes.NewReader([]byte(`{"num_parts": 3}`)))
	req = withSession(req, uuid.New())
	rr := httptest.NewRecorder()

	h.Generate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %q", resp.Error.Code)
	}
	if len(noteRepo.created) != 0 || len(jobRepo.created) != 0 {
		t.Error("Nothing should be persisted for an invalid request")
	}
}

func TestGenerate_InvalidVideoURL(t *testing.T) {
	h := newTestNotesHandler(newMockNoteRepo(), newMockJobRepo())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/generate",
		bytes.NewReader([]byte(`{"video_url": "https://example.com/nope"}`)))
	req = withSession(req, uuid.New())
	rr := httptest.NewRecorder()

	h.Generate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestGenerate_QueueUnavailable(t *testing.T) {
	// With a nil Redis client the note and job are created but the
	// request fails, and the job is marked failed.
	noteRepo := newMockNoteRepo()
	jobRepo := newMockJobRepo()
	h := newTestNotesHandler(noteRepo, jobRepo)

	sessionID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/generate",
		bytes.NewReader([]byte(`{"transcript": "some lecture text", "num_parts": 2}`)))
	req = withSession(req, sessionID)
	rr := httptest.NewRecorder()

	h.Generate(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rr.Code)
	}
	if len(jobRepo.created) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(jobRepo.created))
	}
	if jobRepo.created[0].Status != "failed" {
		t.Errorf("Expected job marked failed, got %q", jobRepo.created[0].Status)
	}
	if jobRepo.created[0].SessionID != sessionID {
		t.Error("Job not bound to the request session")
	}
}

func TestGetNote_OwnershipEnforced(t *testing.T) {
	noteRepo := newMockNoteRepo()
	owner := uuid.New()
	note := &models.Note{SessionID: owner, Title: "mine"}
	noteRepo.Create(context.Background(), note)

	h := newTestNotesHandler(noteRepo, newMockJobRepo())

	r := routerFor(t, h, nil)

	// Owner sees the note
	req := httptest.NewRequest(http.MethodGet, "/notes/"+note.ID.String(), nil)
	req = withSession(req, owner)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Owner: expected 200, got %d", rr.Code)
	}

	// Any other session is rejected
	req = httptest.NewRequest(http.MethodGet, "/notes/"+note.ID.String(), nil)
	req = withSession(req, uuid.New())
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("Stranger: expected 403, got %d", rr.Code)
	}
}

func TestGetNote_InvalidID(t *testing.T) {
	h := newTestNotesHandler(newMockNoteRepo(), newMockJobRepo())
	r := routerFor(t, h, nil)

	req := httptest.NewRequest(http.MethodGet, "/notes/not-a-uuid", nil)
	req = withSession(req, uuid.New())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestGetPDF_NotReady(t *testing.T) {
	noteRepo := newMockNoteRepo()
	owner := uuid.New()
	note := &models.Note{SessionID: owner, Status: "processing"}
	noteRepo.Create(context.Background(), note)

	h := newTestNotesHandler(noteRepo, newMockJobRepo())
	r := routerFor(t, h, nil)

	req := httptest.NewRequest(http.MethodGet, "/notes/"+note.ID.String()+"/pdf", nil)
	req = withSession(req, owner)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("Expected 409 for incomplete note, got %d", rr.Code)
	}
}

func TestListNotes_Envelope(t *testing.T) {
	noteRepo := newMockNoteRepo()
	sessionID := uuid.New()
	noteRepo.Create(context.Background(), &models.Note{SessionID: sessionID, Title: "a"})
	noteRepo.Create(context.Background(), &models.Note{SessionID: uuid.New(), Title: "not mine"})

	h := newTestNotesHandler(noteRepo, newMockJobRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes?limit=5", nil)
	req = withSession(req, sessionID)
	rr := httptest.NewRecorder()

	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp struct {
		Notes []json.RawMessage `json:"notes"`
		Total int               `json:"total"`
		Limit int               `json:"limit"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Notes) != 1 {
		t.Errorf("Expected exactly the session's note, got total=%d len=%d", resp.Total, len(resp.Notes))
	}
	if resp.Limit != 5 {
		t.Errorf("Expected limit 5, got %d", resp.Limit)
	}
}

func TestBulkDelete(t *testing.T) {
	noteRepo := newMockNoteRepo()
	sessionID := uuid.New()
	mine := &models.Note{SessionID: sessionID}
	noteRepo.Create(context.Background(), mine)
	theirs := &models.Note{SessionID: uuid.New()}
	noteRepo.Create(context.Background(), theirs)

	h := newTestNotesHandler(noteRepo, newMockJobRepo())

	body := fmt.Sprintf(`{"ids": [%q, %q]}`, mine.ID, theirs.ID)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notes", bytes.NewReader([]byte(body)))
	req = withSession(req, sessionID)
	rr := httptest.NewRecorder()

	h.BulkDelete(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Deleted != 1 {
		t.Errorf("Expected 1 deletion (the owned note only), got %d", resp.Deleted)
	}
	if _, ok := noteRepo.notes[mine.ID]; ok {
		t.Error("Owned note should be gone")
	}
	if _, ok := noteRepo.notes[theirs.ID]; !ok {
		t.Error("Another session's note must survive")
	}
}

func TestBulkDelete_Validation(t *testing.T) {
	h := newTestNotesHandler(newMockNoteRepo(), newMockJobRepo())

	tests := []struct {
		name string
		body string
	}{
		{"empty id list", `{"ids": []}`},
		{"missing ids", `{}`},
		{"non-uuid id", `{"ids": ["not-a-uuid"]}`},
		{"malformed body", `not json`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/notes", bytes.NewReader([]byte(tc.body)))
			req = withSession(req, uuid.New())
			rr := httptest.NewRecorder()

			h.BulkDelete(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rr.Code)
			}
		})
	}
}

// ─── Job Handler Tests ───

func TestGetJob_Ownership(t *testing.T) {
	jobRepo := newMockJobRepo()
	owner := uuid.New()
	job := &models.Job{SessionID: owner, Type: "note-generation", ReferenceID: uuid.New()}
	jobRepo.Create(context.Background(), job)

	h := NewJobHandler(jobRepo)
	r := jobRouterFor(t, h)

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID.String(), nil)
	req = withSession(req, owner)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Owner: expected 200, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID.String(), nil)
	req = withSession(req, uuid.New())
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("Stranger: expected 403, got %d", rr.Code)
	}
}

func TestErrorResp_CarriesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")

	resp := errorResp("SOME_CODE", "something broke", req)
	if resp.Error.RequestID != "req-123" {
		t.Errorf("Expected request ID propagated, got %q", resp.Error.RequestID)
	}
	if resp.Error.Code != "SOME_CODE" {
		t.Errorf("Unexpected code %q", resp.Error.Code)
	}
}
