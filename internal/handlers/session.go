package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"videonotes-backend/internal/middleware"
)

// SessionHandler issues anonymous session tokens. When an access code
// hash is configured, new sessions require the matching code.
type SessionHandler struct {
	jwtAuth        *middleware.JWTAuth
	accessCodeHash string
}

func NewSessionHandler(jwtAuth *middleware.JWTAuth, accessCodeHash string) *SessionHandler {
	return &SessionHandler{jwtAuth: jwtAuth, accessCodeHash: accessCodeHash}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessCode string `json:"access_code"`
	}
	// Body is optional when no access code is configured
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if h.accessCodeHash != "" {
		if req.AccessCode == "" {
			writeJSON(w, http.StatusUnauthorized, errorResp("ACCESS_CODE_REQUIRED", "An access code is required", r))
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(h.accessCodeHash), []byte(req.AccessCode)); err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResp("ACCESS_CODE_INVALID", "Invalid access code", r))
			return
		}
	}

	sessionID := uuid.New()
	token, err := h.jwtAuth.GenerateSessionToken(sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create session", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": sessionID,
		"token":      token,
	})
}
