package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Note is one generated study guide, persisted after a successful run.
type Note struct {
	ID         uuid.UUID       `json:"id"`
	SessionID  uuid.UUID       `json:"session_id"`
	Title      string          `json:"title"`
	VideoID    *string         `json:"video_id"`
	VideoTitle *string         `json:"video_title"`
	Channel    *string         `json:"channel"`
	Status     string          `json:"status"` // "pending" | "processing" | "completed" | "failed"
	ConfigJSON json.RawMessage `json:"config"`
	ResultJSON json.RawMessage `json:"result"` // merged AnalysisResult wire shape
	ChunkCount int             `json:"chunk_count"`
	ErrorCode  *string         `json:"error_code"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  *time.Time      `json:"updated_at"`
}

// GenerateNotesRequest is the payload for POST /notes/generate.
type GenerateNotesRequest struct {
	Transcript string   `json:"transcript"`
	VideoURL   string   `json:"video_url"`
	Model      string   `json:"model"`
	NumParts   int      `json:"num_parts"`
	MaxWords   int      `json:"max_words"`
	Sections   []string `json:"sections"`
	UserPrompt string   `json:"user_prompt"`
	EasyRead   bool     `json:"easy_read"`
}

type ValidateYouTubeRequest struct {
	URL string `json:"url"`
}

type YouTubeMetadata struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	ChannelName  string `json:"channel_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	Duration     int    `json:"duration"`
}
