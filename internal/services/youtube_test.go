package services

import (
	"strings"
	"testing"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch with extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short url with query", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"live", "https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"no scheme", "youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"not a video url", "https://www.youtube.com/feed/subscriptions", ""},
		{"unrelated url", "https://example.com/some/page", ""},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractVideoID(tc.url); got != tc.expected {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tc.url, got, tc.expected)
			}
		})
	}
}

func TestWatchURL(t *testing.T) {
	if got := WatchURL("dQw4w9WgXcQ"); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("Unexpected watch URL %q", got)
	}
}

func TestExtractCaptionURL(t *testing.T) {
	pageHTML := `{"captionTracks":[{"baseUrl":"https:\/\/www.youtube.com\/api\/timedtext?v=abc&lang=en","name":{"simpleText":"English"}}],"audioTracks":[]}`

	u, err := extractCaptionURL(pageHTML)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if u != "https://www.youtube.com/api/timedtext?v=abc&lang=en" {
		t.Errorf("Unexpected caption URL %q", u)
	}
}

func TestExtractCaptionURL_NoCaptions(t *testing.T) {
	if _, err := extractCaptionURL("<html>no captions</html>"); err == nil {
		t.Error("Expected error for page without caption tracks")
	}
}

func TestParseCaptionsXML(t *testing.T) {
	xmlData := []byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.4" dur="3.2">first line</text>
  <text start="65.1" dur="2.0">second &amp; third</text>
  <text start="70" dur="1.0">   </text>
</transcript>`)

	out, err := parseCaptionsXML(xmlData)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "[00:00] first line" {
		t.Errorf("Unexpected first line %q", lines[0])
	}
	if lines[1] != "[01:05] second & third" {
		t.Errorf("Unexpected second line %q", lines[1])
	}
}

func TestParseCaptionsXML_Empty(t *testing.T) {
	if _, err := parseCaptionsXML([]byte(`<transcript></transcript>`)); err == nil {
		t.Error("Expected error for empty captions document")
	}
}
