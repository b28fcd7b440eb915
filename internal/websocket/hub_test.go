package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"videonotes-backend/internal/middleware"
	"videonotes-backend/internal/models"
)

func newTestHub() *Hub {
	// Unreachable Redis: the relay goroutine just retries, which is
	// enough for handshake and ack tests.
	client := redis.NewClient(&redis.Options{Addr: "localhost:1"})
	return NewHub(client, "test-secret")
}

func wsURL(server *httptest.Server, token string) string {
	u := strings.Replace(server.URL, "http", "ws", 1)
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func TestHandleWebSocket_ConnectedAck(t *testing.T) {
	hub := newTestHub()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	sessionID := uuid.New()
	token, err := middleware.NewJWTAuth("test-secret").GenerateSessionToken(sessionID)
	if err != nil {
		t.Fatal(err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, token), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Expected an ack message, got error: %v", err)
	}

	var msg models.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Ack is not valid JSON: %v", err)
	}
	if msg.Type != "connected" {
		t.Errorf("Expected type 'connected', got %q", msg.Type)
	}

	payload, ok := msg.Payload.(map[string]interface{})
	if !ok {
		t.Fatalf("Unexpected payload shape: %#v", msg.Payload)
	}
	if payload["session_id"] != sessionID.String() {
		t.Errorf("Expected session %s in ack, got %v", sessionID, payload["session_id"])
	}
}

func TestHandleWebSocket_RejectsBadToken(t *testing.T) {
	hub := newTestHub()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"garbage token", "not.a.jwt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server, tc.token), nil)
			if err == nil {
				conn.Close()
				t.Fatal("Expected handshake to fail")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("Expected 401 handshake response, got %+v", resp)
			}
		})
	}
}
