package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AaronLay10/AvatarLink/internal/events"
	"github.com/AaronLay10/AvatarLink/internal/hub"
	"github.com/gorilla/websocket"
)

// clearAuth disables authentication for the test and restores state after.
func clearAuth(t *testing.T) {
	t.Helper()
	prev := auth
	auth = nil
	t.Cleanup(func() { auth = prev })
}

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != "ok" || resp.Service != "monitor" {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestEventsEndpoint(t *testing.T) {
	clearAuth(t)
	events.Clear()
	events.Emit("info", "scene.switched", "", map[string]interface{}{"scene": "intro"})

	server := httptest.NewServer(NewMux())
	defer server.Close()

	resp, err := http.Get(server.URL + "/events")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var list []events.Event
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode events: %v", err)
	}
	if len(list) != 1 || list[0].Name != "scene.switched" {
		t.Errorf("unexpected events: %+v", list)
	}
}

func TestEventsJournalNotConfigured(t *testing.T) {
	clearAuth(t)
	events.SetPostgresClient(nil)

	server := httptest.NewServer(NewMux())
	defer server.Close()

	resp, err := http.Get(server.URL + "/events?source=journal")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	clearAuth(t)
	InitMetrics()
	SetServiceName("avatarlink-test")
	SetHub(hub.NewHub(nil))

	server := httptest.NewServer(NewMux())
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	body := string(raw)

	for _, metric := range []string{
		"avatarlink_uptime_seconds",
		"avatarlink_ticks_total",
		"avatarlink_connected_clients",
		"avatarlink_broadcasts_total",
		"avatarlink_backend_available",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("expected metric %s in output", metric)
		}
	}
	if !strings.Contains(body, `service="avatarlink-test"`) {
		t.Error("expected service label in output")
	}
}

func TestMetricsRejectsPost(t *testing.T) {
	clearAuth(t)
	InitMetrics()

	server := httptest.NewServer(NewMux())
	defer server.Close()

	resp, err := http.Post(server.URL+"/metrics", "text/plain", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestAuthProtectsEvents(t *testing.T) {
	prev := auth
	auth = &accountTable{
		accounts: []account{
			{user: "admin", pass: "adminpw", role: RoleAdmin},
			{user: "op", pass: "oppw", role: RoleOperator},
		},
		enabled: true,
	}
	t.Cleanup(func() { auth = prev })

	server := httptest.NewServer(NewMux())
	defer server.Close()

	// No credentials
	resp, err := http.Get(server.URL + "/events")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", resp.StatusCode)
	}

	// Admin credentials
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/events", nil)
	req.SetBasicAuth("admin", "adminpw")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with admin credentials, got %d", resp.StatusCode)
	}

	// Operator credentials
	req, _ = http.NewRequest(http.MethodGet, server.URL+"/events", nil)
	req.SetBasicAuth("op", "oppw")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with operator credentials, got %d", resp.StatusCode)
	}

	// Wrong credentials
	req, _ = http.NewRequest(http.MethodGet, server.URL+"/events", nil)
	req.SetBasicAuth("admin", "wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong credentials, got %d", resp.StatusCode)
	}

	// Health stays open
	resp, err = http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected /health open without credentials, got %d", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	clearAuth(t)
	SetStatusFunc(func() interface{} {
		return map[string]interface{}{"avatar_status": "idle", "page": 3}
	})
	t.Cleanup(func() { SetStatusFunc(nil) })

	server := httptest.NewServer(NewMux())
	defer server.Close()

	resp, err := http.Get(server.URL + "/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if body["avatar_status"] != "idle" {
		t.Errorf("unexpected status body: %v", body)
	}
}

func TestWebSocketEventStream(t *testing.T) {
	clearAuth(t)
	events.Clear()
	events.CloseAllSubscribers()

	server := httptest.NewServer(http.HandlerFunc(wsEventsHandler))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		events.Emit("info", "task.broadcast", "", map[string]interface{}{"kind": "playlist"})
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}

	var e events.Event
	if err := json.Unmarshal(msg, &e); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}
	if e.Name != "task.broadcast" {
		t.Errorf("expected 'task.broadcast', got '%s'", e.Name)
	}
	if e.Fields["kind"] != "playlist" {
		t.Errorf("expected kind 'playlist', got '%v'", e.Fields["kind"])
	}
}
