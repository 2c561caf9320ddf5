// Package api exposes the operator HTTP surface: health, event history,
// metrics, the renderer WebSocket endpoint, and a live event stream.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/AaronLay10/AvatarLink/internal/events"
	"github.com/AaronLay10/AvatarLink/internal/hub"
)

// rendererHub is the hub serving /ws. Set before starting the server.
var rendererHub *hub.Hub

// SetHub sets the renderer hub used by the /ws endpoint and the metrics
// handler.
func SetHub(h *hub.Hub) {
	rendererHub = h
}

// statusFunc supplies the /status payload. Set by the composition root.
var statusFunc func() interface{}

// SetStatusFunc sets the provider for the /status endpoint.
func SetStatusFunc(f func() interface{}) {
	statusFunc = f
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "monitor",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// eventsHandler returns recent events. With a journal attached and
// ?source=journal, it reads from Postgres instead of the in-memory buffer.
func eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Query().Get("source") == "journal" {
		client := events.GetPostgresClient()
		if client == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "journal not configured"})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		rows, err := client.Query(limit)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(rows)
		return
	}

	_ = json.NewEncoder(w).Encode(events.Snapshot())
}

func statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if statusFunc == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "status not available"})
		return
	}
	_ = json.NewEncoder(w).Encode(statusFunc())
}

func wsHandler(w http.ResponseWriter, r *http.Request) {
	if rendererHub == nil {
		http.Error(w, "hub not configured", http.StatusServiceUnavailable)
		return
	}
	rendererHub.ServeWS(w, r)
}

// NewMux builds the route table. Split out so tests can drive the handlers
// through httptest.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/events", RequireAnyRole(eventsHandler))
	mux.HandleFunc("/status", RequireAnyRole(statusHandler))
	mux.HandleFunc("/metrics", metricsHandler)
	mux.HandleFunc("/ws", wsHandler)
	mux.HandleFunc("/ws/events", RequireAnyRole(wsEventsHandler))
	return mux
}

// ListenAndServe starts the API server on the given port. It blocks until
// the server exits. TLS is used when configured through the environment.
func ListenAndServe(port int) error {
	mux := NewMux()
	addr := fmt.Sprintf(":%d", port)

	if cfg := LoadTLSConfig(); cfg != nil {
		srv := &http.Server{Addr: addr, Handler: mux, TLSConfig: cfg}
		log.Printf("API listening on %s (TLS)\n", addr)
		return srv.ListenAndServeTLS("", "")
	}

	log.Printf("API listening on %s\n", addr)
	return http.ListenAndServe(addr, mux)
}

// Start starts the API server in a goroutine.
// Errors are logged but do not stop the caller.
func Start(port int) {
	go func() {
		if err := ListenAndServe(port); err != nil {
			log.Printf("api server error: %v", err)
		}
	}()
}
