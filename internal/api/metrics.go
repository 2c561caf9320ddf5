package api

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AaronLay10/AvatarLink/internal/events"
	"github.com/AaronLay10/AvatarLink/internal/version"
)

var metricsState = &MetricsState{}

// MetricsState holds runtime metrics for the /metrics endpoint.
type MetricsState struct {
	mu          sync.RWMutex
	startTime   time.Time
	serviceName string
	ticks       uint64
}

// readiness tracks connectivity of the service's external dependencies.
var readiness = struct {
	mu                sync.RWMutex
	mqttConnected     bool
	postgresConnected bool
	backendAvailable  bool
}{}

// InitMetrics initializes the metrics system. Must be called at startup.
func InitMetrics() {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
}

// SetServiceName sets the service name for metrics labels.
func SetServiceName(name string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.serviceName = name
}

// IncTicks counts one reconcile pass. Called from the monitor loop.
func IncTicks() {
	atomic.AddUint64(&metricsState.ticks, 1)
}

// SetMQTTConnected records MQTT broker connectivity.
func SetMQTTConnected(connected bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = connected
	readiness.mu.Unlock()
}

// SetPostgresConnected records journal connectivity.
func SetPostgresConnected(connected bool) {
	readiness.mu.Lock()
	readiness.postgresConnected = connected
	readiness.mu.Unlock()
}

// SetBackendAvailable records presentation backend connectivity.
func SetBackendAvailable(available bool) {
	readiness.mu.Lock()
	readiness.backendAvailable = available
	readiness.mu.Unlock()
}

func boolVal(b bool) int {
	if b {
		return 1
	}
	return 0
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	metricsState.mu.RLock()
	startTime := metricsState.startTime
	serviceName := metricsState.serviceName
	metricsState.mu.RUnlock()

	uptime := time.Since(startTime).Seconds()
	ticks := atomic.LoadUint64(&metricsState.ticks)
	eventsTotal := events.TotalCount()

	readiness.mu.RLock()
	mqttConnected := readiness.mqttConnected
	postgresConnected := readiness.postgresConnected
	backendAvailable := readiness.backendAvailable
	readiness.mu.RUnlock()

	var clients int
	var broadcasts uint64
	if rendererHub != nil {
		clients = rendererHub.ClientCount()
		broadcasts = rendererHub.BroadcastCount()
	}
	eventSubscribers := events.SubscriberCount()

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		if labels != "" {
			fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
		} else {
			fmt.Fprintf(w, "%s %v\n", name, value)
		}
	}

	labels := fmt.Sprintf(`service="%s",instance="%s",version="%s"`, serviceName, hostname, version.Version)

	writeMetric("avatarlink_uptime_seconds", "gauge",
		"Number of seconds since the monitor started", uptime, labels)

	writeMetric("avatarlink_ticks_total", "counter",
		"Total number of reconcile passes since startup", ticks, labels)

	writeMetric("avatarlink_events_total", "counter",
		"Total number of events emitted since startup", eventsTotal, labels)

	writeMetric("avatarlink_connected_clients", "gauge",
		"Number of connected avatar renderer clients", clients, labels)

	writeMetric("avatarlink_broadcasts_total", "counter",
		"Total number of task broadcasts since startup", broadcasts, labels)

	writeMetric("avatarlink_event_subscribers", "gauge",
		"Number of active event-stream WebSocket subscribers", eventSubscribers, labels)

	writeMetric("avatarlink_mqtt_connected", "gauge",
		"Whether MQTT broker is connected (1) or not (0)", boolVal(mqttConnected), labels)

	writeMetric("avatarlink_postgres_connected", "gauge",
		"Whether PostgreSQL is connected (1) or not (0)", boolVal(postgresConnected), labels)

	writeMetric("avatarlink_backend_available", "gauge",
		"Whether the presentation backend is reachable (1) or not (0)", boolVal(backendAvailable), labels)
}
