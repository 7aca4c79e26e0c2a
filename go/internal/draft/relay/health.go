package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type HealthStatus struct {
	Healthy           bool      `json:"healthy"`
	DatabaseConnected bool      `json:"database_connected"`
	NATSConnected     bool      `json:"nats_connected"`
	Metrics           *Snapshot `json:"metrics,omitempty"`
	Errors            []string  `json:"errors,omitempty"`
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NATSState is satisfied by *Publisher and *Consumer.
type NATSState interface {
	Connected() bool
}

// HealthChecker reports database and NATS connectivity.
type HealthChecker struct {
	db       Pinger
	nats     NATSState
	counters *Counters
	timeout  time.Duration
}

func NewHealthChecker(db Pinger, nats NATSState, counters *Counters) *HealthChecker {
	return &HealthChecker{db: db, nats: nats, counters: counters, timeout: 2 * time.Second}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Healthy: true}

	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		if err := h.db.PingContext(pingCtx); err != nil {
			status.Healthy = false
			status.Errors = append(status.Errors, "database: "+err.Error())
		} else {
			status.DatabaseConnected = true
		}
	}

	if h.nats != nil {
		status.NATSConnected = h.nats.Connected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "nats: not connected")
		}
	}

	if h.counters != nil {
		snap := h.counters.Snapshot()
		status.Metrics = &snap
	}
	return status
}

// ServeHTTP writes the health status as JSON; 503 when unhealthy.
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}
