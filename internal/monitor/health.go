package monitor

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var jsonStd = jsoniter.ConfigCompatibleWithStandardLibrary

// Database is the slice of DBManager the readiness probe checks.
type Database interface {
	Ping(ctx context.Context) error
	IsShuttingDown() bool
}

// SubscriberCounter reports how many live subscribers the hub holds.
type SubscriberCounter interface {
	Count() int
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Handler builds the ops mux: liveness, readiness and Prometheus metrics.
func Handler(dbMgr Database, hub SubscriberCounter) http.Handler {
	mux := http.NewServeMux()

	// --- Liveness ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		jsonStd.NewEncoder(w).Encode(HealthResponse{
			Status:  "alive",
			Message: "Service is running",
		})
	})

	// --- Readiness ---
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")

		healthDetails := make(map[string]string)
		var failing int

		switch {
		case dbMgr.IsShuttingDown():
			healthDetails["database"] = "shutting down"
			failing++
		case dbMgr.Ping(ctx) != nil:
			healthDetails["database"] = "unhealthy"
			failing++
		default:
			healthDetails["database"] = "healthy"
		}
		healthDetails["live_subscribers"] = strconv.Itoa(hub.Count())

		statusCode := http.StatusOK
		statusMsg := "ready"
		if failing > 0 {
			statusCode = http.StatusServiceUnavailable
			statusMsg = fmt.Sprintf("%d component(s) failing", failing)
		}

		w.WriteHeader(statusCode)
		jsonStd.NewEncoder(w).Encode(HealthResponse{
			Status:  statusMsg,
			Details: healthDetails,
		})
	})

	// --- Prometheus ---
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// StartOps serves the ops mux on its own listener, separate from the
// reporting API.
func StartOps(dbMgr Database, hub SubscriberCounter, logger *zap.SugaredLogger, addr string) {
	handler := Handler(dbMgr, hub)

	logger.Infof("starting ops server on %s", addr)
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil && err != http.ErrServerClosed {
			logger.Errorw("ops server stopped", "error", err)
		}
	}()
}
