// Package api serves the read-only reporting surface and the live
// websocket endpoint over the same listener.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"mfgstream/internal/db"
	"mfgstream/internal/model"
	"mfgstream/internal/realtime"
)

var jsonStd = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is the query capability the reporting handlers need.
type Store interface {
	LatestByMachine(ctx context.Context, machineID string) (model.StoredResult, error)
	ListResults(ctx context.Context, skip, limit int) ([]model.StoredResult, error)
	AggregateCounts(ctx context.Context) (db.Counts, error)
}

// MetricsResponse is the aggregate view exposed on /metrics.
type MetricsResponse struct {
	TotalTests int64   `json:"total_tests"`
	PassCount  int64   `json:"pass_count"`
	FailCount  int64   `json:"fail_count"`
	PassRate   float64 `json:"pass_rate"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type Server struct {
	store  Store
	hub    *realtime.Hub
	logger *zap.SugaredLogger
}

func NewServer(store Store, hub *realtime.Hub, logger *zap.SugaredLogger) *Server {
	return &Server{store: store, hub: hub, logger: logger}
}

// Routes builds the reporting mux. All responses are JSON; the frontend is
// served from another origin, so CORS stays permissive.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /machines/{id}/status", s.handleMachineStatus)
	mux.HandleFunc("GET /results", s.handleListResults)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /ws/live", s.handleLive)
	return withCORS(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMachineStatus(w http.ResponseWriter, r *http.Request) {
	machineID := r.PathValue("id")

	result, err := s.store.LatestByMachine(r.Context(), machineID)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Machine not found"})
		return
	}
	if err != nil {
		s.logger.Errorw("machine status query failed", "machine_id", machineID, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "query failed"})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	skip, ok := queryInt(r, "skip", 0)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid skip"})
		return
	}
	limit, ok := queryInt(r, "limit", 0)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid limit"})
		return
	}

	results, err := s.store.ListResults(r.Context(), skip, limit)
	if err != nil {
		s.logger.Errorw("result listing failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "query failed"})
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.AggregateCounts(r.Context())
	if err != nil {
		s.logger.Errorw("aggregate query failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "query failed"})
		return
	}

	resp := MetricsResponse{
		TotalTests: counts.Total,
		PassCount:  counts.PassCount,
		FailCount:  counts.FailCount,
	}
	// pass_rate is 0 on an empty store, never a division fault
	if counts.Total > 0 {
		resp.PassRate = float64(counts.PassCount) / float64(counts.Total) * 100
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	realtime.ServeWS(s.hub, w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsonStd.NewEncoder(w).Encode(v); err != nil {
		s.logger.Errorw("failed to encode response", "error", err)
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
