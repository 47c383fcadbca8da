// Package api serves the operator's admin endpoints: health, the last
// reconciliation status and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/milterops/opendkimctl/internal/reconciler"
)

// StatusSnapshot is the JSON body served on /status.
type StatusSnapshot struct {
	State     string    `json:"state"`
	Message   string    `json:"message,omitempty"`
	Outcome   string    `json:"outcome"`
	CycleID   string    `json:"cycle_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Server is the admin HTTP server.
type Server struct {
	listenAddr string
	logger     *slog.Logger
	httpServer *http.Server
	status     atomic.Pointer[StatusSnapshot]
}

// NewServer creates an admin server listening on listenAddr.
func NewServer(listenAddr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		listenAddr: listenAddr,
		logger:     logger.With("component", "api"),
	}
	s.status.Store(&StatusSnapshot{State: "unknown", UpdatedAt: time.Now()})
	return s
}

// SetOutcome records the outcome of the latest reconciliation cycle for
// the /status endpoint.
func (s *Server) SetOutcome(o reconciler.Outcome) {
	st := reconciler.Report(o)
	s.status.Store(&StatusSnapshot{
		State:     st.State,
		Message:   st.Message,
		Outcome:   o.Kind.String(),
		CycleID:   o.CycleID,
		UpdatedAt: time.Now(),
	})
}

// Router builds the route table. Exposed for tests.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return router
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info("admin API listening", "addr", s.listenAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Load())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
