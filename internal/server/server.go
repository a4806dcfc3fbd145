// Package server exposes one simulation session over a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/export"
	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/logging"
	"github.com/nvandessel/supplyshock/internal/metrics"
	"github.com/nvandessel/supplyshock/internal/reasoning"
	"github.com/nvandessel/supplyshock/internal/session"
	"github.com/nvandessel/supplyshock/internal/store"
	"github.com/nvandessel/supplyshock/internal/topology"
)

// maxBodyBytes bounds request bodies; the largest one is {"seed":n}.
const maxBodyBytes = 1 << 16

// Server serves a single session. Every handler takes the mutex for the
// whole request, so transitions never interleave.
type Server struct {
	mu   sync.Mutex
	sess *session.Session

	store   store.SessionStore
	metrics *metrics.Registry
	sink    export.Sink
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithStore saves the session after every transition.
func WithStore(st store.SessionStore) Option {
	return func(s *Server) { s.store = st }
}

// WithMetrics serves reg on /metrics.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Server) { s.metrics = reg }
}

// WithSink enables POST /api/reports.
func WithSink(sink export.Sink) Option {
	return func(s *Server) { s.sink = sink }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = logging.OrDiscard(l) }
}

// New creates a Server for sess.
func New(sess *session.Session, opts ...Option) *Server {
	s := &Server{
		sess:   sess,
		logger: logging.Discard(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/events", s.handleProcessEvent)
	mux.HandleFunc("GET /api/events/{seed}", s.handleGenerateEvent)
	mux.HandleFunc("POST /api/recommendations/accept", s.handleAccept)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("POST /api/reports", s.handleReport)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s.logRequests(mux)
}

// ListenAndServe serves Handler on addr until ctx is cancelled, then shuts
// down with a five second grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

// StateResponse is the body of GET /api/state and of every transition.
type StateResponse struct {
	SessionID       string              `json:"session_id"`
	State           session.State       `json:"state"`
	NextSeed        int64               `json:"next_seed"`
	BaselineKPIs    kpi.Set             `json:"baseline_kpis"`
	KPIs            kpi.Set             `json:"kpis"`
	Deltas          kpi.Delta           `json:"deltas"`
	AtRiskCustomers []string            `json:"at_risk_customers"`
	Event           *events.WorldEvent  `json:"event,omitempty"`
	Analysis        *reasoning.Analysis `json:"analysis,omitempty"`
	Snapshot        topology.Snapshot   `json:"snapshot"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// AcceptResponse adds whether any mutation was applied.
type AcceptResponse struct {
	Applied bool `json:"applied"`
	StateResponse
}

// ProcessEventRequest is the optional body of POST /api/events. Without a
// seed the session's next seed is used.
type ProcessEventRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

// ReportResponse is the body of POST /api/reports.
type ReportResponse struct {
	Location string        `json:"location"`
	Report   export.Report `json:"report"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	respondJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) handleProcessEvent(w http.ResponseWriter, r *http.Request) {
	var req ProcessEventRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seed := s.sess.NextSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	if _, err := s.sess.ProcessEvent(r.Context(), seed); err != nil {
		s.respondSessionError(w, err)
		return
	}
	if !s.persistLocked(w, r.Context()) {
		return
	}
	respondJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) handleGenerateEvent(w http.ResponseWriter, r *http.Request) {
	seed, err := strconv.ParseInt(r.PathValue("seed"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid seed %q", r.PathValue("seed")))
		return
	}
	respondJSON(w, http.StatusOK, events.GenerateAt(seed, s.now()))
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied, err := s.sess.AcceptRecommendations()
	if err != nil {
		s.respondSessionError(w, err)
		return
	}
	if applied && !s.persistLocked(w, r.Context()) {
		return
	}
	respondJSON(w, http.StatusOK, AcceptResponse{Applied: applied, StateResponse: s.stateLocked()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess.Reset()
	if !s.persistLocked(w, r.Context()) {
		return
	}
	respondJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		respondError(w, http.StatusNotFound, "report export is not configured")
		return
	}

	s.mu.Lock()
	rep := export.BuildReport(s.sess, s.now())
	s.mu.Unlock()

	loc, err := export.Write(r.Context(), s.sink, rep)
	if err != nil {
		s.logger.Error("report export failed", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, ReportResponse{Location: loc, Report: rep})
}

func (s *Server) stateLocked() StateResponse {
	snap := s.sess.Snapshot()
	atRisk := kpi.AtRiskCustomers(snap)
	if atRisk == nil {
		atRisk = []string{}
	}
	return StateResponse{
		SessionID:       s.sess.ID(),
		State:           s.sess.State(),
		NextSeed:        s.sess.NextSeed(),
		BaselineKPIs:    s.sess.BaselineKPIs(),
		KPIs:            s.sess.KPIs(),
		Deltas:          s.sess.Deltas(),
		AtRiskCustomers: atRisk,
		Event:           s.sess.LatestEvent(),
		Analysis:        s.sess.LatestAnalysis(),
		Snapshot:        snap,
		UpdatedAt:       s.sess.UpdatedAt(),
	}
}

// persistLocked saves the session when a store is configured. It writes an
// error response and returns false when the save fails.
func (s *Server) persistLocked(w http.ResponseWriter, ctx context.Context) bool {
	if s.store == nil {
		return true
	}
	if err := s.store.Save(ctx, s.sess.Record()); err != nil {
		s.logger.Error("saving session failed", "session_id", s.sess.ID(), "error", err)
		respondError(w, http.StatusInternalServerError, "saving session: "+err.Error())
		return false
	}
	return true
}

func (s *Server) respondSessionError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("session operation failed", "error", err)
	}
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps session and reasoning errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrNoAnalysis):
		return http.StatusConflict
	// A failed analysis may also carry the context error that caused it.
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, reasoning.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, reasoning.ErrAnalysisFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}
