package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/DeskSnap/internal/config"
	"github.com/bryanchriswhite/DeskSnap/internal/desktop"
	"github.com/bryanchriswhite/DeskSnap/internal/logger"
	"github.com/bryanchriswhite/DeskSnap/internal/replay"
	"github.com/bryanchriswhite/DeskSnap/internal/service"
	"github.com/bryanchriswhite/DeskSnap/internal/snapshot"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Backend is the application surface the server exposes.
type Backend interface {
	Capture(ctx context.Context) (*snapshot.Snapshot, error)
	Windows(ctx context.Context) ([]snapshot.WindowRecord, error)
	Replay(ctx context.Context, id string, obs replay.Observer) ([]replay.Outcome, error)
	Get(id string) (*snapshot.Snapshot, error)
	List() []*snapshot.Snapshot
	Live() (*snapshot.Snapshot, bool)
	Save(id string) error
	Load() (int, error)
}

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	backend   Backend
	configMgr *config.Manager
	upgrader  websocket.Upgrader
}

// NewServer creates a new API server. configMgr may be nil.
func NewServer(backend Backend, configMgr *config.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		backend:   backend,
		configMgr: configMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, any origin
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Windows currently open
	api.HandleFunc("/windows", s.handleGetWindows).Methods("GET")

	// Snapshots
	api.HandleFunc("/snapshots", s.handleListSnapshots).Methods("GET")
	api.HandleFunc("/snapshots", s.handleCapture).Methods("POST")
	api.HandleFunc("/snapshots/{id}", s.handleGetSnapshot).Methods("GET")
	api.HandleFunc("/snapshots/{id}/replay", s.handleReplay).Methods("POST")
	api.HandleFunc("/snapshots/{id}/replay/stream", s.handleReplayStream)
	api.HandleFunc("/snapshots/{id}/save", s.handleSave).Methods("POST")
	api.HandleFunc("/store/load", s.handleLoad).Methods("POST")

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	log := logger.WithComponent("api")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", "http://localhost"+srv.Addr).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, desktop.ErrSubsystemUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("Failed to encode response")
	}
}

// ReplayResult is the body of a replay response and the final stream message.
type ReplayResult struct {
	Done     bool             `json:"done,omitempty"`
	Outcomes []replay.Outcome `json:"outcomes"`
	Summary  replay.Counts    `json:"summary"`
	Error    string           `json:"error,omitempty"`
}

func newReplayResult(outcomes []replay.Outcome, err error) ReplayResult {
	if outcomes == nil {
		outcomes = []replay.Outcome{}
	}
	res := ReplayResult{Outcomes: outcomes, Summary: replay.Summary(outcomes)}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// HTTP Handlers

func (s *Server) handleGetWindows(w http.ResponseWriter, r *http.Request) {
	windows, err := s.backend.Windows(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if windows == nil {
		windows = []snapshot.WindowRecord{}
	}
	writeJSON(w, http.StatusOK, windows)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Live      string               `json:"live,omitempty"`
		Snapshots []*snapshot.Snapshot `json:"snapshots"`
	}{
		Snapshots: s.backend.List(),
	}
	if live, ok := s.backend.Live(); ok {
		resp.Live = live.ID().String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	snap, err := s.backend.Capture(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.backend.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	outcomes, err := s.backend.Replay(r.Context(), mux.Vars(r)["id"], nil)
	if err != nil && outcomes == nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	writeJSON(w, status, newReplayResult(outcomes, err))
}

func (s *Server) handleReplayStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")
	id := mux.Vars(r)["id"]

	// Reject unknown ids with a plain HTTP status before upgrading.
	if _, err := s.backend.Get(id); err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// A closed client connection cancels the replay.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	outcomes, err := s.backend.Replay(ctx, id, func(p replay.Progress) {
		if err := conn.WriteJSON(p); err != nil {
			log.Debug().Err(err).Msg("WebSocket write error")
		}
	})

	res := newReplayResult(outcomes, err)
	res.Done = true
	if err := conn.WriteJSON(res); err != nil {
		log.Debug().Err(err).Msg("WebSocket write error")
		return
	}
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.backend.Save(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "id": id})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	added, err := s.backend.Load()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "added": added})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.configMgr == nil {
		http.Error(w, "configuration not available", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}
