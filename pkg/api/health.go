package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cuemby/meshrelay/pkg/log"
	"github.com/cuemby/meshrelay/pkg/metrics"
	"github.com/cuemby/meshrelay/pkg/storage"
)

const (
	defaultMessageLimit = 20
	maxMessageLimit     = 500
)

// Server provides the admin HTTP endpoints
type Server struct {
	store storage.Store
	mux   *http.ServeMux

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a new admin HTTP server. store may be nil, in which case
// /messages is not served.
func NewServer(store storage.Store) *Server {
	mux := http.NewServeMux()
	s := &Server{
		store: store,
		mux:   mux,
	}

	// Register endpoints
	mux.HandleFunc("/health", getOnly(metrics.HealthHandler()))
	mux.HandleFunc("/ready", getOnly(metrics.ReadyHandler()))
	mux.HandleFunc("/livez", getOnly(metrics.LivenessHandler()))
	mux.Handle("/metrics", metrics.Handler())
	if store != nil {
		mux.HandleFunc("/messages", getOnly(s.messagesHandler))
	}

	return s
}

// Start serves on addr until Shutdown is called. It returns nil after a
// clean shutdown.
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.mu.Lock()
	s.server = server
	s.mu.Unlock()

	logger := log.WithComponent("api")
	logger.Info().Str("addr", addr).Msg("Admin server listening")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// GetHandler returns the HTTP handler for embedding in other servers
func (s *Server) GetHandler() http.Handler {
	return s.mux
}

// MessagesResponse is the body of the /messages endpoint
type MessagesResponse struct {
	Count    int               `json:"count"`
	Messages []*storage.Record `json:"messages"`
}

// messagesHandler implements the /messages endpoint
func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultMessageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxMessageLimit)
	}

	records, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		logger := log.WithComponent("api")
		logger.Error().Err(err).Msg("Failed to read stored messages")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	if records == nil {
		records = []*storage.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(MessagesResponse{Count: len(records), Messages: records})
}

// getOnly rejects every method except GET
func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
