package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/trendingnow/trends-ingestion-service/internal/config"
	"github.com/trendingnow/trends-ingestion-service/internal/logger"
	"github.com/trendingnow/trends-ingestion-service/internal/storage"
)

const (
	defaultLimit = 10
	maxLimit     = 1000
)

// Server handles HTTP requests
type Server struct {
	config       config.ServerConfig
	warehouse    storage.Warehouse
	status       storage.StatusStore
	currentTable func() string
	log          *logger.Logger
	router       *mux.Router
	server       *http.Server
}

// NewServer creates a new HTTP server. currentTable names the table served
// by /trends; metrics is mounted on /metrics when non-nil.
func NewServer(cfg config.ServerConfig, warehouse storage.Warehouse, status storage.StatusStore,
	currentTable func() string, metrics http.Handler, log *logger.Logger) *Server {
	s := &Server{
		config:       cfg,
		warehouse:    warehouse,
		status:       status,
		currentTable: currentTable,
		log:          log,
		router:       mux.NewRouter(),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/trends", s.handleTrends).Methods(http.MethodGet)
	if metrics != nil {
		s.router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleTrends pages through the current month's table
func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultLimit, 1)
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := queryInt(r, "offset", 0, 0)

	table := s.currentTable()
	records, err := s.warehouse.ReadTable(r.Context(), table)
	if errors.Is(err, storage.ErrTableNotFound) {
		http.Error(w, fmt.Sprintf("Table %s not found", table), http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("table", table).Error("failed to read trends")
		http.Error(w, fmt.Sprintf("Failed to retrieve trends: %v", err), http.StatusInternalServerError)
		return
	}

	total := len(records)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := records[offset:end]

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"table":  table,
		"trends": page,
		"count":  len(page),
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.status.GetIngestionStatus(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve status: %v", err), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("failed to encode response")
	}
}

// queryInt parses a non-negative integer query parameter, falling back to
// def when it is absent or invalid
func queryInt(r *http.Request, key string, def, floor int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < floor {
		return def
	}
	return v
}
