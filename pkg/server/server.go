// Package server assembles the matching and memory API behind one chi router.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/entrhq/formless/pkg/matching"
	"github.com/entrhq/formless/pkg/memory"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Name and Version are reported by GET /.
const (
	Name    = "Formless Backend API"
	Version = "0.1.0"
)

// Config selects what the server mounts.
type Config struct {
	// APIKey, when set, is required as a bearer token on /api routes.
	APIKey string
}

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	store   memory.Store
	matcher matching.Matcher
	log     *slog.Logger
	cfg     Config
}

// New creates and configures the HTTP server.
func New(store memory.Store, matcher matching.Matcher, log *slog.Logger, cfg Config) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		store:   store,
		matcher: matcher,
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}
		memory.NewHandler(s.store, s.log).Routes(r)
		matching.NewHandler(s.matcher, s.log).Routes(r)
	})

	s.router = r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": Name, "version": Version})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"detail": msg})
}
