package matching

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler serves POST /api/matching.
type Handler struct {
	matcher Matcher
	log     *slog.Logger
}

func NewHandler(m Matcher, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{matcher: m, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/matching", h.handleMatch)
}

func (h *Handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	resp, err := h.matcher.Match(r.Context(), req)
	if errors.Is(err, ErrNoFields) {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		h.log.Error("matching failed", "fields", len(req.ParsedFields), "err", err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.log.Info("matched fields", "requested", len(req.ParsedFields), "matched", len(resp.MatchedFields))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
