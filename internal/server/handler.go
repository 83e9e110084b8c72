// Package server implements the read-only HTTP API over the history index.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kilupskalvis/vhist/internal/history"
	"github.com/kilupskalvis/vhist/internal/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds configurable limits for the server.
type Config struct {
	RequestsPerMinute int  // per-client rate limit, 0 disables it
	ExposeMetrics     bool // serve /metrics
}

// DefaultConfig returns reasonable defaults.
func DefaultConfig() *Config {
	return &Config{
		RequestsPerMinute: 600,
		ExposeMetrics:     true,
	}
}

// Handler creates the HTTP handler with all routes and middleware.
// The returned cleanup function stops background goroutines and should be
// called on server shutdown.
func Handler(model *history.Guarded, cfg *Config, logger *slog.Logger) (http.Handler, func()) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	rl := newClientLimiters(cfg.RequestsPerMinute)
	limited := func(h http.HandlerFunc) http.Handler {
		return rl.middleware(h)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealthz)
	if cfg.ExposeMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	mux.Handle("GET /api/v1/stats", limited(makeStatsHandler(model)))
	mux.Handle("GET /api/v1/communes", limited(makeCommunesHandler(model)))
	mux.Handle("GET /api/v1/communes/{code}/voies", limited(makeCommuneVoiesHandler(model)))
	mux.Handle("GET /api/v1/voies/{id}", limited(makeVoieHandler(model)))
	mux.Handle("GET /api/v1/voies/{id}/libelles", limited(makeLibellesHandler(model)))
	mux.Handle("GET /api/v1/cancelled", limited(makeCancelledHandler(model)))

	handler := applyMiddleware(mux,
		recoveryMiddleware(logger),
		accessLogMiddleware(logger),
		requestIDMiddleware,
	)

	cleanup := func() {
		rl.Stop()
	}

	return handler, cleanup
}

// applyMiddleware applies middleware in reverse order so the first in the list runs first.
func applyMiddleware(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// VoieResponse is the API shape of a voie
type VoieResponse struct {
	ID          string   `json:"id"`
	DateAjout   string   `json:"date_ajout,omitempty"`
	Libelle     []string `json:"libelle"`
	TypeVoie    string   `json:"type_voie,omitempty"`
	CodeCommune string   `json:"code_commune"`
	CodeFantoir string   `json:"code_fantoir,omitempty"`
	Predecessor string   `json:"predecesseur_state"`
	PredID      string   `json:"predecesseur,omitempty"`
}

func toVoieResponse(v *models.Voie) VoieResponse {
	return VoieResponse{
		ID:          v.ID,
		DateAjout:   v.DateAjout,
		Libelle:     v.Libelle,
		TypeVoie:    v.TypeVoie,
		CodeCommune: v.CodeCommune,
		CodeFantoir: v.CodeFantoir,
		Predecessor: v.Predecessor.State.String(),
		PredID:      v.Predecessor.ID,
	}
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func makeStatsHandler(model *history.Guarded) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.Stats())
	}
}

func makeCommunesHandler(model *history.Guarded) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.Communes())
	}
}

func makeCommuneVoiesHandler(model *history.Guarded) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		voies, err := model.Voies(r.PathValue("code"))
		if err != nil {
			writeModelError(w, err)
			return
		}
		out := make([]VoieResponse, len(voies))
		for i, v := range voies {
			out[i] = toVoieResponse(v)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func makeVoieHandler(model *history.Guarded) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := model.Voie(r.PathValue("id"))
		if err != nil {
			writeModelError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toVoieResponse(v))
	}
}

func makeLibellesHandler(model *history.Guarded) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		libelles, err := model.Libelles(r.PathValue("id"))
		if err != nil {
			writeModelError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, libelles)
	}
}

// makeCancelledHandler lists the cancelled communes acknowledged so far.
// Reads happen between batches, when nothing is pending.
func makeCancelledHandler(model *history.Guarded) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.HandledCancelledCommunes())
	}
}

// writeModelError maps history errors to status codes
func writeModelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, history.ErrUnknownVoie):
		writeError(w, http.StatusNotFound, "unknown_voie", err.Error())
	case errors.Is(err, history.ErrUnknownCommune):
		writeError(w, http.StatusNotFound, "unknown_commune", err.Error())
	case errors.Is(err, history.ErrCyclicPredecessor):
		writeError(w, http.StatusConflict, "cyclic_predecessor", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
