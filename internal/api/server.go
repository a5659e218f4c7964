// Package api exposes the HTTP and MCP surfaces over the core services.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ShouryaDesai135/VeriFind/internal/claims"
	"github.com/ShouryaDesai135/VeriFind/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds the handler dependencies.
type Deps struct {
	Store    *storage.Store
	Verifier *claims.Verifier
	Token    string // optional; empty disables bearer auth
}

// NewHandler returns the VeriFind REST API handler.
//
// Caller identity (owner_id, claimant_id, poster_id) is always explicit in
// request bodies rather than read from ambient session state; the optional
// bearer token only gates service access.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}

		r.Post("/items", handleCreateItem(deps))
		r.Get("/items", handleListItems(deps))
		r.Get("/items/{id}", handleGetItem(deps))
		r.Post("/items/{id}/claim", handleClaimItem(deps))
		r.Post("/items/{id}/resolve", handleResolveItem(deps))
		r.Get("/matches/{userID}", handleListMatches(deps))
		r.Get("/activity/{userID}", handleListActivity(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
