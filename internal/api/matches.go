package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ShouryaDesai135/VeriFind/internal/storage"
)

func handleListMatches(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		limit := parseIntParam(r, "limit", 50, 200)

		matches, err := deps.Store.ListMatchesForUser(userID, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list matches: %v", err)
			return
		}
		if matches == nil {
			matches = []storage.Match{}
		}
		writeJSON(w, matches)
	}
}

func handleListActivity(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		limit := parseIntParam(r, "limit", 20, 100)

		entries, err := deps.Store.ListActivityForUser(userID, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list activity: %v", err)
			return
		}
		if entries == nil {
			entries = []storage.ActivityEntry{}
		}
		writeJSON(w, entries)
	}
}
