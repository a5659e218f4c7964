package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ShouryaDesai135/VeriFind/internal/claims"
	"github.com/ShouryaDesai135/VeriFind/internal/storage"
)

// ClaimRequest is the body of POST /items/{id}/claim.
type ClaimRequest struct {
	ClaimantID string `json:"claimant_id"`
	Response   string `json:"response"`
}

// ResolveRequest is the body of POST /items/{id}/resolve.
type ResolveRequest struct {
	PosterID string `json:"poster_id"`
	Code     string `json:"code"`
}

func handleClaimItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ClaimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.ClaimantID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "claimant_id is required")
			return
		}

		res, err := deps.Verifier.VerifyClaim(r.Context(), chi.URLParam(r, "id"), req.ClaimantID, req.Response)
		if err != nil {
			writeClaimError(w, err)
			return
		}
		writeJSON(w, res)
	}
}

func handleResolveItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ResolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.PosterID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "poster_id is required")
			return
		}

		res, err := deps.Verifier.Resolve(r.Context(), chi.URLParam(r, "id"), req.PosterID, req.Code)
		if err != nil {
			writeClaimError(w, err)
			return
		}
		writeJSON(w, res)
	}
}

// writeClaimError maps verifier errors to clean 4xx rejections. Internal
// detail never leaks to the end user.
func writeClaimError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "item not found")
	case errors.Is(err, storage.ErrConflict):
		httpError(w, http.StatusConflict, "conflict", "item is no longer available")
	case errors.Is(err, claims.ErrNotClaimable):
		httpError(w, http.StatusConflict, "conflict", "item cannot be claimed")
	case errors.Is(err, claims.ErrSelfClaim):
		httpError(w, http.StatusForbidden, "forbidden", "you cannot claim your own item")
	case errors.Is(err, claims.ErrNotPoster):
		httpError(w, http.StatusForbidden, "forbidden", "only the poster can resolve this item")
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "verification failed")
	}
}
