package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ShouryaDesai135/VeriFind/internal/claims"
	"github.com/ShouryaDesai135/VeriFind/internal/matching"
	"github.com/ShouryaDesai135/VeriFind/internal/storage"
)

// CreateItemRequest is the body of POST /items.
type CreateItemRequest struct {
	Kind           string   `json:"kind"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Location       string   `json:"location"`
	Lat            *float64 `json:"lat"`
	Lng            *float64 `json:"lng"`
	Category       string   `json:"category"`
	OccurredOn     string   `json:"occurred_on"`
	ImageURL       string   `json:"image_url"`
	OwnerID        string   `json:"owner_id"`
	SecretQuestion string   `json:"secret_question"`
	SecretAnswer   string   `json:"secret_answer"`
}

// validationError marks rejections the caller should surface as bad input
// rather than a server fault.
type validationError string

func (e validationError) Error() string { return string(e) }

// createItem validates and persists a new report, then kicks off the
// best-effort side effects. Both the REST and MCP surfaces route through it.
func createItem(deps Deps, req CreateItemRequest) (string, error) {
	if req.Kind != storage.KindLost && req.Kind != storage.KindFound {
		return "", validationError(fmt.Sprintf("kind must be %q or %q", storage.KindLost, storage.KindFound))
	}
	if req.Title == "" {
		return "", validationError("title is required")
	}
	if req.OwnerID == "" {
		return "", validationError("owner_id is required")
	}

	item := storage.Item{
		ID:          uuid.New().String(),
		Kind:        req.Kind,
		Status:      storage.StatusAvailable,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Lat:         req.Lat,
		Lng:         req.Lng,
		Category:    req.Category,
		OccurredOn:  req.OccurredOn,
		ImageURL:    req.ImageURL,
		OwnerID:     req.OwnerID,
		CreatedAt:   time.Now().UTC(),
	}

	// The secret challenge gates claims on found items; lost reports
	// carry none, and any submitted secret fields are ignored.
	if req.Kind == storage.KindFound {
		if req.SecretQuestion == "" || req.SecretAnswer == "" {
			return "", validationError("found items require secret_question and secret_answer")
		}
		hash, err := claims.HashAnswer(req.SecretAnswer)
		if err != nil {
			return "", fmt.Errorf("failed to process secret answer: %w", err)
		}
		item.SecretQuestion = req.SecretQuestion
		item.SecretHash = hash
	}

	if err := deps.Store.SaveItem(item); err != nil {
		return "", fmt.Errorf("failed to save item: %w", err)
	}

	// Everything past durable creation is best-effort: the poster has
	// their item either way, and matching never blocks or fails the
	// creation path.
	appendActivity(deps, item)
	enqueueScan(deps, item.ID)

	return item.ID, nil
}

func handleCreateItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CreateItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		id, err := createItem(deps, req)
		if err != nil {
			var verr validationError
			if errors.As(err, &verr) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", verr.Error())
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}

		writeJSON(w, map[string]string{"id": id})
	}
}

func appendActivity(deps Deps, item storage.Item) {
	err := deps.Store.AppendActivity(storage.ActivityEntry{
		ID:        uuid.New().String(),
		UserID:    item.OwnerID,
		Type:      storage.ActivityPosted,
		ItemID:    item.ID,
		ItemTitle: item.Title,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("appending activity failed", "item_id", item.ID, "error", err)
	}
}

func enqueueScan(deps Deps, itemID string) {
	job, err := matching.NewScanJob(itemID)
	if err != nil {
		slog.Error("building scan job failed", "item_id", itemID, "error", err)
		return
	}
	if err := deps.Store.EnqueueJob(job); err != nil {
		slog.Error("enqueueing scan job failed", "item_id", itemID, "error", err)
	}
}

func handleListItems(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("kind")
		if kind != "" && kind != storage.KindLost && kind != storage.KindFound {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid kind %q", kind)
			return
		}
		status := r.URL.Query().Get("status")
		switch status {
		case "", storage.StatusAvailable, storage.StatusClaimed, storage.StatusResolved:
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid status %q", status)
			return
		}

		limit := parseIntParam(r, "limit", 50, 200)
		offset := parseIntParam(r, "offset", 0, 0)

		items, err := deps.Store.ListItems(kind, status, limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list items: %v", err)
			return
		}
		if items == nil {
			items = []storage.Item{}
		}
		writeJSON(w, items)
	}
}

func handleGetItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		item, err := deps.Store.GetItem(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get item: %v", err)
			return
		}
		writeJSON(w, item)
	}
}
