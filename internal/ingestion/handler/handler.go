package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/logger"
)

// ChangePublisher stores a change and announces it; *publisher.Publisher
// satisfies it.
type ChangePublisher interface {
	Put(ctx context.Context, entity string, req *ingestion.ContentRequest) (*ingestion.ContentResponse, error)
	Delete(ctx context.Context, entity string) (*ingestion.ContentResponse, error)
}

type Handler struct {
	publisher ChangePublisher
	logger    *slog.Logger
}

func New(pub ChangePublisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

// Put handles PUT /api/v1/entities/{name}.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	entity := r.PathValue("name")

	var req ingestion.ContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateContentRequest(entity, &req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	resp, err := h.publisher.Put(ctx, entity, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("storing content failed", "entity", entity, "error", err, "status_code", statusCode)
		h.writeError(w, statusCode, "storing content failed")
		return
	}
	log.Info("content stored", "entity", entity, "revision", resp.Revision)
	h.writeJSON(w, http.StatusAccepted, resp)
}

// Delete handles DELETE /api/v1/entities/{name}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	entity := r.PathValue("name")
	if err := validator.ValidateEntity(entity); err != nil {
		h.writeValidationError(w, err)
		return
	}

	resp, err := h.publisher.Delete(ctx, entity)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		if statusCode == http.StatusNotFound {
			h.writeError(w, statusCode, "entity not found")
			return
		}
		log.Error("deleting content failed", "entity", entity, "error", err, "status_code", statusCode)
		h.writeError(w, statusCode, "deleting content failed")
		return
	}
	log.Info("content deleted", "entity", entity, "revision", resp.Revision)
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
