package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sitetrust/internal/domain/models"
	"sitetrust/internal/domain/services"
	"sitetrust/pkg/logger"
)

// maxRequestBody bounds verify and score request bodies. Page text can be
// supplied for fingerprinting, so this is generous.
const maxRequestBody = 2 << 20

// WebsiteHandler handles website verification API requests
type WebsiteHandler struct {
	service *services.VerificationService
	logger  *logger.Logger
}

// NewWebsiteHandler creates a new website handler
func NewWebsiteHandler(service *services.VerificationService, log *logger.Logger) *WebsiteHandler {
	return &WebsiteHandler{
		service: service,
		logger:  log.WithComponent("website-handler"),
	}
}

// Verify handles POST /api/v1/websites/verify
func (h *WebsiteHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req models.VerificationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := h.service.Verify(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, err, "failed to verify website")
		return
	}

	h.respondJSON(w, http.StatusCreated, result)
}

// Get handles GET /api/v1/websites/verifications/{id}
func (h *WebsiteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	result, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("verification_id", id.String()).Msg("failed to get verification")
		h.respondError(w, http.StatusInternalServerError, "failed to get verification")
		return
	}
	if result == nil {
		h.respondError(w, http.StatusNotFound, "verification not found")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// List handles GET /api/v1/websites/verifications
func (h *WebsiteHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	summaries, err := h.service.List(r.Context(), r.URL.Query().Get("domain"), limit)
	if err != nil {
		h.respondServiceError(w, err, "failed to list verifications")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"verifications": summaries,
		"count":         len(summaries),
	})
}

// Explain handles GET /api/v1/websites/verifications/{id}/explain
func (h *WebsiteHandler) Explain(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	breakdown, err := h.service.Explain(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, "failed to explain verification")
		return
	}
	if breakdown == nil {
		h.respondError(w, http.StatusNotFound, "verification not found")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"id":              id,
		"factorBreakdown": breakdown,
	})
}

// Score handles POST /api/v1/websites/score
func (h *WebsiteHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req models.ScoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Score(req)
	if err != nil {
		h.respondServiceError(w, err, "failed to score signals")
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Brands handles GET /api/v1/websites/brands
func (h *WebsiteHandler) Brands(w http.ResponseWriter, r *http.Request) {
	brands := h.service.Brands()
	h.respondJSON(w, http.StatusOK, map[string]any{
		"brands": brands,
		"count":  len(brands),
	})
}

func (h *WebsiteHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid verification id")
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps engine errors onto status codes
func (h *WebsiteHandler) respondServiceError(w http.ResponseWriter, err error, message string) {
	var malformed *services.MalformedProbeError
	if errors.As(err, &malformed) {
		h.respondError(w, http.StatusBadRequest, malformed.Error())
		return
	}

	var violation *services.ScoringInvariantViolation
	if errors.As(err, &violation) {
		h.logger.Error().Err(err).Str("check", violation.Check).Msg("scoring invariant violated")
		h.respondError(w, http.StatusInternalServerError, "internal scoring error")
		return
	}

	h.logger.Error().Err(err).Msg(message)
	h.respondError(w, http.StatusInternalServerError, message)
}

func (h *WebsiteHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn().Err(err).Msg("failed to write response")
	}
}

func (h *WebsiteHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
