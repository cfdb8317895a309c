// internal/server/handlers/trend.go

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"creatorpulse/internal/domain/trend"
)

// TrendHandler handles trend-related HTTP requests
type TrendHandler struct {
	detector trend.Detector
}

// NewTrendHandler creates a new trend handler
func NewTrendHandler(detector trend.Detector) *TrendHandler {
	return &TrendHandler{
		detector: detector,
	}
}

type detectRequest struct {
	WindowDays    int      `json:"window_days"`
	MaxTrends     int      `json:"max_trends"`
	MinConfidence string   `json:"min_confidence"`
	Sources       []string `json:"sources"`
}

type detectResponse struct {
	Trends  []trend.Trend   `json:"trends"`
	Summary trend.RunSummary `json:"summary"`
	Warning string          `json:"warning,omitempty"`
}

// DetectTrends triggers a detection run for a tenant
func (h *TrendHandler) DetectTrends(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	if tenantID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing tenant ID", nil)
		return
	}

	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	params := trend.DetectionParams{
		WindowDays:    req.WindowDays,
		MaxTrends:     req.MaxTrends,
		MinConfidence: trend.ConfidenceLevel(req.MinConfidence),
		Sources:       req.Sources,
	}

	trends, summary, err := h.detector.DetectTrends(r.Context(), tenantID, params)
	if err != nil {
		var persistErr *trend.PersistenceError
		if errors.As(err, &persistErr) {
			// The computation succeeded; return it with the failure surfaced.
			respondWithJSON(w, http.StatusOK, detectResponse{
				Trends:  persistErr.Trends,
				Summary: summary,
				Warning: summary.PersistWarning,
			})
			return
		}
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, detectResponse{Trends: trends, Summary: summary})
}

// GetActiveTrends returns a tenant's active trends
func (h *TrendHandler) GetActiveTrends(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	trends, err := h.detector.GetActiveTrends(r.Context(), tenantID, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, trends)
}

// GetTrendHistory returns a tenant's past detections
func (h *TrendHandler) GetTrendHistory(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	trends, err := h.detector.GetTrendHistory(r.Context(), tenantID, days)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, trends)
}

// GetTrendSummary returns aggregate stats for a tenant's detections
func (h *TrendHandler) GetTrendSummary(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	summary, err := h.detector.GetTrendSummary(r.Context(), tenantID, days)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

// GetTrend returns a specific trend by ID
func (h *TrendHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing trend ID", nil)
		return
	}

	t, err := h.detector.GetTrendByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, t)
}

// DeleteTrend removes a trend by ID
func (h *TrendHandler) DeleteTrend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing trend ID", nil)
		return
	}

	if err := h.detector.DeleteTrend(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// respondDomainError maps the domain error taxonomy onto HTTP statuses
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trend.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Trend not found", nil)
	case errors.Is(err, trend.ErrInvalidParameters):
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, trend.ErrInsufficientData):
		respondWithErrorCode(w, http.StatusUnprocessableEntity, "insufficient_data",
			"Not enough content yet to detect trends")
	case errors.Is(err, trend.ErrSourceUnavailable):
		respondWithErrorCode(w, http.StatusServiceUnavailable, "source_unavailable",
			"Content source unavailable, retry later")
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error", err)
	}
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil && code >= 500 {
		// Do not leak internals to the client, but keep the cause in logs.
		logServerError(code, message, err)
	}
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithErrorCode includes a machine-readable code so callers can
// tell expected conditions apart from genuine server errors.
func respondWithErrorCode(w http.ResponseWriter, code int, errCode, message string) {
	respondWithJSON(w, code, map[string]string{"code": errCode, "error": message})
}

func logServerError(code int, message string, err error) {
	log.Printf("HTTP %d: %s: %v", code, message, err)
}
