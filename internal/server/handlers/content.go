// internal/server/handlers/content.go

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"creatorpulse/internal/domain/content"
)

// Ingestor accepts content records for a tenant
type Ingestor interface {
	Ingest(ctx context.Context, tenantID string, records []content.Record) (int, error)
}

// ContentHandler handles content ingestion requests
type ContentHandler struct {
	ingestor Ingestor
}

// NewContentHandler creates a new content handler
func NewContentHandler(ingestor Ingestor) *ContentHandler {
	return &ContentHandler{
		ingestor: ingestor,
	}
}

type ingestRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	BodyText  string    `json:"body_text"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

type ingestRequest struct {
	Records []ingestRecord `json:"records"`
}

// IngestContent stores a batch of content records for a tenant
func (h *ContentHandler) IngestContent(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	if tenantID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing tenant ID", nil)
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Records) == 0 {
		respondWithError(w, http.StatusBadRequest, "No records supplied", nil)
		return
	}

	records := make([]content.Record, len(req.Records))
	for i, rec := range req.Records {
		records[i] = content.Record{
			ID:        rec.ID,
			Title:     rec.Title,
			BodyText:  rec.BodyText,
			Source:    rec.Source,
			CreatedAt: rec.CreatedAt,
		}
	}

	stored, err := h.ingestor.Ingest(r.Context(), tenantID, records)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to ingest content", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"stored": stored})
}
