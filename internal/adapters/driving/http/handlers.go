package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/swaggo/swag"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driving"
	"github.com/custodia-labs/digest-core/internal/docs"
)

const (
	// multipartOverhead leaves room for boundaries and form fields around the file
	multipartOverhead = 64 * 1024
	multipartMemory   = 8 << 20
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"only PDF uploads are supported"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports each readiness check
// @Description Readiness response
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// QueueStatsResponse lists statistics per job kind
// @Description Queue statistics
type QueueStatsResponse struct {
	Queues []*domain.QueueStats `json:"queues"`
}

// LegacyDocument is the document shape served on the original polling paths
// @Description Document as served by /summaries and /status/{id}
type LegacyDocument struct {
	FileID    string    `json:"file_id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status" example:"summary_ready"`
	Text      string    `json:"text"`
	Summary   string    `json:"summary"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LegacySummariesResponse is the /summaries response
type LegacySummariesResponse struct {
	Summaries []LegacyDocument `json:"summaries"`
	Count     int              `json:"count"`
}

// LegacySubmitResponse is the /summarize response
type LegacySubmitResponse struct {
	FileID string `json:"file_id"`
	Status string `json:"status" example:"uploaded"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "healthy"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the document store and work queue
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(s.checks))}
	code := http.StatusOK
	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "not ready"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, code, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "swagger document unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, doc)
}

// Document endpoints

// handleSubmit godoc
// @Summary      Submit a PDF
// @Description  Stores the PDF, creates its document record and queues extraction
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file    true   "PDF file"
// @Param        mode  query     string  false  "Extraction mode"  Enums(plain_text, markdown)
// @Success      202   {object}  driving.SubmitResult
// @Failure      400   {object}  ErrorResponse  "Invalid upload or mode"
// @Failure      413   {object}  ErrorResponse  "File too large"
// @Failure      503   {object}  ErrorResponse  "Queue unavailable"
// @Router       /api/v1/documents [post]
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	res, ok := s.submit(w, r)
	if !ok {
		return
	}
	if r.URL.Path == "/summarize" {
		writeJSON(w, http.StatusOK, LegacySubmitResponse{FileID: res.DocumentID, Status: legacyStatus(res.Status)})
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) (*driving.SubmitResult, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, domain.ErrFileTooLarge.Error())
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return nil, false
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = r.FormValue("mode")
	}

	res, err := s.pipeline.Submit(r.Context(), driving.SubmitRequest{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Mode:        mode,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return nil, false
	}
	return res, true
}

// handleListDocuments godoc
// @Summary      List documents
// @Description  Lists documents, most recently updated first
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        in_progress  query     bool  false  "Only documents still being processed"
// @Success      200          {object}  domain.DocumentList
// @Failure      400          {object}  ErrorResponse
// @Router       /api/v1/documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseListFilter(w, r)
	if !ok {
		return
	}

	list, err := s.pipeline.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleGetDocument godoc
// @Summary      Get a document
// @Description  Returns the document's status, text and summary
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.Document
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.pipeline.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleQueueStats godoc
// @Summary      Queue statistics
// @Description  Pending and in-flight jobs per stage
// @Tags         Queue
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  QueueStatsResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /api/v1/queue/stats [get]
func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.pipeline.QueueStats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QueueStatsResponse{Queues: stats})
}

// Original polling paths

// handleLegacySummaries godoc
// @Summary      List summaries
// @Tags         Legacy
// @Produce      json
// @Success      200  {object}  LegacySummariesResponse
// @Router       /summaries [get]
func (s *Server) handleLegacySummaries(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseListFilter(w, r)
	if !ok {
		return
	}
	list, err := s.pipeline.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := LegacySummariesResponse{Summaries: make([]LegacyDocument, 0, len(list.Documents))}
	for _, doc := range list.Documents {
		resp.Summaries = append(resp.Summaries, toLegacy(doc))
	}
	resp.Count = len(resp.Summaries)
	writeJSON(w, http.StatusOK, resp)
}

// handleLegacyStatus godoc
// @Summary      Get file status
// @Tags         Legacy
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  LegacyDocument
// @Failure      404  {object}  ErrorResponse
// @Router       /status/{id} [get]
func (s *Server) handleLegacyStatus(w http.ResponseWriter, r *http.Request) {
	doc, err := s.pipeline.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLegacy(doc))
}

// legacyStatus spells a status the way the original paths did: "text_ready"
func legacyStatus(status domain.DocumentStatus) string {
	return strings.ToLower(string(status))
}

func toLegacy(doc *domain.Document) LegacyDocument {
	ld := LegacyDocument{
		FileID:    doc.ID,
		Filename:  doc.Filename,
		Status:    legacyStatus(doc.Status),
		UpdatedAt: doc.UpdatedAt,
	}
	if doc.ExtractedText != nil {
		ld.Text = *doc.ExtractedText
	}
	if doc.Summary != nil {
		ld.Summary = *doc.Summary
	}
	return ld
}

// Helper functions

func parseListFilter(w http.ResponseWriter, r *http.Request) (driving.ListFilter, bool) {
	var filter driving.ListFilter
	if v := r.URL.Query().Get("in_progress"); v != "" {
		inProgress, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "in_progress must be a boolean")
			return filter, false
		}
		filter.InProgress = inProgress
	}
	return filter, true
}

// writeServiceError maps pipeline errors to HTTP statuses
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case domain.IsValidationError(err), errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, domain.ErrQueueUnavailable):
		s.logger.Error("queue unavailable", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, "unable to enqueue document for processing")
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
