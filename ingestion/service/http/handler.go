package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	core "agrochain/ingestion/service/core"
	"agrochain/internal/models"
	"agrochain/storage/store"
	"agrochain/traceability/workflow"
)

const maxBodyBytes = 10 * 1024 * 1024

// Handler serves the traceability JSON API
type Handler struct {
	svc    *core.Service
	logger *log.Logger
}

// NewHandler creates a Handler
func NewHandler(s *core.Service, l *log.Logger) *Handler {
	return &Handler{svc: s, logger: l}
}

// Routes registers every endpoint on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("POST /v1/batches", h.CreateBatch)
	mux.HandleFunc("GET /v1/batches/{key}", h.GetBatch)
	mux.HandleFunc("POST /v1/batches/{id}/events", h.AddEvent)
	mux.HandleFunc("GET /v1/batches/{id}/events", h.ListEvents)
	mux.HandleFunc("GET /v1/batches/{id}/events/{eventID}/anchor", h.AuditEvent)
	mux.HandleFunc("POST /v1/batches/{id}/milestones", h.ApplyMilestone)
	mux.HandleFunc("POST /v1/batches/{id}/transport", h.LogTransport)
	mux.HandleFunc("POST /v1/batches/{id}/storage", h.LogStorage)
	mux.HandleFunc("POST /v1/batches/{id}/verification", h.LogVerification)
	mux.HandleFunc("POST /v1/batches/{id}/diagnostics", h.LogDiagnostic)

	mux.HandleFunc("GET /v1/batches/{id}/processing", h.GetProcessing)
	mux.HandleFunc("POST /v1/batches/{id}/processing/open", h.OpenProcessing)
	mux.HandleFunc("PUT /v1/batches/{id}/processing", h.SaveProcessing)
	mux.HandleFunc("POST /v1/batches/{id}/processing/complete", h.CompleteProcessing)
	mux.HandleFunc("POST /v1/batches/{id}/dispatch", h.Dispatch)

	mux.HandleFunc("POST /v1/activities", h.LogActivity)
	mux.HandleFunc("POST /v1/activities/dispatch", h.LogDispatchActivity)
	mux.HandleFunc("GET /v1/contracts/{id}/activities", h.ListContractActivities)
	mux.HandleFunc("GET /v1/farmers/{id}/activities", h.ListFarmerActivities)
	mux.HandleFunc("GET /v1/farmers/{id}/batches", h.ListFarmerBatches)

	mux.HandleFunc("GET /v1/milestones", h.ListMilestones)
	mux.HandleFunc("GET /v1/trace/{key}", h.Trace)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339Nano),
		"service":   "agrochain-ingestion",
		"hash_mode": h.svc.Events.Hasher().Mode(),
	}, http.StatusOK)
}

// decodeJSON reads the request body into v. An empty body is accepted only when optional.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		h.respondError(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return false
	}
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		h.logger.Printf("HTTP Handler: Failed to parse JSON request on %s: %v", r.URL.Path, err)
		h.respondError(w, "Bad Request: Invalid JSON format", http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, workflow.ErrGate):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, workflow.ErrFinalized):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrMint):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Printf("HTTP Handler: %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	h.respondError(w, err.Error(), code)
}

func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("HTTP Handler: Failed to encode JSON response: %v", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, message string, statusCode int) {
	h.respondJSON(w, map[string]interface{}{
		"error":   message,
		"status":  statusCode,
		"message": http.StatusText(statusCode),
	}, statusCode)
}
