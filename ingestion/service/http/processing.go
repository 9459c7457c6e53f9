package http

import (
	"net/http"

	"agrochain/internal/models"
	"agrochain/traceability/workflow"
)

// GetProcessing handles GET /v1/batches/{id}/processing
func (h *Handler) GetProcessing(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Workflow.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, sess, http.StatusOK)
}

type actorRequest struct {
	Actor models.Actor `json:"actor"`
}

// OpenProcessing handles POST /v1/batches/{id}/processing/open
func (h *Handler) OpenProcessing(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if !h.decodeJSON(w, r, &req, true) {
		return
	}
	sess, err := h.svc.Workflow.Open(r.Context(), r.PathValue("id"), req.Actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, sess, http.StatusOK)
}

// SaveProcessing handles PUT /v1/batches/{id}/processing
func (h *Handler) SaveProcessing(w http.ResponseWriter, r *http.Request) {
	var res models.ProcessingResult
	if !h.decodeJSON(w, r, &res, false) {
		return
	}
	sess, err := h.svc.Workflow.Save(r.Context(), r.PathValue("id"), &res)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, sess, http.StatusOK)
}

type completeRequest struct {
	Result *models.ProcessingResult `json:"result,omitempty"`
	Actor  models.Actor             `json:"actor"`
}

// CompleteProcessing handles POST /v1/batches/{id}/processing/complete.
// Without a result in the body the saved state is completed.
func (h *Handler) CompleteProcessing(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if !h.decodeJSON(w, r, &req, true) {
		return
	}
	res, err := h.svc.Workflow.Complete(r.Context(), r.PathValue("id"), req.Result, req.Actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, res, http.StatusOK)
}

// Dispatch handles POST /v1/batches/{id}/dispatch
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var in workflow.DispatchInput
	if !h.decodeJSON(w, r, &in, false) {
		return
	}
	ev, err := h.svc.Workflow.Dispatch(r.Context(), r.PathValue("id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, ev, http.StatusCreated)
}
