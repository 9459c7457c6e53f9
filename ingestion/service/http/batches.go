package http

import (
	"encoding/json"
	"net/http"

	"agrochain/internal/models"
	"agrochain/traceability/batches"
	"agrochain/traceability/lifecycle"
)

// CreateBatch handles POST /v1/batches
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var in batches.CreateInput
	if !h.decodeJSON(w, r, &in, false) {
		return
	}
	b, err := h.svc.Batches.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, b, http.StatusCreated)
}

// GetBatch handles GET /v1/batches/{key}; key is a batch code or id
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Batches.Find(r.Context(), r.PathValue("key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, b, http.StatusOK)
}

// ListFarmerBatches handles GET /v1/farmers/{id}/batches
func (h *Handler) ListFarmerBatches(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Batches.ListByFarmer(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, map[string]interface{}{"batches": list, "count": len(list)}, http.StatusOK)
}

// AddEvent handles POST /v1/batches/{id}/events. The body is a traceability
// event with an optional detail_kind/details pair.
func (h *Handler) AddEvent(w http.ResponseWriter, r *http.Request) {
	var ev models.TraceabilityEvent
	if !h.decodeJSON(w, r, &ev, false) {
		return
	}
	ev.BatchID = r.PathValue("id")
	stored, err := h.svc.Events.AddEvent(r.Context(), &ev)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, stored, http.StatusCreated)
}

// ListEvents handles GET /v1/batches/{id}/events
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Events.GetEventsForBatch(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, map[string]interface{}{"events": list, "count": len(list)}, http.StatusOK)
}

// AuditEvent re-checks an event's fingerprint and its ledger anchor
func (h *Handler) AuditEvent(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Audit.VerifyEvent(r.Context(), r.PathValue("id"), r.PathValue("eventID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, map[string]interface{}{"report": report, "verified": report.Verified()}, http.StatusOK)
}

type milestoneRequest struct {
	lifecycle.Common
	Milestone  string            `json:"milestone"`
	DetailKind models.DetailKind `json:"detail_kind,omitempty"`
	Details    json.RawMessage   `json:"details,omitempty"`
}

// ApplyMilestone handles POST /v1/batches/{id}/milestones
func (h *Handler) ApplyMilestone(w http.ResponseWriter, r *http.Request) {
	var req milestoneRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}
	if req.Milestone == "" {
		h.fail(w, r, &models.ValidationError{Field: "milestone", Message: "is required"})
		return
	}
	in := lifecycle.MilestoneInput{Common: req.Common}
	if req.DetailKind != "" {
		d, err := models.DecodeDetail(req.DetailKind, req.Details)
		if err != nil {
			h.fail(w, r, &models.ValidationError{Field: "details", Message: err.Error()})
			return
		}
		in.Detail = d
	}

	ev, err := h.svc.Recorder.ApplyMilestone(r.Context(), r.PathValue("id"), req.Milestone, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if ev == nil {
		h.respondJSON(w, map[string]interface{}{"applied": false, "milestone": req.Milestone}, http.StatusOK)
		return
	}
	h.respondJSON(w, ev, http.StatusCreated)
}

// ListMilestones handles GET /v1/milestones
func (h *Handler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, map[string]interface{}{"milestones": lifecycle.Milestones()}, http.StatusOK)
}

// LogTransport handles POST /v1/batches/{id}/transport
func (h *Handler) LogTransport(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.TransportInput
	if !h.decodeJSON(w, r, &in, false) {
		return
	}
	h.recorded(w, r)(h.svc.Recorder.LogTransport(r.Context(), r.PathValue("id"), in))
}

// LogStorage handles POST /v1/batches/{id}/storage
func (h *Handler) LogStorage(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.StorageInput
	if !h.decodeJSON(w, r, &in, false) {
		return
	}
	h.recorded(w, r)(h.svc.Recorder.LogStorage(r.Context(), r.PathValue("id"), in))
}

// LogVerification handles POST /v1/batches/{id}/verification
func (h *Handler) LogVerification(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.VerificationInput
	if !h.decodeJSON(w, r, &in, false) {
		return
	}
	h.recorded(w, r)(h.svc.Recorder.LogVerification(r.Context(), r.PathValue("id"), in))
}

// LogDiagnostic handles POST /v1/batches/{id}/diagnostics
func (h *Handler) LogDiagnostic(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.DiagnosticInput
	if !h.decodeJSON(w, r, &in, false) {
		return
	}
	h.recorded(w, r)(h.svc.Recorder.LogDiagnostic(r.Context(), r.PathValue("id"), in))
}

func (h *Handler) recorded(w http.ResponseWriter, r *http.Request) func(*models.TraceabilityEvent, error) {
	return func(ev *models.TraceabilityEvent, err error) {
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.respondJSON(w, ev, http.StatusCreated)
	}
}

// Trace handles GET /v1/trace/{key}, the public lookup behind QR codes
func (h *Handler) Trace(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Events.ResolveByExternalKey(r.Context(), r.PathValue("key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if p == nil {
		h.respondError(w, "No batch matches this code", http.StatusNotFound)
		return
	}
	h.respondJSON(w, p, http.StatusOK)
}
