package http

import (
	"net/http"
	"strconv"

	"agrochain/internal/models"
	"agrochain/traceability/activity"
)

// LogActivity handles POST /v1/activities
func (h *Handler) LogActivity(w http.ResponseWriter, r *http.Request) {
	var a models.GrowthActivity
	if !h.decodeJSON(w, r, &a, false) {
		return
	}
	stored, err := h.svc.Activities.LogActivity(r.Context(), &a)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, stored, http.StatusCreated)
}

// LogDispatchActivity handles POST /v1/activities/dispatch
func (h *Handler) LogDispatchActivity(w http.ResponseWriter, r *http.Request) {
	var in activity.DispatchInput
	if !h.decodeJSON(w, r, &in, false) {
		return
	}
	stored, err := h.svc.Activities.LogDispatch(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, stored, http.StatusCreated)
}

// ListContractActivities handles GET /v1/contracts/{id}/activities?farmer_id=
func (h *Handler) ListContractActivities(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Activities.GetActivitiesForContract(r.Context(), r.PathValue("id"), r.URL.Query().Get("farmer_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, map[string]interface{}{"activities": list, "count": len(list)}, http.StatusOK)
}

// ListFarmerActivities handles GET /v1/farmers/{id}/activities?limit=
func (h *Handler) ListFarmerActivities(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	list, err := h.svc.Activities.GetActivitiesForFarmer(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, map[string]interface{}{"activities": list, "count": len(list)}, http.StatusOK)
}
