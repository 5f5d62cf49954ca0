package controllers

import (
	"net/http"

	"omrledger/httpapi/services"
)

type InterventionController struct {
	Svc *services.LifecycleService
}

func NewInterventionController(svc *services.LifecycleService) *InterventionController {
	return &InterventionController{Svc: svc}
}

// List handles GET /api/intervention/list?status=pending.
func (c *InterventionController) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = "pending"
	}
	list, err := c.Svc.PendingInterventions(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type resolveInterventionRequest struct {
	InterventionID string `json:"intervention_id"`
	Resolution     string `json:"resolution"`
	Actor          string `json:"actor"`
}

// Resolve handles POST /api/intervention/resolve.
func (c *InterventionController) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveInterventionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := c.Svc.ResolveIntervention(r.Context(), req.InterventionID, req.Resolution, req.Actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
