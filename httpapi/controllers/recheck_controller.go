package controllers

import (
	"net/http"

	"omrledger/httpapi/services"
)

type RecheckController struct {
	Svc *services.LifecycleService
}

func NewRecheckController(svc *services.LifecycleService) *RecheckController {
	return &RecheckController{Svc: svc}
}

type requestRecheckRequest struct {
	SheetID     string                 `json:"sheet_id"`
	Objection   map[string]interface{} `json:"objection"`
	ManualTotal *float64               `json:"manual_total,omitempty"`
	Actor       string                 `json:"actor"`
}

type requestRecheckResponse struct {
	BlockHash string `json:"block_hash"`
}

// Create handles POST /api/recheck/create.
func (c *RecheckController) Create(w http.ResponseWriter, r *http.Request) {
	var req requestRecheckRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	block, err := c.Svc.RequestRecheck(r.Context(), req.SheetID, req.Objection, req.ManualTotal, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requestRecheckResponse{BlockHash: block.Hash})
}
