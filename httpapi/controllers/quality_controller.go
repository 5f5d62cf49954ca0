package controllers

import (
	"net/http"

	"omrledger/httpapi/services"
)

type QualityController struct {
	Svc *services.LifecycleService
}

func NewQualityController(svc *services.LifecycleService) *QualityController {
	return &QualityController{Svc: svc}
}

type sheetActorRequest struct {
	SheetID string `json:"sheet_id"`
	Actor   string `json:"actor"`
}

type sheetBlockResponse struct {
	SheetID   string `json:"sheet_id"`
	Status    string `json:"status"`
	BlockHash string `json:"block_hash"`
}

// Assess handles POST /api/quality/assess, a supplemented route exposing
// core.Lifecycle.AssessQuality (spec §4.2 assessQuality is implemented but
// not listed in the representative §6 route table).
func (c *QualityController) Assess(w http.ResponseWriter, r *http.Request) {
	var req sheetActorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sheet, block, err := c.Svc.AssessQuality(r.Context(), req.SheetID, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheetBlockResponse{SheetID: sheet.SheetID, Status: string(sheet.Status), BlockHash: block.Hash})
}

// Reconstruct handles POST /api/quality/reconstruct. Per spec §4.2's
// command table, reconstruct never produces a new ledger block — it only
// updates the sheet — so the response carries no block_hash.
func (c *QualityController) Reconstruct(w http.ResponseWriter, r *http.Request) {
	var req sheetActorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sheet, err := c.Svc.Reconstruct(r.Context(), req.SheetID, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheetBlockResponse{SheetID: sheet.SheetID, Status: string(sheet.Status)})
}
