package controllers

import (
	"net/http"

	"omrledger/core"
	"omrledger/httpapi/services"
)

type ScoreController struct {
	Svc *services.LifecycleService
}

func NewScoreController(svc *services.LifecycleService) *ScoreController {
	return &ScoreController{Svc: svc}
}

type createScoreResponse struct {
	SheetID    string          `json:"sheet_id"`
	Status     string          `json:"status"`
	BlockHash  string          `json:"block_hash"`
	Evaluation core.Evaluation `json:"evaluation"`
}

// Create handles POST /api/score/create.
func (c *ScoreController) Create(w http.ResponseWriter, r *http.Request) {
	var req sheetActorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sheet, block, eval, err := c.Svc.CreateScore(r.Context(), req.SheetID, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createScoreResponse{
		SheetID: sheet.SheetID, Status: string(sheet.Status), BlockHash: block.Hash, Evaluation: eval,
	})
}
