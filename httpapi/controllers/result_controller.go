package controllers

import (
	"net/http"

	"omrledger/core"
	"omrledger/httpapi/services"
)

type ResultController struct {
	Svc *services.LifecycleService
}

func NewResultController(svc *services.LifecycleService) *ResultController {
	return &ResultController{Svc: svc}
}

type commitResultResponse struct {
	SheetID   string         `json:"sheet_id"`
	Status    string         `json:"status"`
	BlockHash string         `json:"block_hash"`
	Result    core.Result    `json:"result"`
}

// Commit handles POST /api/result/commit.
func (c *ResultController) Commit(w http.ResponseWriter, r *http.Request) {
	var req sheetActorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sheet, block, result, err := c.Svc.CommitResult(r.Context(), req.SheetID, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commitResultResponse{
		SheetID: sheet.SheetID, Status: string(sheet.Status), BlockHash: block.Hash, Result: result,
	})
}

// Lookup handles GET /api/result/{roll}.
func (c *ResultController) Lookup(w http.ResponseWriter, r *http.Request) {
	roll := pathVar(r, "roll")
	res, err := c.Svc.Result(r.Context(), roll)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
