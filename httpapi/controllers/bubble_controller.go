package controllers

import (
	"net/http"

	"omrledger/httpapi/services"
)

type BubbleController struct {
	Svc *services.LifecycleService
}

func NewBubbleController(svc *services.LifecycleService) *BubbleController {
	return &BubbleController{Svc: svc}
}

type createBubbleResponse struct {
	SheetID   string            `json:"sheet_id"`
	Status    string            `json:"status"`
	BlockHash string            `json:"block_hash"`
	Answers   map[string]string `json:"answers"`
}

// Create handles POST /api/bubble/create.
func (c *BubbleController) Create(w http.ResponseWriter, r *http.Request) {
	var req sheetActorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sheet, block, answers, err := c.Svc.CreateBubble(r.Context(), req.SheetID, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createBubbleResponse{
		SheetID: sheet.SheetID, Status: string(sheet.Status), BlockHash: block.Hash, Answers: answers,
	})
}
