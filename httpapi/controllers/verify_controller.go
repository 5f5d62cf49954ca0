package controllers

import (
	"net/http"

	"omrledger/core"
	"omrledger/httpapi/services"
)

type VerifyController struct {
	Svc *services.LifecycleService
}

func NewVerifyController(svc *services.LifecycleService) *VerifyController {
	return &VerifyController{Svc: svc}
}

type createVerifyRequest struct {
	SheetID    string          `json:"sheet_id"`
	AttemptID  string          `json:"attempt_id"`
	SignerType core.SignerType `json:"signer_type"`
	SignerKey  string          `json:"signer_key"`
	Actor      string          `json:"actor"`
}

type createVerifyResponse struct {
	SheetID   string `json:"sheet_id"`
	Status    string `json:"status"`
	BlockHash string `json:"block_hash,omitempty"`
}

type signaturesIncompleteResponse struct {
	Error   string            `json:"error"`
	Missing []core.SignerType `json:"missing_signer_types"`
}

// Create handles POST /api/verify/create. It records one signer's
// signature and returns 200 once the third signature completes the set;
// until then it returns 400 listing the still-outstanding signer types
// (spec §6).
func (c *VerifyController) Create(w http.ResponseWriter, r *http.Request) {
	var req createVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sheet, block, err := c.Svc.SubmitSignature(r.Context(), req.SheetID, req.AttemptID, req.SignerType, req.SignerKey, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	if block == nil {
		existing, lerr := c.Svc.Repo.LoadSignatures(r.Context(), req.SheetID, req.AttemptID)
		if lerr != nil {
			writeError(w, lerr)
			return
		}
		signed := make(map[core.SignerType]bool, len(existing))
		for _, sig := range existing {
			signed[sig.SignerType] = true
		}
		var missing []core.SignerType
		for _, t := range core.RequiredSignerTypes {
			if !signed[t] {
				missing = append(missing, t)
			}
		}
		writeJSON(w, http.StatusBadRequest, signaturesIncompleteResponse{
			Error:   "signatures incomplete",
			Missing: missing,
		})
		return
	}
	writeJSON(w, http.StatusOK, createVerifyResponse{SheetID: sheet.SheetID, Status: string(sheet.Status), BlockHash: block.Hash})
}
