package controllers

import (
	"net/http"

	"omrledger/core"
	"omrledger/httpapi/services"
)

type AnswerKeyController struct {
	Svc *services.LifecycleService
}

func NewAnswerKeyController(svc *services.LifecycleService) *AnswerKeyController {
	return &AnswerKeyController{Svc: svc}
}

type uploadQuestionPaperRequest struct {
	ExamID    string                             `json:"exam_id"`
	Questions map[string]core.AnswerKeyQuestion `json:"questions"`
	Actor     string                             `json:"actor"`
}

type examActorRequest struct {
	ExamID string `json:"exam_id"`
	Actor  string `json:"actor"`
}

type blockHashResponse struct {
	BlockHash string `json:"block_hash"`
}

// Upload handles POST /api/answerkey/upload.
func (c *AnswerKeyController) Upload(w http.ResponseWriter, r *http.Request) {
	var req uploadQuestionPaperRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	block, err := c.Svc.UploadQuestionPaper(r.Context(), req.ExamID, req.Questions, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blockHashResponse{BlockHash: block.Hash})
}

// Verify handles POST /api/answerkey/verify.
func (c *AnswerKeyController) Verify(w http.ResponseWriter, r *http.Request) {
	var req examActorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	block, err := c.Svc.VerifyAnswerKey(r.Context(), req.ExamID, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blockHashResponse{BlockHash: block.Hash})
}

// Approve handles POST /api/answerkey/approve.
func (c *AnswerKeyController) Approve(w http.ResponseWriter, r *http.Request) {
	var req examActorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	block, err := c.Svc.ApproveAnswerKey(r.Context(), req.ExamID, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blockHashResponse{BlockHash: block.Hash})
}
