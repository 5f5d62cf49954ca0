package controllers

import (
	"encoding/base64"
	"net/http"

	"omrledger/httpapi/services"
)

type ScanController struct {
	Svc *services.LifecycleService
}

func NewScanController(svc *services.LifecycleService) *ScanController {
	return &ScanController{Svc: svc}
}

type createScanRequest struct {
	RollNumber  string `json:"roll_number"`
	ExamID      string `json:"exam_id"`
	StudentName string `json:"student_name"`
	ImageBase64 string `json:"image_base64"`
	Actor       string `json:"actor"`
}

type createScanResponse struct {
	SheetID   string `json:"sheet_id"`
	Status    string `json:"status"`
	BlockHash string `json:"block_hash"`
}

// Create handles POST /api/scan/create.
func (c *ScanController) Create(w http.ResponseWriter, r *http.Request) {
	var req createScanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		writeError(w, badRequest("image_base64 is not valid base64"))
		return
	}
	sheet, block, err := c.Svc.CreateScan(r.Context(), req.RollNumber, req.ExamID, req.StudentName, image, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createScanResponse{SheetID: sheet.SheetID, Status: string(sheet.Status), BlockHash: block.Hash})
}
