package controllers

import (
	"net/http"
	"strconv"

	"omrledger/httpapi/services"
)

type BlockchainController struct {
	Svc *services.LifecycleService
}

func NewBlockchainController(svc *services.LifecycleService) *BlockchainController {
	return &BlockchainController{Svc: svc}
}

// Stats handles GET /api/blockchain/stats.
func (c *BlockchainController) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.Svc.Stats())
}

type validateResponse struct {
	IsValid bool    `json:"is_valid"`
	Error   *string `json:"error,omitempty"`
}

// Validate handles GET /api/blockchain/validate.
func (c *BlockchainController) Validate(w http.ResponseWriter, r *http.Request) {
	res := c.Svc.Validate()
	resp := validateResponse{IsValid: res.OK}
	if !res.OK {
		resp.Error = &res.Reason
	}
	writeJSON(w, http.StatusOK, resp)
}

// Block handles GET /api/blockchain/block/{n}.
func (c *BlockchainController) Block(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.ParseUint(pathVar(r, "n"), 10, 64)
	if err != nil {
		writeError(w, badRequest("block index must be a non-negative integer"))
		return
	}
	block, err := c.Svc.Block(n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}
