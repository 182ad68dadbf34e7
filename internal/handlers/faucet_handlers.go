package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/tipcast/tipcast-api/internal/client/faucet"
)

// FaucetHandler dispenses testnet funds through the upstream dispenser.
type FaucetHandler struct {
	faucet *faucet.Client
}

func NewFaucetHandler(faucet *faucet.Client) *FaucetHandler {
	return &FaucetHandler{faucet: faucet}
}

// FaucetRequest names the address to fund.
type FaucetRequest struct {
	To string `json:"to"`
}

// FaucetResponse carries the dispenser's transaction reference.
type FaucetResponse struct {
	Hash json.RawMessage `json:"hash"`
}

// Dispense godoc
// @Summary      Request testnet funds
// @Description  Validates the address and forwards to the upstream dispenser
// @Tags         faucet
// @Accept       json
// @Produce      json
// @Success      200  {object}  FaucetResponse
// @Failure      400  {string}  string  "Invalid `to` address provided"
// @Failure      500  {string}  string  "Failed to disperse faucet"
// @Router       /api/faucet [post]
func (h *FaucetHandler) Dispense(c *gin.Context) {
	var req FaucetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.To == "" || !common.IsHexAddress(req.To) {
		c.String(http.StatusBadRequest, "Invalid `to` address provided")
		return
	}

	hash, err := h.faucet.Dispense(c.Request.Context(), req.To)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to disperse faucet")
		return
	}
	sendSuccess(c, http.StatusOK, FaucetResponse{Hash: hash})
}
