package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tipcast/tipcast-api/internal/client/custody"
	"github.com/tipcast/tipcast-api/internal/signer"
)

// WalletsHandler provisions and drives remote custodial signers.
type WalletsHandler struct {
	privy   custody.Provider
	turnkey custody.Provider
}

func NewWalletsHandler(privy, turnkey custody.Provider) *WalletsHandler {
	return &WalletsHandler{privy: privy, turnkey: turnkey}
}

func (h *WalletsHandler) provider(kind signer.Kind) custody.Provider {
	switch kind {
	case signer.KindPrivy:
		return h.privy
	case signer.KindTurnkey:
		return h.turnkey
	}
	return nil
}

// CreateWalletRequest selects the custody provider to provision with.
type CreateWalletRequest struct {
	SignerType string `json:"signerType" binding:"required"`
}

// CreateWallet godoc
// @Summary      Create a custodial wallet
// @Description  Provisions a new wallet with the selected custody provider
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Success      200  {object}  custody.Wallet
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/wallets [post]
func (h *WalletsHandler) CreateWallet(c *gin.Context) {
	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kind, err := signer.ParseKind(req.SignerType)
	provider := h.provider(kind)
	if err != nil || provider == nil {
		sendError(c, http.StatusBadRequest, "Invalid signer type: "+req.SignerType, err)
		return
	}

	wallet, err := provider.CreateWallet(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to create wallet", err)
		return
	}
	sendSuccess(c, http.StatusOK, wallet)
}

// SignRequest identifies the wallet and the payload to sign.
type SignRequest struct {
	ID         string `json:"id,omitempty"`
	Address    string `json:"address,omitempty"`
	Message    string `json:"message"`
	SignerType string `json:"signerType" binding:"required"`
}

// Sign godoc
// @Summary      Sign a payload
// @Description  Signs a payload with a previously provisioned custodial wallet.
// @Description  One provider returns a serialized signature, the other raw r/s/v
// @Description  components the caller assembles.
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Success      200  {object}  custody.SignResult
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/wallets/sign [post]
func (h *WalletsHandler) Sign(c *gin.Context) {
	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Message == "" {
		sendError(c, http.StatusBadRequest, "message is required", nil)
		return
	}

	kind, err := signer.ParseKind(req.SignerType)
	provider := h.provider(kind)
	if err != nil || provider == nil {
		sendError(c, http.StatusBadRequest, "Invalid signer type: "+req.SignerType, err)
		return
	}

	result, err := provider.SignMessage(c.Request.Context(), req.ID, req.Address, req.Message)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to sign message", err)
		return
	}
	sendSuccess(c, http.StatusOK, result)
}
