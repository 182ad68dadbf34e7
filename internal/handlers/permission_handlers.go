package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	client "github.com/tipcast/tipcast-api/internal/client/http"
)

// PermissionsHandler proxies permission lookups to the wallet provider's
// RPC endpoint, keeping the upstream URL out of clients.
type PermissionsHandler struct {
	rpc *client.Client
}

func NewPermissionsHandler(rpc *client.Client) *PermissionsHandler {
	return &PermissionsHandler{rpc: rpc}
}

// FetchPermissionsRequest scopes the lookup.
type FetchPermissionsRequest struct {
	Account string `json:"account"`
	ChainID string `json:"chainId"`
	Spender string `json:"spender"`
}

type rpcEnvelope struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// FetchPermissions godoc
// @Summary      Fetch granted spend permissions
// @Description  Proxies the lookup to the wallet provider's RPC endpoint
// @Tags         permissions
// @Accept       json
// @Produce      json
// @Success      200  {object}  object
// @Failure      500  {object}  ErrorResponse
// @Router       /api/permissions [post]
func (h *PermissionsHandler) FetchPermissions(c *gin.Context) {
	var req FetchPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	envelope := rpcEnvelope{
		JSONRPC: "2.0",
		Method:  "coinbase_fetchPermissions",
		Params:  []interface{}{req},
		ID:      1,
	}

	resp, err := h.rpc.Post(c.Request.Context(), "/", envelope)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to fetch permissions", err)
		return
	}

	var result json.RawMessage
	if err := h.rpc.DecodeJSON(resp, &result); err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to decode permissions", err)
		return
	}
	c.Data(http.StatusOK, "application/json", result)
}
