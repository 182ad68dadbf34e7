package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tipcast/tipcast-api/internal/client/prices"
)

// PriceHandler serves the cached ETH/USD spot price.
type PriceHandler struct {
	prices *prices.Client
}

func NewPriceHandler(prices *prices.Client) *PriceHandler {
	return &PriceHandler{prices: prices}
}

// PriceResponse is the spot price for the display pair.
type PriceResponse struct {
	Base     string  `json:"base"`
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

// GetEthPrice godoc
// @Summary      Get ETH/USD spot price
// @Description  Returns the spot price, cached after the first successful fetch
// @Tags         prices
// @Produce      json
// @Success      200  {object}  PriceResponse
// @Failure      502  {object}  ErrorResponse
// @Router       /api/prices/eth [get]
func (h *PriceHandler) GetEthPrice(c *gin.Context) {
	quote, err := h.prices.EthUSD(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusBadGateway, "Failed to fetch price", err)
		return
	}
	sendSuccess(c, http.StatusOK, PriceResponse{
		Base:     quote.Base,
		Currency: quote.Currency,
		Amount:   quote.Amount,
	})
}
