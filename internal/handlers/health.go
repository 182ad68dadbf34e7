package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tipcast/tipcast-api/internal/chain"
)

// HealthHandler answers liveness probes.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Health godoc
// @Summary      Health check
// @Description  Reports liveness and the network the API serves
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse  "Returns health status"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Network: chain.Name,
	})
}
