package api

import (
	"net/http"

	resdto "possync/internal/handler/dto/response"
	"possync/internal/handler/httperr"
	"possync/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type RiskHandler struct {
	risk queries.RiskQueries
}

func NewRiskHandler(risk queries.RiskQueries) *RiskHandler {
	return &RiskHandler{risk: risk}
}

// @Summary Offline risk overview
// @Description Aggregate risk signal over devices and queued actions
// @Tags offline
// @Produce json
// @Security BearerAuth
// @Success 200 {object} resdto.RiskOverviewResponse
// @Failure 401 {object} map[string]string
// @Router /offline/risk [get]
func (h *RiskHandler) Overview(c *gin.Context) {
	businessID, _, ok := requireIdentity(c)
	if !ok {
		return
	}

	overview, err := h.risk.Overview(c.Request.Context(), businessID)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromRiskOverview(overview))
}
