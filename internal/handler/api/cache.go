package api

import (
	"net/http"

	"possync/internal/handler/httperr"
	"possync/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type CacheHandler struct {
	cache queries.CacheQueries
}

func NewCacheHandler(cache queries.CacheQueries) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// @Summary Fetch offline extract
// @Description Return the device's offline data extract, rebuilding on a cache miss
// @Tags offline
// @Produce json
// @Security BearerAuth
// @Success 200 {object} queries.CacheExtract
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /offline/cache [get]
func (h *CacheHandler) GetExtract(c *gin.Context) {
	businessID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}

	deviceID, ok := requireDeviceID(c)
	if !ok {
		return
	}

	extract, err := h.cache.GetExtract(c.Request.Context(), businessID, userID, deviceID)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, extract)
}
