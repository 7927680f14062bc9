package api

import (
	"errors"
	"net/http"

	reqdto "possync/internal/handler/dto/request"
	resdto "possync/internal/handler/dto/response"
	"possync/internal/handler/httperr"
	"possync/internal/handler/middleware"
	"possync/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SyncHandler struct {
	sync commands.SyncCommands
}

func NewSyncHandler(sync commands.SyncCommands) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// @Summary Sync offline actions
// @Description Replay a device's queued offline actions against the ledger
// @Tags offline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.SyncRequest true "Queued actions"
// @Success 200 {object} resdto.SyncResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /offline/sync [post]
func (h *SyncHandler) Sync(c *gin.Context) {
	businessID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}

	deviceID, ok := requireDeviceID(c)
	if !ok {
		return
	}

	var req reqdto.SyncRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	result, err := h.sync.SyncActions(c.Request.Context(), businessID, userID, deviceID, req.ToIncoming())
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrOfflineNotEnabled):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Offline capability not enabled for this subscription",
			})
		case errors.Is(err, commands.ErrSubscriptionInactive):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Subscription is not active",
			})
		case errors.Is(err, commands.ErrMembershipInactive):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Membership is not active",
			})
		case errors.Is(err, commands.ErrDeviceNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Device not found",
			})
		case errors.Is(err, commands.ErrDeviceNotActive):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Device is not active",
			})
		case errors.Is(err, commands.ErrDeviceExpired):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Device exceeded the offline duration ceiling",
			})
		case errors.Is(err, commands.ErrQueueCountExceeded):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Queued sale count exceeds the offline ceiling",
			})
		case errors.Is(err, commands.ErrQueueValueExceeded):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Queued sale value exceeds the offline ceiling",
			})
		case errors.Is(err, commands.ErrInvalidAction):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Batch contains an invalid action",
			})
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromSyncResult(result))
}

// requireDeviceID insists on a device-scoped token; sync and cache
// endpoints are meaningless without one.
func requireDeviceID(c *gin.Context) (uuid.UUID, bool) {
	deviceID, ok := middleware.GetDeviceID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Token is not bound to an offline device",
		})
		return uuid.Nil, false
	}
	return deviceID, true
}
