package api

import (
	"errors"
	"net/http"

	"possync/internal/domain/device"
	reqdto "possync/internal/handler/dto/request"
	resdto "possync/internal/handler/dto/response"
	"possync/internal/handler/httperr"
	"possync/internal/handler/middleware"
	"possync/internal/pkg/errs"
	"possync/internal/usecase/commands"
	"possync/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DeviceHandler struct {
	commands commands.DeviceCommands
	queries  queries.DeviceQueries
}

func NewDeviceHandler(cmds commands.DeviceCommands, qs queries.DeviceQueries) *DeviceHandler {
	return &DeviceHandler{
		commands: cmds,
		queries:  qs,
	}
}

// @Summary Register offline device
// @Description Register a new offline device or reactivate a known one
// @Tags offline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.RegisterDeviceRequest true "Device registration"
// @Success 201 {object} resdto.DeviceResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /offline/devices [post]
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	businessID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req reqdto.RegisterDeviceRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	d, err := h.commands.RegisterDevice(c.Request.Context(), commands.RegisterDeviceParams{
		BusinessID: businessID,
		UserID:     userID,
		DeviceID:   req.DeviceID,
		Name:       req.Name,
	})
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
		case errors.Is(err, commands.ErrDeviceLimitReached):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Offline device limit reached",
			})
		case errors.Is(err, device.ErrEmptyName):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid device name",
			})
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusCreated, resdto.FromDevice(d))
}

// @Summary Revoke offline device
// @Description Immediately revoke an offline device
// @Tags offline
// @Produce json
// @Security BearerAuth
// @Param id path string true "Device ID"
// @Success 204
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /offline/devices/{id} [delete]
func (h *DeviceHandler) RevokeDevice(c *gin.Context) {
	businessID, _, ok := requireIdentity(c)
	if !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid device ID format",
		})
		return
	}

	if err := h.commands.RevokeDevice(c.Request.Context(), businessID, deviceID); err != nil {
		switch {
		case errors.Is(err, commands.ErrDeviceNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Device not found",
			})
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Record device status
// @Description Record an online/offline heartbeat for a device
// @Tags offline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Device ID"
// @Param request body reqdto.RecordStatusRequest true "Status report"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /offline/devices/{id}/status [post]
func (h *DeviceHandler) RecordStatus(c *gin.Context) {
	businessID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid device ID format",
		})
		return
	}

	var req reqdto.RecordStatusRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	err = h.commands.RecordStatus(c.Request.Context(), businessID, userID, deviceID,
		commands.DeviceStatus(req.Status), req.Since)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrDeviceNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Device not found",
			})
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary List offline devices
// @Description List every offline device registered in the business
// @Tags offline
// @Produce json
// @Security BearerAuth
// @Success 200 {array} resdto.DeviceResponse
// @Failure 401 {object} map[string]string
// @Router /offline/devices [get]
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	businessID, _, ok := requireIdentity(c)
	if !ok {
		return
	}

	views, err := h.queries.ListDevices(c.Request.Context(), businessID)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	response := make([]*resdto.DeviceResponse, len(views))
	for i, v := range views {
		response[i] = resdto.FromDeviceView(v)
	}
	c.JSON(http.StatusOK, response)
}

func requireIdentity(c *gin.Context) (businessID, userID uuid.UUID, ok bool) {
	businessID, bok := middleware.GetBusinessID(c)
	userID, uok := middleware.GetUserID(c)
	if !bok || !uok {
		httperr.AbortWithError(c, http.StatusInternalServerError,
			errs.New("identity missing from request context"), "Internal server error", nil)
		return uuid.Nil, uuid.Nil, false
	}
	return businessID, userID, true
}
