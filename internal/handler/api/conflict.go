package api

import (
	"errors"
	"net/http"
	"strconv"

	"possync/internal/domain/action"
	reqdto "possync/internal/handler/dto/request"
	resdto "possync/internal/handler/dto/response"
	"possync/internal/handler/httperr"
	"possync/internal/usecase/commands"
	"possync/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConflictHandler struct {
	resolutions commands.ResolutionCommands
	conflicts   queries.ConflictQueries
}

func NewConflictHandler(resolutions commands.ResolutionCommands, conflicts queries.ConflictQueries) *ConflictHandler {
	return &ConflictHandler{
		resolutions: resolutions,
		conflicts:   conflicts,
	}
}

// @Summary List device conflicts
// @Description List CONFLICT and REJECTED actions for a device, newest first
// @Tags offline
// @Produce json
// @Security BearerAuth
// @Param id path string true "Device ID"
// @Param after query string false "Pagination cursor"
// @Param limit query int false "Page size"
// @Success 200 {object} resdto.ConflictListResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /offline/devices/{id}/conflicts [get]
func (h *ConflictHandler) ListConflicts(c *gin.Context) {
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

	limit, _ := strconv.Atoi(c.Query("limit"))
	page, err := h.conflicts.ListConflicts(c.Request.Context(), businessID, deviceID, c.Query("after"), limit)
	if err != nil {
		switch {
		case errors.Is(err, queries.ErrInvalidCursor):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid pagination cursor",
			})
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromConflictPage(page))
}

// @Summary Resolve conflict
// @Description Apply an operator resolution to a conflicted or rejected action
// @Tags offline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Action ID"
// @Param request body reqdto.ResolveConflictRequest true "Resolution"
// @Success 200 {object} resdto.ActionResultResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /offline/conflicts/{id}/resolve [post]
func (h *ConflictHandler) ResolveConflict(c *gin.Context) {
	businessID, operatorID, ok := requireIdentity(c)
	if !ok {
		return
	}

	actionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid action ID format",
		})
		return
	}

	var req reqdto.ResolveConflictRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	result, err := h.resolutions.ResolveConflict(c.Request.Context(), businessID, operatorID, actionID,
		action.Resolution(req.Resolution))
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrActionNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Offline action not found",
			})
		case errors.Is(err, commands.ErrInvalidResolution):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Resolution is not valid for this action",
			})
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromActionResult(result))
}
