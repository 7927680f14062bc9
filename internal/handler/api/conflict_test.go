//go:build unit

package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"possync/internal/domain/action"
	"possync/internal/handler/api"
	"possync/internal/usecase/commands"
	"possync/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type stubResolutionCommands struct {
	fn func(ctx context.Context, businessID, operatorID, actionID uuid.UUID, resolution action.Resolution) (*commands.ActionResult, error)
}

func (s *stubResolutionCommands) ResolveConflict(ctx context.Context, businessID, operatorID, actionID uuid.UUID, resolution action.Resolution) (*commands.ActionResult, error) {
	return s.fn(ctx, businessID, operatorID, actionID, resolution)
}

type stubConflictQueries struct {
	fn func(ctx context.Context, businessID, deviceID uuid.UUID, after string, limit int) (*queries.ConflictPage, error)
}

func (s *stubConflictQueries) ListConflicts(ctx context.Context, businessID, deviceID uuid.UUID, after string, limit int) (*queries.ConflictPage, error) {
	return s.fn(ctx, businessID, deviceID, after, limit)
}

type ConflictHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	resolutions *stubResolutionCommands
	conflicts   *stubConflictQueries
}

func (s *ConflictHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.resolutions = &stubResolutionCommands{}
	s.conflicts = &stubConflictQueries{}
	handler := api.NewConflictHandler(s.resolutions, s.conflicts)

	authMiddleware := func(c *gin.Context) {
		c.Set("user_id", uuid.New())
		c.Set("business_id", uuid.New())
		c.Next()
	}
	s.router.GET("/devices/:id/conflicts", authMiddleware, handler.ListConflicts)
	s.router.POST("/conflicts/:id/resolve", authMiddleware, handler.ResolveConflict)
}

func TestConflictHandlerSuite(t *testing.T) {
	suite.Run(t, new(ConflictHandlerTestSuite))
}

func (s *ConflictHandlerTestSuite) TestListConflicts() {
	deviceID := uuid.New()

	s.Run("returns the page with cursor", func() {
		s.conflicts.fn = func(_ context.Context, _, gotDeviceID uuid.UUID, after string, limit int) (*queries.ConflictPage, error) {
			s.Equal(deviceID, gotDeviceID)
			s.Equal("prev-cursor", after)
			s.Equal(5, limit)
			return &queries.ConflictPage{
				Items: []*queries.ActionView{{
					ID:         uuid.New(),
					DeviceID:   gotDeviceID,
					ActionType: "SALE_COMPLETE",
					Status:     "CONFLICT",
					CreatedAt:  time.Now(),
				}},
				NextCursor: "next-cursor",
			}, nil
		}

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/devices/"+deviceID.String()+"/conflicts?after=prev-cursor&limit=5", nil)
		s.router.ServeHTTP(w, req)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), "next-cursor")
		s.Contains(w.Body.String(), "CONFLICT")
	})

	s.Run("bad device id", func() {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/devices/not-a-uuid/conflicts", nil)
		s.router.ServeHTTP(w, req)

		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("bad cursor", func() {
		s.conflicts.fn = func(_ context.Context, _, _ uuid.UUID, _ string, _ int) (*queries.ConflictPage, error) {
			return nil, queries.ErrInvalidCursor
		}

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/devices/"+deviceID.String()+"/conflicts?after=garbage", nil)
		s.router.ServeHTTP(w, req)

		s.Equal(http.StatusBadRequest, w.Code)
		s.Contains(w.Body.String(), "cursor")
	})
}

func (s *ConflictHandlerTestSuite) postResolve(actionID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/conflicts/"+actionID+"/resolve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *ConflictHandlerTestSuite) TestResolveConflict() {
	actionID := uuid.New()

	s.Run("applies the resolution", func() {
		s.resolutions.fn = func(_ context.Context, _, _, gotActionID uuid.UUID, resolution action.Resolution) (*commands.ActionResult, error) {
			s.Equal(actionID, gotActionID)
			s.Equal(action.ResolutionRetry, resolution)
			return &commands.ActionResult{
				ID:         gotActionID,
				ActionType: action.TypeSaleComplete,
				Status:     action.StatusApplied,
			}, nil
		}

		w := s.postResolve(actionID.String(), `{"resolution":"RETRY"}`)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), "APPLIED")
	})

	s.Run("unknown resolution verb fails binding", func() {
		w := s.postResolve(actionID.String(), `{"resolution":"ESCALATE"}`)

		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unknown action", func() {
		s.resolutions.fn = func(_ context.Context, _, _, _ uuid.UUID, _ action.Resolution) (*commands.ActionResult, error) {
			return nil, commands.ErrActionNotFound
		}

		w := s.postResolve(uuid.NewString(), `{"resolution":"DISMISS"}`)

		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("resolution rejected by the workstation", func() {
		s.resolutions.fn = func(_ context.Context, _, _, _ uuid.UUID, _ action.Resolution) (*commands.ActionResult, error) {
			return nil, commands.ErrInvalidResolution
		}

		w := s.postResolve(actionID.String(), `{"resolution":"OVERRIDE_PRICE"}`)

		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})
}
