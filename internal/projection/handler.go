package projection

import (
	"errors"
	"log/slog"
	"net/http"

	httperr "github.com/aevon-lab/revenue-engine/internal/core/errors"
	"github.com/aevon-lab/revenue-engine/internal/core/storage"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/revenue/buckets/:period", s.HandleGetBucket)
	r.GET("/v1/revenue/buckets", s.HandleQueryRange)
}

// HandleGetBucket handles GET /v1/revenue/buckets/:period
func (s *Service) HandleGetBucket(c *gin.Context) {
	view, err := s.GetBucket(c.Request.Context(), c.Param("period"))
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleQueryRange handles GET /v1/revenue/buckets
// Query parameters: start, end (YYYY-MM, inclusive), granularity
func (s *Service) HandleQueryRange(c *gin.Context) {
	var req RangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidPeriodError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.QueryRange(c.Request.Context(), req)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func writeQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidPeriodError,
			Message:   "Invalid revenue query",
			Details:   err.Error(),
		})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpBucketNotFoundError,
			Message:   "No revenue bucket for period",
			Details:   c.Param("period"),
		})
	default:
		slog.Error("[Projection] Query failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to query revenue buckets",
		})
	}
}
