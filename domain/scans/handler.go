package scans

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/oversec/bucketscan/pkg/apperror"
)

// Handler handles HTTP requests for scan jobs
type Handler struct {
	svc *Service
}

// NewHandler creates a new scans handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateScan handles POST /scan
func (h *Handler) CreateScan(c echo.Context) error {
	var req CreateScanRequest
	// Invalid JSON is tolerated as an empty body; the bucket check below
	// produces the 400.
	_ = c.Bind(&req)

	if req.Bucket == "" {
		return apperror.ErrBadRequest.WithMessage("bucket is required")
	}

	result, err := h.svc.CreateScan(c.Request().Context(), req.Bucket, req.Prefix)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// GetJob handles GET /jobs/:id
func (h *Handler) GetJob(c echo.Context) error {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid job id")
	}

	realTime := c.QueryParam("real_time") == "true"

	result, err := h.svc.GetJobStatus(c.Request().Context(), jobID, realTime)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
