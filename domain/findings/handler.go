package findings

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/oversec/bucketscan/pkg/apperror"
)

// Handler handles HTTP requests for findings
type Handler struct {
	svc *Service
}

// NewHandler creates a new findings handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetResults handles GET /results
func (h *Handler) GetResults(c echo.Context) error {
	var q ResultsQuery
	if err := c.Bind(&q); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid query parameters")
	}

	result, err := h.svc.ListResults(c.Request().Context(), &q)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
