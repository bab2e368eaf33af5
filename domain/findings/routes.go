package findings

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the findings routes
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/results", h.GetResults)
}
