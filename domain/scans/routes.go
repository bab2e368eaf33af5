package scans

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the scan job routes
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.POST("/scan", h.CreateScan)
	e.GET("/jobs/:id", h.GetJob)
}
