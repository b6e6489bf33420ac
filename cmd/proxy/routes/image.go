package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/xform-media/xform/cmd/proxy/container"
	"github.com/xform-media/xform/cmd/proxy/handlers"
)

// RegisterImageRoutes registers the catch-all image transformation route
func RegisterImageRoutes(e *echo.Echo, c *container.Container) {
	handler := handlers.NewImageHandler(c.Components, c.FetchService, c.Pipeline)

	// Any path is a potential object key
	e.GET("/*", handler.Transform)
}
