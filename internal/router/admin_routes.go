package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/phdplan/internal/handler"
	"github.com/iliyamo/phdplan/internal/middleware"
	"github.com/iliyamo/phdplan/internal/model"
)

// RegisterAdmin registers user management under /v1/users. All routes
// require the admin role.
func RegisterAdmin(e *echo.Echo, h *handler.UserHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/users",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
		cache,
	)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
