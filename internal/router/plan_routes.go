package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/phdplan/internal/handler"
	"github.com/iliyamo/phdplan/internal/middleware"
	"github.com/iliyamo/phdplan/internal/model"
)

// RegisterPlan registers the planner endpoints under /v1. Every route
// requires a valid JWT; record-level access is decided by the service.
// cache wraps reads and is invalidated by successful writes.
func RegisterPlan(e *echo.Echo, h *handler.PlanHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
		cache,
	)

	// ---- Tasks ----
	g.GET("/tasks", h.ListTasks)
	g.POST("/tasks", h.CreateTask)
	g.GET("/tasks/today", h.TodayTasks)
	g.GET("/tasks/export", h.ExportExcel)
	g.POST("/tasks/dedupe", h.DedupeTasks)
	g.PUT("/tasks/:id", h.UpdateTask)
	g.PATCH("/tasks/:id", h.UpdateTask)
	g.DELETE("/tasks/:id", h.DeleteTask)
	g.POST("/tasks/:id/duplicate", h.DuplicateTask)

	// ---- Strategies ----
	g.GET("/strategies", h.ListStrategies)

	// ---- Insights ----
	g.GET("/insights", h.ListInsights)
	g.POST("/insights", h.CreateInsight)
	g.PUT("/insights/:id", h.UpdateInsight)
	g.PATCH("/insights/:id", h.UpdateInsight)
	g.DELETE("/insights/:id", h.DeleteInsight)
	g.POST("/insights/:id/convert", h.ConvertInsight)

	// ---- Shares ----
	g.POST("/shares", h.SharePlan)
	g.GET("/shares", h.ListShares)

	// ---- Import ----
	g.POST("/import/excel", h.ImportExcel)
}
