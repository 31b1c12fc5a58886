package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/phdplan/internal/model"
)

type shareReq struct {
	Email      string `json:"shared_with_email"`
	Permission string `json:"permission"` // read (default) | edit
}

func (h *PlanHandler) SharePlan(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	var req shareReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	perm := model.PermissionRead
	if req.Permission != "" {
		if perm, err = model.ParsePermission(req.Permission); err != nil {
			return badRequest(c, err.Error())
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	share, err := h.Planner.SharePlan(ctx, a, req.Email, perm)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, share)
}

func (h *PlanHandler) ListShares(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Planner.ListShares(ctx, a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PlanHandler) ListStrategies(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	p, err := page(c, defaultLimit)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Planner.ListStrategies(ctx, a, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
