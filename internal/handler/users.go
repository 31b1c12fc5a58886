package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/phdplan/internal/model"
	"github.com/iliyamo/phdplan/internal/service"
)

// UserHandler serves the admin user management endpoints.
type UserHandler struct {
	Accounts *service.Accounts
}

func NewUserHandler(a *service.Accounts) *UserHandler { return &UserHandler{Accounts: a} }

func (h *UserHandler) List(c echo.Context) error {
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
	users, err := h.Accounts.List(ctx, a, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Accounts.Create(ctx, a, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *UserHandler) Update(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	var patch model.UserPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body: "+bindMessage(err))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Accounts.Update(ctx, a, id, patch)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Accounts.Delete(ctx, a, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
