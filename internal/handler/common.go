package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/middleware"
	"github.com/iliyamo/phdplan/internal/recurrence"
	"github.com/iliyamo/phdplan/internal/repository"
	"github.com/iliyamo/phdplan/internal/service"
	"github.com/iliyamo/phdplan/internal/utils"
)

// requestTimeout bounds the database work of one request.
const requestTimeout = 10 * time.Second

// Listing defaults and caps for ?offset=&limit=.
const (
	defaultTaskLimit = 1000
	defaultLimit     = 100
	maxLimit         = 5000
)

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// fail writes the JSON error response for err.
func fail(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, recurrence.ErrEmptyRecurrence),
		errors.Is(err, recurrence.ErrInvalidRule):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, utils.ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// actor returns the authenticated caller.
func actor(c echo.Context) (access.Actor, error) {
	a, ok := middleware.Actor(c)
	if !ok {
		return access.Actor{}, utils.ErrInvalidToken
	}
	return a, nil
}

// paramID parses the :id path parameter.
func paramID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.ValidationError{Field: "id", Message: "invalid id"}
	}
	return id, nil
}

// page reads ?offset= and ?limit=, using def when limit is absent.
func page(c echo.Context, def uint64) (repository.Page, error) {
	p := repository.Page{Limit: def}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return p, &service.ValidationError{Field: "offset", Message: "must be a non-negative integer"}
		}
		p.Offset = n
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			return p, &service.ValidationError{Field: "limit", Message: "must be a positive integer"}
		}
		p.Limit = min(n, maxLimit)
	}
	return p, nil
}
