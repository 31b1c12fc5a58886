package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/model"
)

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// Actor returns the authenticated caller stored by JWTAuth. The email is
// left empty; services load it when they need it.
func Actor(c echo.Context) (access.Actor, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	if !ok || id == 0 {
		return access.Actor{}, false
	}
	roleText, _ := c.Get(ctxRole).(string)
	role, _ := model.ParseRole(roleText)
	return access.Actor{ID: id, Role: role}, true
}

// userKey identifies the caller in cache and rate limit keys.
func userKey(c echo.Context) string {
	if id, ok := c.Get(ctxUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
