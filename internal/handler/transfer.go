package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	exportFilename = "phdplan_export.xlsx"
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	importTimeout  = 2 * time.Minute
)

// ImportExcel handles POST /v1/import/excel with the workbook in the
// multipart field "file". The caller's tasks and strategies are replaced.
func (h *PlanHandler) ImportExcel(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "multipart field \"file\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(c.Request().Context(), importTimeout)
	defer cancel()
	report, err := h.Planner.ImportWorkbook(ctx, a, f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// ExportExcel handles GET /v1/tasks/export.
func (h *PlanHandler) ExportExcel(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	data, err := h.Planner.ExportWorkbook(ctx, a)
	if err != nil {
		return fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+exportFilename+`"`)
	return c.Blob(http.StatusOK, xlsxMIME, data)
}
