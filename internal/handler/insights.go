package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/phdplan/internal/model"
)

// insightReq is the create body. A missing priority means Baixa.
type insightReq struct {
	model.Insight
	Priority *model.Priority `json:"prioridade"`
}

func (h *PlanHandler) ListInsights(c echo.Context) error {
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
	out, err := h.Planner.ListInsights(ctx, a, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PlanHandler) CreateInsight(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	var req insightReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body: "+bindMessage(err))
	}
	in := req.Insight
	in.Priority = model.PriorityLow
	if req.Priority != nil {
		in.Priority = *req.Priority
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Planner.CreateInsight(ctx, a, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *PlanHandler) UpdateInsight(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	var patch model.InsightPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body: "+bindMessage(err))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Planner.UpdateInsight(ctx, a, id, patch)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PlanHandler) DeleteInsight(c echo.Context) error {
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
	if err := h.Planner.DeleteInsight(ctx, a, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ConvertInsight handles POST /v1/insights/:id/convert and answers with
// the created task.
func (h *PlanHandler) ConvertInsight(c echo.Context) error {
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
	t, err := h.Planner.ConvertInsight(ctx, a, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}
