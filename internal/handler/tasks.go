package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/phdplan/internal/model"
	"github.com/iliyamo/phdplan/internal/service"
)

// PlanHandler serves tasks, insights, strategies, shares and the
// spreadsheet import/export.
type PlanHandler struct {
	Planner *service.Planner
}

func NewPlanHandler(p *service.Planner) *PlanHandler { return &PlanHandler{Planner: p} }

// taskReq is the create body. A missing priority means Média; a missing
// status means A fazer.
type taskReq struct {
	model.TaskFields
	Priority *model.Priority `json:"prioridade"`
}

func (r taskReq) fields() model.TaskFields {
	f := r.TaskFields
	f.Priority = model.PriorityMedium
	if r.Priority != nil {
		f.Priority = *r.Priority
	}
	return f
}

// ListTasks handles GET /v1/tasks.
func (h *PlanHandler) ListTasks(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	p, err := page(c, defaultTaskLimit)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	tasks, err := h.Planner.ListTasks(ctx, a, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// TodayTasks handles GET /v1/tasks/today.
func (h *PlanHandler) TodayTasks(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	tasks, err := h.Planner.TodayTasks(ctx, a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// CreateTask handles POST /v1/tasks. A body with a recurrence rule
// creates the whole series and answers with its size.
func (h *PlanHandler) CreateTask(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	var req taskReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body: "+bindMessage(err))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Planner.CreateTask(ctx, a, req.fields())
	if err != nil {
		return fail(c, err)
	}
	if res.Task != nil {
		return c.JSON(http.StatusCreated, res.Task)
	}
	return c.JSON(http.StatusCreated, res)
}

// UpdateTask handles PUT and PATCH /v1/tasks/:id. Only the keys present
// in the body change.
func (h *PlanHandler) UpdateTask(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	var patch model.TaskPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body: "+bindMessage(err))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Planner.UpdateTask(ctx, a, id, patch)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// DeleteTask handles DELETE /v1/tasks/:id.
func (h *PlanHandler) DeleteTask(c echo.Context) error {
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
	if err := h.Planner.DeleteTask(ctx, a, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DuplicateTask handles POST /v1/tasks/:id/duplicate.
func (h *PlanHandler) DuplicateTask(c echo.Context) error {
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
	t, err := h.Planner.DuplicateTask(ctx, a, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// DedupeTasks handles POST /v1/tasks/dedupe.
func (h *PlanHandler) DedupeTasks(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Planner.DedupeTasks(ctx, a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": n})
}

// bindMessage unwraps echo's bind error to the decoder message.
func bindMessage(err error) string {
	if he, ok := err.(*echo.HTTPError); ok {
		if he.Internal != nil {
			return he.Internal.Error()
		}
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	return err.Error()
}
