package service

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/model"
	"github.com/iliyamo/phdplan/internal/repository"
)

// ListInsights returns the insights visible to actor, newest first.
func (s *Planner) ListInsights(ctx context.Context, actor access.Actor, page repository.Page) ([]model.Insight, error) {
	sc, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.insights.List(ctx, sc, page)
}

// CreateInsight stores a new idea owned by actor. Its status always
// starts at Ideia.
func (s *Planner) CreateInsight(ctx context.Context, actor access.Actor, in model.Insight) (model.Insight, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		in.Description = strings.TrimSpace(in.What)
	}
	if in.Description == "" {
		return model.Insight{}, invalid("descricao", "description is required")
	}
	in.Status = model.InsightIdea
	var out model.Insight
	err := s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.insights.WithTx(tx)
		id, err := repo.Create(ctx, actor.ID, in)
		if err != nil {
			return err
		}
		out, err = repo.Get(ctx, id)
		return err
	})
	return out, txFail("create insight", err)
}

// UpdateInsight applies the fields present in patch. Status only moves
// through ConvertInsight, so a patch may not change it.
func (s *Planner) UpdateInsight(ctx context.Context, actor access.Actor, id uint64, patch model.InsightPatch) (model.Insight, error) {
	if patch.Priority.Set && patch.Priority.Null {
		return model.Insight{}, invalid("prioridade", "priority cannot be null")
	}
	if patch.Status.Set && patch.Status.Null {
		return model.Insight{}, invalid("status", "status cannot be null")
	}
	g, err := s.grants(ctx, &actor)
	if err != nil {
		return model.Insight{}, err
	}
	var out model.Insight
	err = s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.insights.WithTx(tx)
		cur, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !access.Decide(actor, cur.OwnerID, g).Editable {
			return repository.ErrForbidden
		}
		if patch.Status.Set && patch.Status.Value != cur.Status {
			if cur.Status == model.InsightConverted {
				return invalid("status", "a converted insight cannot go back to %s", patch.Status.Value)
			}
			return invalid("status", "use the convert operation to turn an insight into a task")
		}
		if err := repo.Update(ctx, id, patch.Changes()); err != nil {
			return err
		}
		out, err = repo.Get(ctx, id)
		return err
	})
	return out, txFail("update insight", err)
}

// DeleteInsight removes an insight. Only the owner or an admin may delete.
func (s *Planner) DeleteInsight(ctx context.Context, actor access.Actor, id uint64) error {
	g, err := s.grants(ctx, &actor)
	if err != nil {
		return err
	}
	err = s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.insights.WithTx(tx)
		cur, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !access.Decide(actor, cur.OwnerID, g).Deletable {
			return repository.ErrForbidden
		}
		return repo.Delete(ctx, id)
	})
	return txFail("delete insight", err)
}

// TaskFromInsight builds the task a conversion creates: the insight's
// text and details, its planned date or today, status A fazer and
// priority Média.
func TaskFromInsight(in model.Insight, today model.Date) model.TaskFields {
	date := today
	if in.PlannedDate != nil && !in.PlannedDate.IsZero() {
		date = *in.PlannedDate
	}
	return model.TaskFields{
		Description:         in.Description,
		Date:                date,
		Status:              model.StatusTodo,
		Priority:            model.PriorityMedium,
		Category:            in.Category,
		OriginalDescription: in.Description,
		Details:             in.Details,
	}
}

// ConvertInsight turns an insight into a task owned by the insight's
// owner and marks the insight Convertido. Both writes commit together or
// not at all. Converting twice yields ErrConflict.
func (s *Planner) ConvertInsight(ctx context.Context, actor access.Actor, id uint64) (model.Task, error) {
	g, err := s.grants(ctx, &actor)
	if err != nil {
		return model.Task{}, err
	}
	var out model.Task
	err = s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		insights := s.insights.WithTx(tx)
		tasks := s.tasks.WithTx(tx)

		in, err := insights.Get(ctx, id)
		if err != nil {
			return err
		}
		if !access.Decide(actor, in.OwnerID, g).Editable {
			return repository.ErrForbidden
		}
		if in.Status == model.InsightConverted {
			return repository.ErrConflict
		}
		owner := in.OwnerID
		if owner == 0 {
			owner = actor.ID
		}
		taskID, err := tasks.Create(ctx, owner, TaskFromInsight(in, s.today()))
		if err != nil {
			return err
		}
		if err := insights.MarkConverted(ctx, id); err != nil {
			return err
		}
		out, err = tasks.Get(ctx, taskID)
		return err
	})
	return out, txFail("convert insight", err)
}
