package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/importer"
	"github.com/iliyamo/phdplan/internal/model"
	"github.com/iliyamo/phdplan/internal/recurrence"
	"github.com/iliyamo/phdplan/internal/repository"
)

// Planner owns the task, insight, strategy and share operations. Every
// operation resolves the caller's grants, applies the access policy and
// then talks to the repositories inside a single unit of work.
type Planner struct {
	txm        *repository.TxManager
	tasks      *repository.TaskRepo
	insights   *repository.InsightRepo
	strategies *repository.StrategyRepo
	shares     *repository.ShareRepo
	users      *repository.UserRepo
	events     Publisher
	mapping    *importer.Mapping

	now       func() time.Time
	newSeries func() string
}

// NewPlanner wires a Planner over db. A nil publisher drops events and a
// nil mapping uses the built-in spreadsheet layout.
func NewPlanner(db *sqlx.DB, events Publisher, mapping *importer.Mapping) *Planner {
	if events == nil {
		events = NopPublisher{}
	}
	if mapping == nil {
		mapping = importer.DefaultMapping()
	}
	return &Planner{
		txm:        repository.NewTxManager(db),
		tasks:      repository.NewTaskRepo(db),
		insights:   repository.NewInsightRepo(db),
		strategies: repository.NewStrategyRepo(db),
		shares:     repository.NewShareRepo(db),
		users:      repository.NewUserRepo(db),
		events:     events,
		mapping:    mapping,
		now:        time.Now,
		newSeries:  func() string { return uuid.NewString() },
	}
}

// Mapping returns the spreadsheet layout used for import and export.
func (s *Planner) Mapping() *importer.Mapping { return s.mapping }

func (s *Planner) today() model.Date { return model.DateOf(s.now()) }

// grants loads the shares naming the actor. Admins need none.
func (s *Planner) grants(ctx context.Context, actor *access.Actor) (access.Grants, error) {
	if actor.IsAdmin() {
		return access.Grants{}, nil
	}
	if actor.Email == "" {
		u, err := s.users.GetByID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		actor.Email = u.Email
	}
	shares, err := s.shares.ListForEmail(ctx, actor.Email)
	if err != nil {
		return nil, err
	}
	return access.NewGrants(shares), nil
}

func (s *Planner) scope(ctx context.Context, actor access.Actor) (access.Scope, error) {
	g, err := s.grants(ctx, &actor)
	if err != nil {
		return access.Scope{}, err
	}
	return access.ListScope(actor, g), nil
}

// ListTasks returns the tasks visible to actor, newest first.
func (s *Planner) ListTasks(ctx context.Context, actor access.Actor, page repository.Page) ([]model.Task, error) {
	sc, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.tasks.List(ctx, sc, page)
}

// TodayTasks returns visible tasks dated today that are not done, most
// urgent first and then by id.
func (s *Planner) TodayTasks(ctx context.Context, actor access.Actor) ([]model.Task, error) {
	sc, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListOpenOn(ctx, sc, s.today())
	if err != nil {
		return nil, err
	}
	SortByUrgency(tasks)
	return tasks, nil
}

// SortByUrgency orders tasks Alta, Média, Baixa and then by id.
func SortByUrgency(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if a, b := tasks[i].Priority.Rank(), tasks[j].Priority.Rank(); a != b {
			return a < b
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// CreateResult is the outcome of CreateTask. A recurring create reports
// only the number of generated tasks.
type CreateResult struct {
	Task     *model.Task `json:"task,omitempty"`
	Count    int         `json:"count"`
	SeriesID string      `json:"serie_id,omitempty"`
}

// CreateTask stores a task owned by actor. When the recurrence rule has a
// type and both range dates, one task is stored per matching date and the
// whole batch is written in one transaction.
func (s *Planner) CreateTask(ctx context.Context, actor access.Actor, f model.TaskFields) (CreateResult, error) {
	f.Description = strings.TrimSpace(f.Description)
	if f.Description == "" {
		f.Description = model.DescriptionFrom(f.What, f.OriginalDescription)
	}

	if f.Recurrence.IsSpecified() {
		rule := f.Recurrence
		rule.SeriesID = s.newSeries()
		batch, err := recurrence.Expand(rule, f)
		if err != nil {
			return CreateResult{}, err
		}
		err = s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
			_, err := s.tasks.WithTx(tx).CreateBatch(ctx, actor.ID, batch)
			return err
		})
		if err != nil {
			return CreateResult{}, txFail("create recurring tasks", err)
		}
		return CreateResult{Count: len(batch), SeriesID: rule.SeriesID}, nil
	}

	if f.Date.IsZero() {
		return CreateResult{}, invalid("data", "date is required")
	}
	var task model.Task
	err := s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.tasks.WithTx(tx)
		id, err := repo.Create(ctx, actor.ID, f)
		if err != nil {
			return err
		}
		task, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return CreateResult{}, txFail("create task", err)
	}
	return CreateResult{Task: &task, Count: 1}, nil
}

func validateTaskPatch(p model.TaskPatch) error {
	if p.Date.Set && (p.Date.Null || p.Date.Value.IsZero()) {
		return invalid("data", "date cannot be cleared")
	}
	if p.Status.Set && p.Status.Null {
		return invalid("status", "status cannot be null")
	}
	if p.Priority.Set && p.Priority.Null {
		return invalid("prioridade", "priority cannot be null")
	}
	return nil
}

// UpdateTask applies the fields present in patch. The caller must own the
// task, be an admin, or hold an edit share from the owner.
func (s *Planner) UpdateTask(ctx context.Context, actor access.Actor, id uint64, patch model.TaskPatch) (model.Task, error) {
	if err := validateTaskPatch(patch); err != nil {
		return model.Task{}, err
	}
	g, err := s.grants(ctx, &actor)
	if err != nil {
		return model.Task{}, err
	}
	var out model.Task
	err = s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.tasks.WithTx(tx)
		cur, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !access.Decide(actor, cur.OwnerID, g).Editable {
			return repository.ErrForbidden
		}
		if err := repo.Update(ctx, id, patch.Changes()); err != nil {
			return err
		}
		out, err = repo.Get(ctx, id)
		return err
	})
	return out, txFail("update task", err)
}

// DeleteTask removes a task. Only the owner or an admin may delete.
func (s *Planner) DeleteTask(ctx context.Context, actor access.Actor, id uint64) error {
	g, err := s.grants(ctx, &actor)
	if err != nil {
		return err
	}
	err = s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.tasks.WithTx(tx)
		cur, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !access.Decide(actor, cur.OwnerID, g).Deletable {
			return repository.ErrForbidden
		}
		return repo.Delete(ctx, id)
	})
	return txFail("delete task", err)
}

// DuplicateTask copies a visible task into a new task owned by actor with
// status reset to A fazer.
func (s *Planner) DuplicateTask(ctx context.Context, actor access.Actor, id uint64) (model.Task, error) {
	g, err := s.grants(ctx, &actor)
	if err != nil {
		return model.Task{}, err
	}
	var out model.Task
	err = s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.tasks.WithTx(tx)
		src, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !access.Decide(actor, src.OwnerID, g).Visible {
			return repository.ErrForbidden
		}
		fields := src.TaskFields
		fields.Status = model.StatusTodo
		newID, err := repo.Create(ctx, actor.ID, fields)
		if err != nil {
			return err
		}
		out, err = repo.Get(ctx, newID)
		return err
	})
	return out, txFail("duplicate task", err)
}

// DedupeTasks deletes repeated tasks, keeping the oldest of each group.
// Admins clean every owner; other users only their own tasks.
func (s *Planner) DedupeTasks(ctx context.Context, actor access.Actor) (int64, error) {
	var owners []uint64
	if !actor.IsAdmin() {
		owners = []uint64{actor.ID}
	}
	var n int64
	err := s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		n, err = s.tasks.WithTx(tx).DeleteDuplicates(ctx, owners)
		return err
	})
	return n, txFail("remove duplicate tasks", err)
}

// ListStrategies returns the weekly themes visible to actor, newest first.
func (s *Planner) ListStrategies(ctx context.Context, actor access.Actor, page repository.Page) ([]model.Strategy, error) {
	sc, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.strategies.List(ctx, sc, page)
}

// ExportTasks returns the tabular snapshot of every task visible to
// actor, ordered by date and then id.
func (s *Planner) ExportTasks(ctx context.Context, actor access.Actor) ([]importer.ExportRow, error) {
	sc, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.List(ctx, sc, repository.Page{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].Date.Equal(tasks[j].Date.Time) {
			return tasks[i].Date.Before(tasks[j].Date.Time)
		}
		return tasks[i].ID < tasks[j].ID
	})
	rows := make([]importer.ExportRow, len(tasks))
	for i, t := range tasks {
		rows[i] = importer.ExportRow{
			ID:          t.ID,
			Description: t.Description,
			Date:        t.Date,
			Status:      t.Status,
			Priority:    t.Priority,
			Category:    t.Category,
		}
	}
	return rows, nil
}

// ExportWorkbook renders ExportTasks as an .xlsx file.
func (s *Planner) ExportWorkbook(ctx context.Context, actor access.Actor) ([]byte, error) {
	rows, err := s.ExportTasks(ctx, actor)
	if err != nil {
		return nil, err
	}
	return importer.WriteTasks(s.mapping.Sheets.Tasks, rows)
}
