package repository

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/model"
)

// taskFieldColumns are the writable columns of `atividades`, in the
// order taskValues produces them.
var taskFieldColumns = []string{
	"descricao", "data", "status", "prioridade", "categoria", "descricao_original",
	"o_que", "como", "onde", "cta", "duracao", "kpi_meta", "tipo_dia", "dia_semana",
	"tema_macro", "angulo", "canal_area",
	"recorrencia_tipo", "recorrencia_intervalo", "recorrencia_dia_mes", "recorrencia_dias_semana",
	"recorrencia_inicio", "recorrencia_fim", "serie_id",
}

var taskSelectColumns = append(
	[]string{"id", "COALESCE(user_id, 0) AS user_id"},
	append(append([]string{}, taskFieldColumns...), "created_at", "updated_at")...,
)

// insertChunk caps the rows sent in one multi-row INSERT.
const insertChunk = 500

// TaskRepo persists tasks in the `atividades` table.
type TaskRepo struct{ db sqlx.ExtContext }

func NewTaskRepo(db sqlx.ExtContext) *TaskRepo { return &TaskRepo{db: db} }

// WithTx returns a copy of the repository bound to tx.
func (r *TaskRepo) WithTx(tx *sqlx.Tx) *TaskRepo { return &TaskRepo{db: tx} }

func taskValues(owner uint64, f model.TaskFields) []any {
	return []any{
		owner,
		f.Description, f.Date, f.Status, f.Priority, f.Category, f.OriginalDescription,
		f.What, f.How, f.Where, f.CTA, f.Duration, f.KPI, f.DayType, f.Weekday,
		f.MacroTheme, f.Angle, f.Channel,
		f.Recurrence.Type, f.Recurrence.Interval, f.Recurrence.DayOfMonth, f.Recurrence.Weekdays,
		dateArg(f.Recurrence.Start), dateArg(f.Recurrence.End), f.Recurrence.SeriesID,
	}
}

func (r *TaskRepo) selectTasks() sq.SelectBuilder {
	return sq.Select(taskSelectColumns...).From("atividades")
}

// List returns the tasks in scope, newest first.
func (r *TaskRepo) List(ctx context.Context, scope access.Scope, page Page) ([]model.Task, error) {
	q := page.apply(scoped(r.selectTasks(), scope, "user_id").OrderBy("id DESC"))
	return r.query(ctx, q)
}

// ListOpenOn returns tasks in scope dated day whose status is not Feito.
func (r *TaskRepo) ListOpenOn(ctx context.Context, scope access.Scope, day model.Date) ([]model.Task, error) {
	q := scoped(r.selectTasks(), scope, "user_id").
		Where(sq.Eq{"data": day}).
		Where(sq.NotEq{"status": model.StatusDone}).
		OrderBy("id ASC")
	return r.query(ctx, q)
}

func (r *TaskRepo) query(ctx context.Context, q sq.SelectBuilder) ([]model.Task, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	tasks := []model.Task{}
	if err := sqlx.SelectContext(ctx, r.db, &tasks, query, args...); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Get fetches one task by id.
func (r *TaskRepo) Get(ctx context.Context, id uint64) (model.Task, error) {
	query, args, err := r.selectTasks().Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return model.Task{}, err
	}
	var t model.Task
	if err := sqlx.GetContext(ctx, r.db, &t, query, args...); err != nil {
		return model.Task{}, notFound(err)
	}
	return t, nil
}

// Create inserts one task and returns its id.
func (r *TaskRepo) Create(ctx context.Context, owner uint64, f model.TaskFields) (uint64, error) {
	query, args, err := sq.Insert("atividades").
		Columns(append([]string{"user_id"}, taskFieldColumns...)...).
		Values(taskValues(owner, f)...).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateBatch inserts every task for owner using multi-row inserts and
// returns the number of rows written. Run it inside a transaction when
// the batch must land as a whole.
func (r *TaskRepo) CreateBatch(ctx context.Context, owner uint64, fields []model.TaskFields) (int64, error) {
	var total int64
	for start := 0; start < len(fields); start += insertChunk {
		end := min(start+insertChunk, len(fields))
		ins := sq.Insert("atividades").Columns(append([]string{"user_id"}, taskFieldColumns...)...)
		for _, f := range fields[start:end] {
			ins = ins.Values(taskValues(owner, f)...)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return total, err
		}
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("insert tasks %d-%d: %w", start, end, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Update writes the given column values to one task. An empty change
// set is a no-op.
func (r *TaskRepo) Update(ctx context.Context, id uint64, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	query, args, err := sq.Update("atividades").SetMap(changes).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// Delete removes one task. It returns ErrNotFound when no row matched.
func (r *TaskRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM atividades WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByOwner removes every task owned by owner.
func (r *TaskRepo) DeleteByOwner(ctx context.Context, owner uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM atividades WHERE user_id = ?", owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteDuplicates removes tasks that repeat an earlier task's
// description, date, category, priority and owner, keeping the lowest
// id of each group. Only tasks owned by the given owners are touched;
// a nil slice means every owner.
func (r *TaskRepo) DeleteDuplicates(ctx context.Context, owners []uint64) (int64, error) {
	var b strings.Builder
	b.WriteString(`DELETE t1 FROM atividades t1
		JOIN atividades t2
		  ON t1.descricao = t2.descricao
		 AND t1.data = t2.data
		 AND t1.categoria = t2.categoria
		 AND t1.prioridade = t2.prioridade
		 AND t1.user_id <=> t2.user_id
		 AND t1.id > t2.id`)
	var args []any
	if owners != nil {
		if len(owners) == 0 {
			return 0, nil
		}
		b.WriteString(" WHERE t1.user_id IN (?)")
		args = append(args, owners)
	}
	query, args, err := sqlx.In(b.String(), args...)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
