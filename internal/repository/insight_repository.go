package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/model"
)

var insightColumns = []string{
	"id", "COALESCE(user_id, 0) AS user_id", "descricao", "data_prevista", "status", "categoria", "prioridade",
	"o_que", "como", "onde", "cta", "duracao", "kpi_meta", "tipo_dia", "dia_semana",
	"tema_macro", "angulo", "canal_area", "created_at", "updated_at",
}

// InsightRepo persists insights.
type InsightRepo struct{ db sqlx.ExtContext }

func NewInsightRepo(db sqlx.ExtContext) *InsightRepo { return &InsightRepo{db: db} }

func (r *InsightRepo) WithTx(tx *sqlx.Tx) *InsightRepo { return &InsightRepo{db: tx} }

// List returns the insights in scope, newest first.
func (r *InsightRepo) List(ctx context.Context, scope access.Scope, page Page) ([]model.Insight, error) {
	q := sq.Select(insightColumns...).From("insights")
	query, args, err := page.apply(scoped(q, scope, "user_id").OrderBy("id DESC")).ToSql()
	if err != nil {
		return nil, err
	}
	out := []model.Insight{}
	if err := sqlx.SelectContext(ctx, r.db, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *InsightRepo) Get(ctx context.Context, id uint64) (model.Insight, error) {
	query, args, err := sq.Select(insightColumns...).From("insights").Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return model.Insight{}, err
	}
	var in model.Insight
	if err := sqlx.GetContext(ctx, r.db, &in, query, args...); err != nil {
		return model.Insight{}, notFound(err)
	}
	return in, nil
}

// Create inserts the insight for owner and returns its id.
func (r *InsightRepo) Create(ctx context.Context, owner uint64, in model.Insight) (uint64, error) {
	query, args, err := sq.Insert("insights").
		Columns("user_id", "descricao", "data_prevista", "status", "categoria", "prioridade",
			"o_que", "como", "onde", "cta", "duracao", "kpi_meta", "tipo_dia", "dia_semana",
			"tema_macro", "angulo", "canal_area").
		Values(owner, in.Description, dateArg(in.PlannedDate), in.Status, in.Category, in.Priority,
			in.What, in.How, in.Where, in.CTA, in.Duration, in.KPI, in.DayType, in.Weekday,
			in.MacroTheme, in.Angle, in.Channel).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

func (r *InsightRepo) Update(ctx context.Context, id uint64, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	query, args, err := sq.Update("insights").SetMap(changes).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// MarkConverted moves an insight to Convertido. It returns ErrConflict
// when the insight is missing or already converted, so a concurrent
// conversion cannot succeed twice.
func (r *InsightRepo) MarkConverted(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE insights SET status = ? WHERE id = ? AND status <> ?",
		model.InsightConverted, id, model.InsightConverted)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (r *InsightRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM insights WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *InsightRepo) DeleteByOwner(ctx context.Context, owner uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM insights WHERE user_id = ?", owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
