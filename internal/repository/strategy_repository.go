package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/model"
)

var strategyColumns = []string{
	"id", "COALESCE(user_id, 0) AS user_id", "tema", "semana_inicio", "semana_fim", "descricao_detalhada", "created_at",
}

// StrategyRepo persists weekly themes in the `estrategia` table.
type StrategyRepo struct{ db sqlx.ExtContext }

func NewStrategyRepo(db sqlx.ExtContext) *StrategyRepo { return &StrategyRepo{db: db} }

func (r *StrategyRepo) WithTx(tx *sqlx.Tx) *StrategyRepo { return &StrategyRepo{db: tx} }

// List returns the strategies in scope, newest first.
func (r *StrategyRepo) List(ctx context.Context, scope access.Scope, page Page) ([]model.Strategy, error) {
	q := sq.Select(strategyColumns...).From("estrategia")
	query, args, err := page.apply(scoped(q, scope, "user_id").OrderBy("id DESC")).ToSql()
	if err != nil {
		return nil, err
	}
	out := []model.Strategy{}
	if err := sqlx.SelectContext(ctx, r.db, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBatch inserts strategies for owner. The week end is always
// derived from the week start.
func (r *StrategyRepo) CreateBatch(ctx context.Context, owner uint64, items []model.Strategy) (int64, error) {
	var total int64
	for start := 0; start < len(items); start += insertChunk {
		end := min(start+insertChunk, len(items))
		ins := sq.Insert("estrategia").Columns("user_id", "tema", "semana_inicio", "semana_fim", "descricao_detalhada")
		for _, s := range items[start:end] {
			ins = ins.Values(owner, s.Theme, s.WeekStart, s.WeekStart.AddDays(model.WeekLength), s.Description)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return total, err
		}
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (r *StrategyRepo) DeleteByOwner(ctx context.Context, owner uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM estrategia WHERE user_id = ?", owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
