package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/phdplan/internal/model"
)

const shareColumns = "id, owner_id, shared_with_email, permission, created_at"

// ShareRepo persists plan shares. A share is unique per owner and email.
type ShareRepo struct{ db sqlx.ExtContext }

func NewShareRepo(db sqlx.ExtContext) *ShareRepo { return &ShareRepo{db: db} }

func (r *ShareRepo) WithTx(tx *sqlx.Tx) *ShareRepo { return &ShareRepo{db: tx} }

// Upsert grants email access to owner's plan, replacing the permission
// of an existing grant in place.
func (r *ShareRepo) Upsert(ctx context.Context, owner uint64, email string, perm model.Permission) (model.PlanShare, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	query, args, err := sq.Insert("plan_shares").
		Columns("owner_id", "shared_with_email", "permission").
		Values(owner, email, perm).
		Suffix("ON DUPLICATE KEY UPDATE permission = VALUES(permission)").
		ToSql()
	if err != nil {
		return model.PlanShare{}, err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return model.PlanShare{}, err
	}
	var s model.PlanShare
	err = sqlx.GetContext(ctx, r.db, &s,
		"SELECT "+shareColumns+" FROM plan_shares WHERE owner_id = ? AND shared_with_email = ? LIMIT 1",
		owner, email)
	return s, notFound(err)
}

// ListByOwner returns the grants owner made.
func (r *ShareRepo) ListByOwner(ctx context.Context, owner uint64) ([]model.PlanShare, error) {
	out := []model.PlanShare{}
	err := sqlx.SelectContext(ctx, r.db, &out,
		"SELECT "+shareColumns+" FROM plan_shares WHERE owner_id = ? ORDER BY id DESC", owner)
	return out, err
}

// ListForEmail returns the grants naming email.
func (r *ShareRepo) ListForEmail(ctx context.Context, email string) ([]model.PlanShare, error) {
	out := []model.PlanShare{}
	err := sqlx.SelectContext(ctx, r.db, &out,
		"SELECT "+shareColumns+" FROM plan_shares WHERE shared_with_email = ? ORDER BY id DESC",
		strings.ToLower(strings.TrimSpace(email)))
	return out, err
}

// DeleteForUser removes the grants a user made and the grants naming
// the user's email.
func (r *ShareRepo) DeleteForUser(ctx context.Context, owner uint64, email string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM plan_shares WHERE owner_id = ? OR shared_with_email = ?",
		owner, strings.ToLower(strings.TrimSpace(email)))
	return err
}
