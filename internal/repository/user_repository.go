package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/phdplan/internal/model"
)

const userColumns = "id, email, password_hash, role, created_at, updated_at"

// UserRepo persists accounts in the `users` table.
type UserRepo struct{ db sqlx.ExtContext }

func NewUserRepo(db sqlx.ExtContext) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) WithTx(tx *sqlx.Tx) *UserRepo { return &UserRepo{db: tx} }

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create inserts a user and returns its ID. A taken email yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash string, role model.Role) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)",
		NormalizeEmail(email), passwordHash, role)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, r.db, &u,
		"SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", NormalizeEmail(email))
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, r.db, &u,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
	return u, notFound(err)
}

// List returns users in id order.
func (r *UserRepo) List(ctx context.Context, page Page) ([]model.User, error) {
	query, args, err := page.apply(sq.Select(strings.Split(userColumns, ", ")...).From("users").OrderBy("id ASC")).ToSql()
	if err != nil {
		return nil, err
	}
	out := []model.User{}
	if err := sqlx.SelectContext(ctx, r.db, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes the given columns. A taken email yields ErrConflict.
func (r *UserRepo) Update(ctx context.Context, id uint64, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	query, args, err := sq.Update("users").SetMap(changes).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// SetRoleByEmail changes the role of the user registered under email.
func (r *UserRepo) SetRoleByEmail(ctx context.Context, email string, role model.Role) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET role = ? WHERE email = ?", role, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// the row may exist with the role already set
		if _, err := r.GetByEmail(ctx, email); err != nil {
			return err
		}
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
