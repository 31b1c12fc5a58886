package service

import (
	"context"
	"errors"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/model"
	"github.com/iliyamo/phdplan/internal/repository"
	"github.com/iliyamo/phdplan/internal/utils"
)

// Accounts manages users on behalf of admins and the CLI.
type Accounts struct {
	txm        *repository.TxManager
	users      *repository.UserRepo
	tokens     *repository.TokenRepo
	tasks      *repository.TaskRepo
	insights   *repository.InsightRepo
	strategies *repository.StrategyRepo
	shares     *repository.ShareRepo
	bcryptCost int
}

func NewAccounts(db *sqlx.DB, bcryptCost int) *Accounts {
	return &Accounts{
		txm:        repository.NewTxManager(db),
		users:      repository.NewUserRepo(db),
		tokens:     repository.NewTokenRepo(db),
		tasks:      repository.NewTaskRepo(db),
		insights:   repository.NewInsightRepo(db),
		strategies: repository.NewStrategyRepo(db),
		shares:     repository.NewShareRepo(db),
		bcryptCost: bcryptCost,
	}
}

func (a *Accounts) hash(password string) (string, error) {
	h, err := utils.HashPassword(password, a.bcryptCost)
	if errors.Is(err, utils.ErrWeakPassword) {
		return "", invalid("password", "%v", err)
	}
	return h, err
}

// Register creates a user with the user role.
func (a *Accounts) Register(ctx context.Context, email, password string) (model.User, error) {
	return a.create(ctx, email, password, model.RoleUser)
}

func (a *Accounts) create(ctx context.Context, email, password string, role model.Role) (model.User, error) {
	addr, err := ValidateEmail("email", email)
	if err != nil {
		return model.User{}, err
	}
	h, err := a.hash(password)
	if err != nil {
		return model.User{}, err
	}
	id, err := a.users.Create(ctx, addr, h, role)
	if err != nil {
		return model.User{}, err
	}
	return a.users.GetByID(ctx, id)
}

// Authenticate checks an email/password pair.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Get returns one user.
func (a *Accounts) Get(ctx context.Context, id uint64) (model.User, error) {
	return a.users.GetByID(ctx, id)
}

func requireAdmin(actor access.Actor) error {
	if !actor.IsAdmin() {
		return repository.ErrForbidden
	}
	return nil
}

// List returns every user. Admin only.
func (a *Accounts) List(ctx context.Context, actor access.Actor, page repository.Page) ([]model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return a.users.List(ctx, page)
}

// Create adds a user with the user role. Admin only.
func (a *Accounts) Create(ctx context.Context, actor access.Actor, email, password string) (model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return model.User{}, err
	}
	return a.create(ctx, email, password, model.RoleUser)
}

// Update changes the fields present in patch. Admin only.
func (a *Accounts) Update(ctx context.Context, actor access.Actor, id uint64, patch model.UserPatch) (model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return model.User{}, err
	}
	changes := map[string]any{}
	if patch.Email.Set {
		addr, err := ValidateEmail("email", patch.Email.Value)
		if err != nil {
			return model.User{}, err
		}
		changes["email"] = addr
	}
	if patch.Password.Set {
		h, err := a.hash(patch.Password.Value)
		if err != nil {
			return model.User{}, err
		}
		changes["password_hash"] = h
	}
	if patch.Role.Set {
		if patch.Role.Null {
			return model.User{}, invalid("role", "role cannot be null")
		}
		if id == actor.ID && patch.Role.Value != model.RoleAdmin {
			return model.User{}, invalid("role", "admins cannot demote themselves")
		}
		changes["role"] = patch.Role.Value
	}
	if _, err := a.users.GetByID(ctx, id); err != nil {
		return model.User{}, err
	}
	if err := a.users.Update(ctx, id, changes); err != nil {
		return model.User{}, err
	}
	return a.users.GetByID(ctx, id)
}

// Delete removes a user together with everything the user owns: tasks,
// insights, strategies, shares in both directions and refresh tokens.
// Admins may delete anyone but themselves.
func (a *Accounts) Delete(ctx context.Context, actor access.Actor, id uint64) error {
	if actor.ID == id {
		return invalid("id", "you cannot delete your own account")
	}
	if !access.CanDeleteUser(actor, id) {
		return repository.ErrForbidden
	}
	err := a.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		users := a.users.WithTx(tx)
		u, err := users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := a.tasks.WithTx(tx).DeleteByOwner(ctx, id); err != nil {
			return err
		}
		if _, err := a.insights.WithTx(tx).DeleteByOwner(ctx, id); err != nil {
			return err
		}
		if _, err := a.strategies.WithTx(tx).DeleteByOwner(ctx, id); err != nil {
			return err
		}
		if err := a.shares.WithTx(tx).DeleteForUser(ctx, id, u.Email); err != nil {
			return err
		}
		if err := a.tokens.WithTx(tx).DeleteForUser(ctx, id); err != nil {
			return err
		}
		return users.Delete(ctx, id)
	})
	return txFail("delete user", err)
}

// PromoteAdmin gives the admin role to the user registered under email.
func (a *Accounts) PromoteAdmin(ctx context.Context, email string) error {
	return a.users.SetRoleByEmail(ctx, email, model.RoleAdmin)
}

// EnsureAdmin makes sure an admin account exists for email, creating it
// with password when missing.
func (a *Accounts) EnsureAdmin(ctx context.Context, email, password string) error {
	u, err := a.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if _, err := a.create(ctx, email, password, model.RoleAdmin); err != nil {
			return err
		}
		log.Printf("bootstrap: created admin %s", repository.NormalizeEmail(email))
		return nil
	case err != nil:
		return err
	case u.IsAdmin():
		return nil
	default:
		log.Printf("bootstrap: promoting %s to admin", u.Email)
		return a.users.SetRoleByEmail(ctx, email, model.RoleAdmin)
	}
}
