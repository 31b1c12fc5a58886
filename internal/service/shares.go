package service

import (
	"context"
	"net/mail"
	"time"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/model"
	"github.com/iliyamo/phdplan/internal/queue"
	"github.com/iliyamo/phdplan/internal/repository"
)

// Shares groups the grants an actor made and the grants made to them.
type Shares struct {
	Granted  []model.PlanShare `json:"granted"`
	Received []model.PlanShare `json:"received"`
}

// ValidateEmail normalizes an address and checks its shape.
func ValidateEmail(field, raw string) (string, error) {
	email := repository.NormalizeEmail(raw)
	if email == "" {
		return "", invalid(field, "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid(field, "%q is not a valid email", raw)
	}
	return email, nil
}

// SharePlan grants email visibility of everything actor owns. Sharing
// again with the same email replaces the permission.
func (s *Planner) SharePlan(ctx context.Context, actor access.Actor, email string, perm model.Permission) (model.PlanShare, error) {
	target, err := ValidateEmail("shared_with_email", email)
	if err != nil {
		return model.PlanShare{}, err
	}
	owner, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return model.PlanShare{}, err
	}
	if owner.Email == target {
		return model.PlanShare{}, invalid("shared_with_email", "cannot share a plan with yourself")
	}
	share, err := s.shares.Upsert(ctx, actor.ID, target, perm)
	if err != nil {
		return model.PlanShare{}, err
	}
	publishAsync(s.events, queue.PlanSharedQueue, queue.PlanSharedEvent{
		OwnerID:         actor.ID,
		OwnerEmail:      owner.Email,
		SharedWithEmail: target,
		Permission:      perm.String(),
		SharedAt:        s.now().UTC().Format(time.RFC3339),
	})
	return share, nil
}

// ListShares returns both directions of sharing for actor.
func (s *Planner) ListShares(ctx context.Context, actor access.Actor) (Shares, error) {
	if actor.Email == "" {
		u, err := s.users.GetByID(ctx, actor.ID)
		if err != nil {
			return Shares{}, err
		}
		actor.Email = u.Email
	}
	granted, err := s.shares.ListByOwner(ctx, actor.ID)
	if err != nil {
		return Shares{}, err
	}
	received, err := s.shares.ListForEmail(ctx, actor.Email)
	if err != nil {
		return Shares{}, err
	}
	return Shares{Granted: granted, Received: received}, nil
}
