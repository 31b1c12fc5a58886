// Package access decides who may see and change planner records.
//
// Admins see and change everything. Everyone else sees what they own
// plus the records of every owner who shared a plan with their email.
// Ownership is required to delete. A share with edit permission also
// allows updates; a read share does not.
package access

import (
	"sort"

	"github.com/iliyamo/phdplan/internal/model"
)

// Actor is the authenticated caller.
type Actor struct {
	ID    uint64
	Email string
	Role  model.Role
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Grants maps an owner id to the permission that owner shared with the actor.
type Grants map[uint64]model.Permission

// NewGrants indexes the shares naming the actor. When one owner appears
// more than once the stronger permission wins.
func NewGrants(shares []model.PlanShare) Grants {
	g := make(Grants, len(shares))
	for _, s := range shares {
		if cur, ok := g[s.OwnerID]; ok && cur == model.PermissionEdit {
			continue
		}
		g[s.OwnerID] = s.Permission
	}
	return g
}

// Decision is the outcome for one actor and one resource owner.
type Decision struct {
	Visible   bool
	Editable  bool
	Deletable bool
}

// Decide evaluates the policy for a resource owned by ownerID.
func Decide(actor Actor, ownerID uint64, grants Grants) Decision {
	if actor.IsAdmin() {
		return Decision{Visible: true, Editable: true, Deletable: true}
	}
	if ownerID != 0 && ownerID == actor.ID {
		return Decision{Visible: true, Editable: true, Deletable: true}
	}
	if perm, ok := grants[ownerID]; ok && ownerID != 0 {
		return Decision{Visible: true, Editable: perm == model.PermissionEdit}
	}
	return Decision{}
}

// Scope describes the set of owners whose records a listing returns.
// All means no owner filter.
type Scope struct {
	All      bool
	OwnerIDs []uint64
}

// ListScope returns the owners visible to actor, the actor first and the
// sharing owners after it in ascending id order.
func ListScope(actor Actor, grants Grants) Scope {
	if actor.IsAdmin() {
		return Scope{All: true}
	}
	ids := []uint64{actor.ID}
	others := make([]uint64, 0, len(grants))
	for owner := range grants {
		if owner != actor.ID && owner != 0 {
			others = append(others, owner)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i] < others[j] })
	return Scope{OwnerIDs: append(ids, others...)}
}

// CanDeleteUser reports whether actor may delete the account targetID.
// Nobody may delete their own account, admins included.
func CanDeleteUser(actor Actor, targetID uint64) bool {
	return actor.IsAdmin() && actor.ID != targetID
}
