package model

import "time"

// PlanShare grants the user registered under SharedWithEmail visibility
// of everything OwnerID owns. It is unique per (owner, email).
//
// Fields:
//
//	ID              – primary key identifier.
//	OwnerID         – user granting access.
//	SharedWithEmail – target email, lower-cased; need not be registered yet.
//	Permission      – read or edit.
//	CreatedAt       – creation timestamp.
type PlanShare struct {
	ID              uint64     `db:"id" json:"id"`                               // plan_shares.id
	OwnerID         uint64     `db:"owner_id" json:"owner_id"`                   // plan_shares.owner_id
	SharedWithEmail string     `db:"shared_with_email" json:"shared_with_email"` // plan_shares.shared_with_email
	Permission      Permission `db:"permission" json:"permission"`               // plan_shares.permission
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`               // plan_shares.created_at
}
