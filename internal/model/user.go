package model

import "time"

// User represents an application user record as stored in the
// `users` table. The email is unique and stored lower-cased.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password, never serialised.
//	Role         – user or admin.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `db:"id" json:"id"`                 // users.id
	Email        string    `db:"email" json:"email"`           // users.email
	PasswordHash string    `db:"password_hash" json:"-"`       // users.password_hash
	Role         Role      `db:"role" json:"role"`             // users.role
	CreatedAt    time.Time `db:"created_at" json:"created_at"` // users.created_at
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"` // users.updated_at
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// UserPatch lists the user attributes an admin may change. Only the
// fields marked Set are written.
type UserPatch struct {
	Email    Optional[string] `json:"email"`
	Password Optional[string] `json:"password"`
	Role     Optional[Role]   `json:"role"`
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA‑256 hash of the raw token is stored.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the token.
//	TokenHash – SHA‑256 hex digest of the token value.
//	ExpiresAt – expiration timestamp of the token.
//	RevokedAt – when the token was revoked (null if still active).
//	CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     `db:"id"`         // refresh_tokens.id
	UserID    uint64     `db:"user_id"`    // refresh_tokens.user_id
	TokenHash string     `db:"token_hash"` // refresh_tokens.token_hash
	ExpiresAt time.Time  `db:"expires_at"` // refresh_tokens.expires_at
	RevokedAt *time.Time `db:"revoked_at"` // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  `db:"created_at"` // refresh_tokens.created_at
}
