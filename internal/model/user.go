package model

import "time"

// User represents an application account as stored in the `users`
// table joined with its role. The password hash never leaves the
// service: it is excluded from JSON and only compared through the
// password hasher.
//
// Fields:
//  ID           – opaque UUID, assigned once at registration.
//  Email        – unique, matched exactly as stored.
//  PasswordHash – bcrypt hash, never empty.
//  Role         – the referenced row of the roles table.
//  IsActive     – inactive accounts cannot log in or refresh.
//  CreatedAt    – timestamp of creation (UTC).
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Role represents a row in the `roles` table. Name is always one of
// the known RoleName values; the repository rejects anything else.
type Role struct {
	ID   uint8    `json:"id"`
	Name RoleName `json:"name"`
}

// RefreshToken models an entry in the `refresh_tokens` table. The raw
// token handed to the client is not stored, only its SHA-256 hash.
// A record is created once per login and afterwards only its Revoked
// flag may change.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Expired reports whether the token is no longer usable at now. A token
// whose expiry equals now is already expired.
func (t RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
