package model

import "time"

// Roles form a closed two-member set. Adding a third role would require
// revisiting every RequireRole call site, so keep the constants here.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

// User represents an application user record as stored in the `users`
// table. Each field corresponds to a column in the database. Handlers
// never serialize this struct directly; they build response projections
// so the password hash and recovery token never leave the server.
//
// Fields:
//  ID                – primary key identifier of the user.
//  Email             – unique email address, stored lower-cased.
//  PasswordHash      – bcrypt hashed password; empty until activation.
//  FirstName         – given name.
//  LastName          – family name.
//  Role              – "admin" or "manager".
//  IsActive          – whether the account has been activated.
//  IsBanned          – whether an admin has banned the account.
//  RecoveryToken     – opaque token for password recovery or first-time
//                      activation; set together with RecoveryExpiresAt.
//  RecoveryExpiresAt – expiry of the recovery token (nullable).
//  CreatedAt         – timestamp of creation.
//  UpdatedAt         – timestamp of last update.
type User struct {
	ID                uint64     // users.id
	Email             string     // users.email
	PasswordHash      string     // users.password_hash
	FirstName         string     // users.first_name
	LastName          string     // users.last_name
	Role              string     // users.role
	IsActive          bool       // users.is_active
	IsBanned          bool       // users.is_banned
	RecoveryToken     *string    // users.recovery_token (nullable)
	RecoveryExpiresAt *time.Time // users.recovery_expires_at (nullable)
	CreatedAt         time.Time  // users.created_at
	UpdatedAt         time.Time  // users.updated_at
}
