package model

import "time"

// Session models an entry in the `tokens` table: one issued
// access/refresh token pair. The JTI is embedded in both JWT halves and
// is the lookup key for server-side revocation. A session is replaced,
// never mutated in place, when a refresh token is rotated.
//
// Fields:
//  ID               – primary key identifier.
//  JTI              – unique session identifier carried in both tokens.
//  AccessToken      – signed access JWT as issued.
//  RefreshToken     – signed refresh JWT as issued.
//  AccessExpiresAt  – stored copy of the access token expiry.
//  RefreshExpiresAt – stored copy of the refresh token expiry.
//  IsBlocked        – true once the session is revoked or rotated out.
//  UserID           – owner of the session.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type Session struct {
	ID               uint64    // tokens.id
	JTI              string    // tokens.jti
	AccessToken      string    // tokens.access_token
	RefreshToken     string    // tokens.refresh_token
	AccessExpiresAt  time.Time // tokens.access_expires_at
	RefreshExpiresAt time.Time // tokens.refresh_expires_at
	IsBlocked        bool      // tokens.is_blocked
	UserID           uint64    // tokens.user_id
	CreatedAt        time.Time // tokens.created_at
	UpdatedAt        time.Time // tokens.updated_at
}
