package repository

import (
	"context"
	"database/sql"

	"github.com/okten/crm-api/internal/model"
	"github.com/okten/crm-api/internal/token"
)

// SessionRepo implements SessionStore over the 'tokens' table. One row
// per issued pair; revocation flips is_blocked and rows are never
// deleted while the owning user exists.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row for a freshly issued pair.
func (r *SessionRepo) Create(ctx context.Context, userID uint64, p token.Pair) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO tokens (jti, access_token, refresh_token, access_expires_at, refresh_expires_at, user_id) VALUES (?,?,?,?,?,?)",
		p.JTI, p.AccessToken, p.RefreshToken, p.AccessExpiresAt, p.RefreshExpiresAt, userID)
	return err
}

// GetByJTI fetches a session row by its jti.
func (r *SessionRepo) GetByJTI(ctx context.Context, jti string) (model.Session, error) {
	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,jti,access_token,refresh_token,access_expires_at,refresh_expires_at,is_blocked,user_id,created_at,updated_at FROM tokens WHERE jti=? LIMIT 1",
		jti).Scan(&s.ID, &s.JTI, &s.AccessToken, &s.RefreshToken, &s.AccessExpiresAt,
		&s.RefreshExpiresAt, &s.IsBlocked, &s.UserID, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Block revokes a session. Blocking an already blocked session changes
// nothing and returns nil.
func (r *SessionRepo) Block(ctx context.Context, jti string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE tokens SET is_blocked=1 WHERE jti=?", jti)
	return err
}

// Rotate blocks the old session and inserts the replacement inside one
// transaction. The block is conditional on is_blocked=0 and checked via
// RowsAffected, so two concurrent refreshes with the same stale token
// cannot both succeed: the loser gets ErrSessionBlocked.
func (r *SessionRepo) Rotate(ctx context.Context, oldJTI string, userID uint64, p token.Pair) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE tokens SET is_blocked=1 WHERE jti=? AND is_blocked=0", oldJTI)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionBlocked
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO tokens (jti, access_token, refresh_token, access_expires_at, refresh_expires_at, user_id) VALUES (?,?,?,?,?,?)",
		p.JTI, p.AccessToken, p.RefreshToken, p.AccessExpiresAt, p.RefreshExpiresAt, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// BlockAllForUser revokes every active session of a user. Used after
// password resets and bans.
func (r *SessionRepo) BlockAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE tokens SET is_blocked=1 WHERE user_id=? AND is_blocked=0", userID)
	return err
}
