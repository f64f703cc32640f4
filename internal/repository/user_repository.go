package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/okten/crm-api/internal/model"
)

// UserRepo implements UserStore over the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,first_name,last_name,role,is_active,is_banned,recovery_token,recovery_expires_at,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u       model.User
		token   sql.NullString
		expires sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Role, &u.IsActive, &u.IsBanned, &token, &expires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if token.Valid {
		u.RecoveryToken = &token.String
	}
	if expires.Valid {
		u.RecoveryExpiresAt = &expires.Time
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// CreateManager inserts an inactive manager-role user with an empty
// password hash and a pre-seeded activation token, returning its ID.
func (r *UserRepo) CreateManager(ctx context.Context, email, firstName, lastName, recoveryToken string, expires time.Time) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, first_name, last_name, role, is_active, recovery_token, recovery_expires_at) VALUES (?,'',?,?,?,0,?,?)",
		email, firstName, lastName, model.RoleManager, recoveryToken, expires)
	if err != nil {
		// MySQL duplicate-key error for the unique email index
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByRecoveryToken fetches the user holding the given recovery token.
func (r *UserRepo) GetByRecoveryToken(ctx context.Context, recoveryToken string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE recovery_token=? LIMIT 1", recoveryToken))
}

// SetRecoveryToken overwrites the recovery token and expiry for a user.
func (r *UserRepo) SetRecoveryToken(ctx context.Context, userID uint64, recoveryToken string, expires time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET recovery_token=?, recovery_expires_at=? WHERE id=?",
		recoveryToken, expires, userID)
	return err
}

// SetPasswordAndActivate stores the new hash, clears the recovery token
// pair and activates the account in a single statement so the token and
// its expiry can never diverge.
func (r *UserRepo) SetPasswordAndActivate(ctx context.Context, userID uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, recovery_token=NULL, recovery_expires_at=NULL, is_active=1 WHERE id=?",
		passwordHash, userID)
	return err
}

// SetBanned updates the ban flag.
func (r *UserRepo) SetBanned(ctx context.Context, userID uint64, banned bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_banned=? WHERE id=?", banned, userID)
	return err
}

// ListManagers returns one page of manager accounts ordered by id,
// plus the total manager count for pagination.
func (r *UserRepo) ListManagers(ctx context.Context, page, limit int) ([]model.User, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role=?", model.RoleManager).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role=? ORDER BY id LIMIT ? OFFSET ?",
		model.RoleManager, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var (
			u       model.User
			tok     sql.NullString
			expires sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
			&u.Role, &u.IsActive, &u.IsBanned, &tok, &expires, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if tok.Valid {
			u.RecoveryToken = &tok.String
		}
		if expires.Valid {
			u.RecoveryExpiresAt = &expires.Time
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}
