package repository

import (
	"context"
	"time"

	"github.com/okten/crm-api/internal/model"
	"github.com/okten/crm-api/internal/token"
)

// Storage ports. Handlers depend on these interfaces rather than the
// concrete *sql.DB repositories so tests can substitute in-memory
// fakes. Each interface is implemented by the repo struct of the same
// concern below.

// UserStore is the credential store: persisted user records with
// role, ban/active flags and the recovery token pair.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	// CreateManager inserts an inactive manager with an empty password
	// hash and a pre-seeded activation token.
	CreateManager(ctx context.Context, email, firstName, lastName, recoveryToken string, expires time.Time) (uint64, error)
	GetByRecoveryToken(ctx context.Context, recoveryToken string) (model.User, error)
	// SetRecoveryToken overwrites any prior recovery token and expiry.
	SetRecoveryToken(ctx context.Context, userID uint64, recoveryToken string, expires time.Time) error
	// SetPasswordAndActivate stores a new password hash, clears the
	// recovery token pair and sets is_active. Token and expiry are
	// always cleared together.
	SetPasswordAndActivate(ctx context.Context, userID uint64, passwordHash string) error
	SetBanned(ctx context.Context, userID uint64, banned bool) error
	ListManagers(ctx context.Context, page, limit int) ([]model.User, int, error)
}

// SessionStore persists issued token pairs, one row per pair, keyed by
// jti for revocation lookups.
type SessionStore interface {
	Create(ctx context.Context, userID uint64, p token.Pair) error
	GetByJTI(ctx context.Context, jti string) (model.Session, error)
	// Block revokes a session unconditionally. Blocking an already
	// blocked session is a no-op.
	Block(ctx context.Context, jti string) error
	// Rotate atomically blocks the old session and inserts the new
	// pair. It fails with ErrSessionBlocked when the old session was
	// already blocked, which makes concurrent refreshes single-winner.
	Rotate(ctx context.Context, oldJTI string, userID uint64, p token.Pair) error
	BlockAllForUser(ctx context.Context, userID uint64) error
}

// OrderStore covers order reads, partial updates and the status
// aggregations used by the admin statistics endpoints.
type OrderStore interface {
	GetByID(ctx context.Context, id uint64) (model.Order, error)
	List(ctx context.Context, q OrderQuery) ([]model.Order, int, error)
	// Update applies a partial patch: only the listed columns change,
	// and a nil value clears a nullable column.
	Update(ctx context.Context, id uint64, patch OrderPatch) (model.Order, error)
	// CountByStatus aggregates orders by status, optionally scoped to
	// one manager.
	CountByStatus(ctx context.Context, managerID *uint64) (model.StatusCounts, error)
	// ManagerCounts returns the per-manager breakdown across all
	// managers that have at least one assigned order.
	ManagerCounts(ctx context.Context) ([]model.ManagerStatistics, error)
}

// CommentStore persists comments and performs the claim transition:
// first comment on an unmanaged order assigns the author as manager.
type CommentStore interface {
	// CreateWithClaim inserts the comment and, in the same
	// transaction, claims the order for the author when it has no
	// manager and moves NULL/"New" status to "In work". The returned
	// bool reports whether the order was claimed by this call.
	CreateWithClaim(ctx context.Context, orderID, authorID uint64, message string) (model.Comment, model.Order, bool, error)
	ListAll(ctx context.Context) ([]CommentDetail, error)
}

// GroupStore persists named order buckets.
type GroupStore interface {
	Create(ctx context.Context, name string) (model.Group, error)
	ListAll(ctx context.Context) ([]model.Group, error)
}
