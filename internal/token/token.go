// Package token issues and verifies the signed HS256 token pairs that
// make up a session. Both halves of a pair carry the same jti so the
// persisted session row can be found from either token.
package token

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidDuration is returned when a lifetime string does not
	// match the <integer><unit> pattern.
	ErrInvalidDuration = errors.New("invalid duration format")
	// ErrInvalidToken covers malformed tokens, wrong signing
	// algorithms and signature mismatches.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token's own exp claim has
	// passed. The stored expiry on the session row is checked
	// separately by callers.
	ErrExpiredToken = errors.New("token expired")
)

// lifetimeRe matches lifetime strings such as "30s", "15m", "12h", "7d".
var lifetimeRe = regexp.MustCompile(`^(\d+)([smhd])$`)

// DefaultLifetime is the fallback applied when a lifetime env var is
// left empty. Misconfiguration degrades to a short session instead of
// refusing to start.
const DefaultLifetime = 30 * time.Minute

// ParseLifetime converts a human-readable lifetime string into a
// time.Duration. The empty string yields DefaultLifetime. "0s" is valid
// and yields zero; only malformed strings fail.
func ParseLifetime(s string) (time.Duration, error) {
	if s == "" {
		return DefaultLifetime, nil
	}
	m := lifetimeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, ErrInvalidDuration
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, ErrInvalidDuration
	}
	switch m[2] {
	case "s":
		return time.Duration(n) * time.Second, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return 0, ErrInvalidDuration
}

// Claims are the payload carried by both halves of a token pair. The
// jti lives in RegisteredClaims.ID, the user id in Subject.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserID parses the numeric subject claim.
func (c *Claims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// Pair is a freshly issued access/refresh token pair together with the
// absolute UTC expirations and the shared session identifier.
type Pair struct {
	JTI              string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Service signs and verifies token pairs with a single server-side
// secret. Access tokens are short-lived, refresh tokens long-lived.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService builds a Service from the signing secret and the two
// configured lifetimes.
func NewService(secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// IssuePair mints a new pair for the given user. The jti is a fresh
// random UUID; collision probability is negligible.
func (s *Service) IssuePair(userID uint64, email, role string) (Pair, error) {
	jti := uuid.NewString()
	now := time.Now().UTC()
	accessExp := now.Add(s.accessTTL)
	refreshExp := now.Add(s.refreshTTL)

	access, err := s.sign(userID, email, role, jti, now, accessExp)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.sign(userID, email, role, jti, now, refreshExp)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		JTI:              jti,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *Service) sign(userID uint64, email, role, jti string, now, exp time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: email,
		Role:  role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a token string. Expired tokens fail with
// ErrExpiredToken; every other failure collapses to ErrInvalidToken so
// callers cannot distinguish which check rejected the token.
func (s *Service) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
