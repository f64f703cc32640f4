package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/okten/crm-api/internal/config"
	"github.com/okten/crm-api/internal/middleware"
	"github.com/okten/crm-api/internal/model"
	"github.com/okten/crm-api/internal/repository"
	"github.com/okten/crm-api/internal/token"
	"github.com/okten/crm-api/internal/utils"
)

// AuthHandler bundles dependencies for the credential endpoints:
// login, refresh, logout, current user, password reset and account
// activation.
type AuthHandler struct {
	Cfg      config.Config
	Users    repository.UserStore
	Sessions repository.SessionStore
	Tokens   *token.Service
}

func NewAuthHandler(cfg config.Config, u repository.UserStore, s repository.SessionStore, t *token.Service) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s, Tokens: t}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type resetPasswordReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}
type activateAccountReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type userPart struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}
type authResp struct {
	User             userPart  `json:"user"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func publicUser(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role}
}

func pairResp(u model.User, p token.Pair) authResp {
	return authResp{
		User:             publicUser(u),
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

// Login verifies credentials and issues a fresh token pair. Unknown
// email and wrong password produce the same response so the endpoint
// cannot be used to enumerate accounts.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is not activated"})
	}
	if u.IsBanned {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is banned"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	pair, err := h.Tokens.IssuePair(u.ID, u.Email, u.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	if err := h.Sessions.Create(ctx, u.ID, pair); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save session failed"})
	}
	return c.JSON(http.StatusOK, pairResp(u, pair))
}

// Refresh rotates a token pair. The presented refresh token is
// single-use: the old session is blocked in the same transaction that
// persists the replacement, so a second use fails.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	raw := strings.TrimSpace(req.RefreshToken)

	claims, err := h.Tokens.Verify(raw)
	if err != nil {
		// Signature failures and cryptographic expiry collapse to one
		// answer on purpose.
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
	}
	uid, err := claims.UserID()
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	session, err := h.Sessions.GetByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	// Bind the presented string to the stored row, not just the jti.
	if session.RefreshToken != raw {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token not found"})
	}
	if session.IsBlocked {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is blocked"})
	}
	if time.Now().UTC().After(session.RefreshExpiresAt) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token expired"})
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if u.IsBanned {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is blocked"})
	}

	pair, err := h.Tokens.IssuePair(u.ID, u.Email, u.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	if err := h.Sessions.Rotate(ctx, session.JTI, u.ID, pair); err != nil {
		if errors.Is(err, repository.ErrSessionBlocked) {
			// Lost the rotation race to a concurrent refresh.
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is blocked"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save session failed"})
	}
	return c.JSON(http.StatusOK, pairResp(u, pair))
}

// Logout revokes the current session. Logging out an already revoked
// session is not an error; it reports what happened and succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	jti, ok := middleware.CurrentJTI(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	session, err := h.Sessions.GetByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "token not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if session.IsBlocked {
		return c.JSON(http.StatusOK, echo.Map{"message": "token already revoked"})
	}
	if err := h.Sessions.Block(ctx, jti); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "successfully logged out"})
}

// Me returns the authenticated user's public projection.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, publicUser(u))
}

// consumeRecoveryToken validates a recovery/activation token and sets
// the new password, clearing the token and activating the account.
// Returns the affected user.
func (h *AuthHandler) consumeRecoveryToken(ctx context.Context, recoveryToken, newPassword string) (model.User, error) {
	u, err := h.Users.GetByRecoveryToken(ctx, recoveryToken)
	if err != nil {
		return model.User{}, err
	}
	if u.RecoveryExpiresAt == nil || time.Now().UTC().After(*u.RecoveryExpiresAt) {
		return model.User{}, sql.ErrNoRows
	}
	hash, err := utils.HashPassword(newPassword, h.Cfg.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	if err := h.Users.SetPasswordAndActivate(ctx, u.ID, hash); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// ResetPassword consumes a recovery token, sets the new password and
// revokes every existing session: a changed password makes all prior
// sessions untrusted.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and new_password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.consumeRecoveryToken(ctx, req.Token, req.NewPassword)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired recovery token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset password failed"})
	}
	if err := h.Sessions.BlockAllForUser(ctx, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset password failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password has been reset and account is now activated"})
}

// ActivateAccount is the first-time variant of ResetPassword used by
// freshly provisioned managers. No sessions exist yet, so nothing is
// revoked.
func (h *AuthHandler) ActivateAccount(c echo.Context) error {
	var req activateAccountReq
	if err := c.Bind(&req); err != nil || req.Token == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.consumeRecoveryToken(ctx, req.Token, req.Password); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired activation token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activate account failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account activated successfully"})
}
