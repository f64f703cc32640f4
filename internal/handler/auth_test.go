package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/okten/crm-api/internal/config"
	"github.com/okten/crm-api/internal/model"
	"github.com/okten/crm-api/internal/token"
	"github.com/okten/crm-api/internal/utils"
)

func newAuthEnv() (*AuthHandler, *fakeUserStore, *fakeSessionStore) {
	cfg := config.Config{
		BcryptCost:  bcrypt.MinCost,
		RecoveryTTL: time.Hour,
		AppBaseURL:  "http://localhost:3000",
	}
	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	tokens := token.NewService("test-secret", 15*time.Minute, 24*time.Hour)
	return NewAuthHandler(cfg, users, sessions, tokens), users, sessions
}

func jsonCtx(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func seedActiveUser(t *testing.T, users *fakeUserStore, email, password, role string) model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return users.add(model.User{
		Email: email, PasswordHash: hash,
		FirstName: "Alex", LastName: "Reed",
		Role: role, IsActive: true,
	})
}

func login(t *testing.T, h *AuthHandler, email, password string) authResp {
	t.Helper()
	c, rec := jsonCtx(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLogin_Success(t *testing.T) {
	h, users, sessions := newAuthEnv()
	u := seedActiveUser(t, users, "manager@okten.com", "secret", model.RoleManager)

	resp := login(t, h, "manager@okten.com", "secret")

	require.Equal(t, u.ID, resp.User.ID)
	require.Equal(t, model.RoleManager, resp.User.Role)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.True(t, resp.RefreshExpiresAt.After(resp.AccessExpiresAt))

	// The issued pair must be persisted under its jti.
	claims, err := h.Tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	session, err := sessions.GetByJTI(t.Context(), claims.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, session.UserID)
	require.False(t, session.IsBlocked)
	require.Equal(t, resp.RefreshToken, session.RefreshToken)
}

func TestLogin_UnknownEmailAndWrongPasswordLookAlike(t *testing.T) {
	h, users, _ := newAuthEnv()
	seedActiveUser(t, users, "manager@okten.com", "secret", model.RoleManager)

	c1, rec1 := jsonCtx(http.MethodPost, "/auth/login", `{"email":"nobody@okten.com","password":"secret"}`)
	require.NoError(t, h.Login(c1))
	c2, rec2 := jsonCtx(http.MethodPost, "/auth/login", `{"email":"manager@okten.com","password":"wrong"}`)
	require.NoError(t, h.Login(c2))

	require.Equal(t, http.StatusUnauthorized, rec1.Code)
	require.Equal(t, http.StatusUnauthorized, rec2.Code)
	require.JSONEq(t, rec1.Body.String(), rec2.Body.String())
}

func TestLogin_InactiveAccount(t *testing.T) {
	h, users, _ := newAuthEnv()
	hash, err := utils.HashPassword("secret", bcrypt.MinCost)
	require.NoError(t, err)
	users.add(model.User{Email: "new@okten.com", PasswordHash: hash, Role: model.RoleManager})

	c, rec := jsonCtx(http.MethodPost, "/auth/login", `{"email":"new@okten.com","password":"secret"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "not activated")
}

func TestLogin_BannedAccount(t *testing.T) {
	h, users, _ := newAuthEnv()
	u := seedActiveUser(t, users, "banned@okten.com", "secret", model.RoleManager)
	require.NoError(t, users.SetBanned(t.Context(), u.ID, true))

	c, rec := jsonCtx(http.MethodPost, "/auth/login", `{"email":"banned@okten.com","password":"secret"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "banned")
}

func TestRefresh_RotatesPair(t *testing.T) {
	h, users, sessions := newAuthEnv()
	u := seedActiveUser(t, users, "manager@okten.com", "secret", model.RoleManager)
	first := login(t, h, "manager@okten.com", "secret")

	c, rec := jsonCtx(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+first.RefreshToken+`"}`)
	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var second authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.NotEqual(t, first.AccessToken, second.AccessToken)

	// Old session blocked, new one live: exactly one active session.
	oldClaims, err := h.Tokens.Verify(first.AccessToken)
	require.NoError(t, err)
	old, err := sessions.GetByJTI(t.Context(), oldClaims.ID)
	require.NoError(t, err)
	require.True(t, old.IsBlocked)
	require.Equal(t, 1, sessions.activeCount(u.ID))
}

func TestRefresh_SecondUseOfSameTokenFails(t *testing.T) {
	h, users, _ := newAuthEnv()
	seedActiveUser(t, users, "manager@okten.com", "secret", model.RoleManager)
	first := login(t, h, "manager@okten.com", "secret")

	c1, rec1 := jsonCtx(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+first.RefreshToken+`"}`)
	require.NoError(t, h.Refresh(c1))
	require.Equal(t, http.StatusOK, rec1.Code)

	c2, rec2 := jsonCtx(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+first.RefreshToken+`"}`)
	require.NoError(t, h.Refresh(c2))
	require.Equal(t, http.StatusUnauthorized, rec2.Code)
	require.Contains(t, rec2.Body.String(), "blocked")
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	h, users, _ := newAuthEnv()
	seedActiveUser(t, users, "manager@okten.com", "secret", model.RoleManager)
	first := login(t, h, "manager@okten.com", "secret")

	// An access token verifies cryptographically but does not match the
	// stored refresh string.
	c, rec := jsonCtx(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+first.AccessToken+`"}`)
	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_UnknownSession(t *testing.T) {
	h, _, _ := newAuthEnv()
	pair, err := h.Tokens.IssuePair(42, "ghost@okten.com", model.RoleManager)
	require.NoError(t, err)

	c, rec := jsonCtx(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+pair.RefreshToken+`"}`)
	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "token not found")
}

func TestRefresh_GarbageToken(t *testing.T) {
	h, _, _ := newAuthEnv()
	c, rec := jsonCtx(http.MethodPost, "/auth/refresh", `{"refresh_token":"not-a-jwt"}`)
	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_Idempotent(t *testing.T) {
	h, users, sessions := newAuthEnv()
	seedActiveUser(t, users, "manager@okten.com", "secret", model.RoleManager)
	resp := login(t, h, "manager@okten.com", "secret")
	claims, err := h.Tokens.Verify(resp.AccessToken)
	require.NoError(t, err)

	c1, rec1 := jsonCtx(http.MethodPost, "/auth/logout", "")
	c1.Set("jti", claims.ID)
	require.NoError(t, h.Logout(c1))
	require.Equal(t, http.StatusOK, rec1.Code)
	require.Contains(t, rec1.Body.String(), "successfully logged out")

	session, err := sessions.GetByJTI(t.Context(), claims.ID)
	require.NoError(t, err)
	require.True(t, session.IsBlocked)

	c2, rec2 := jsonCtx(http.MethodPost, "/auth/logout", "")
	c2.Set("jti", claims.ID)
	require.NoError(t, h.Logout(c2))
	require.Equal(t, http.StatusOK, rec2.Code)
	require.Contains(t, rec2.Body.String(), "already revoked")
}

func TestResetPassword_RevokesAllSessions(t *testing.T) {
	h, users, sessions := newAuthEnv()
	u := seedActiveUser(t, users, "manager@okten.com", "old-pass", model.RoleManager)
	login(t, h, "manager@okten.com", "old-pass")
	login(t, h, "manager@okten.com", "old-pass")
	require.Equal(t, 2, sessions.activeCount(u.ID))

	require.NoError(t, users.SetRecoveryToken(t.Context(), u.ID, "recovery-token", time.Now().UTC().Add(time.Hour)))

	c, rec := jsonCtx(http.MethodPost, "/auth/reset-password", `{"token":"recovery-token","new_password":"new-pass"}`)
	require.NoError(t, h.ResetPassword(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, sessions.activeCount(u.ID))

	// New password works, old does not.
	login(t, h, "manager@okten.com", "new-pass")
	cOld, recOld := jsonCtx(http.MethodPost, "/auth/login", `{"email":"manager@okten.com","password":"old-pass"}`)
	require.NoError(t, h.Login(cOld))
	require.Equal(t, http.StatusUnauthorized, recOld.Code)
}

func TestResetPassword_TokenIsSingleUse(t *testing.T) {
	h, users, _ := newAuthEnv()
	u := seedActiveUser(t, users, "manager@okten.com", "old-pass", model.RoleManager)
	require.NoError(t, users.SetRecoveryToken(t.Context(), u.ID, "recovery-token", time.Now().UTC().Add(time.Hour)))

	c1, rec1 := jsonCtx(http.MethodPost, "/auth/reset-password", `{"token":"recovery-token","new_password":"new-pass"}`)
	require.NoError(t, h.ResetPassword(c1))
	require.Equal(t, http.StatusOK, rec1.Code)

	c2, rec2 := jsonCtx(http.MethodPost, "/auth/reset-password", `{"token":"recovery-token","new_password":"other"}`)
	require.NoError(t, h.ResetPassword(c2))
	require.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	h, users, _ := newAuthEnv()
	u := seedActiveUser(t, users, "manager@okten.com", "old-pass", model.RoleManager)
	require.NoError(t, users.SetRecoveryToken(t.Context(), u.ID, "stale-token", time.Now().UTC().Add(-time.Minute)))

	c, rec := jsonCtx(http.MethodPost, "/auth/reset-password", `{"token":"stale-token","new_password":"new-pass"}`)
	require.NoError(t, h.ResetPassword(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid or expired")
}
