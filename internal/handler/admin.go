package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/okten/crm-api/internal/config"
	"github.com/okten/crm-api/internal/model"
	"github.com/okten/crm-api/internal/repository"
	"github.com/okten/crm-api/internal/utils"
)

// AdminHandler bundles the admin-gated endpoints: manager
// provisioning, recovery tokens, ban management and statistics. Every
// route registered on it sits behind RequireRole("admin").
type AdminHandler struct {
	Cfg      config.Config
	Users    repository.UserStore
	Sessions repository.SessionStore
	Orders   repository.OrderStore
}

func NewAdminHandler(cfg config.Config, u repository.UserStore, s repository.SessionStore, o repository.OrderStore) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Users: u, Sessions: s, Orders: o}
}

type createManagerReq struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
type updateStatusReq struct {
	IsBanned bool `json:"is_banned"`
}

type managerView struct {
	ID        uint64             `json:"id"`
	Email     string             `json:"email"`
	FirstName string             `json:"first_name"`
	LastName  string             `json:"last_name"`
	IsActive  bool               `json:"is_active"`
	IsBanned  bool               `json:"is_banned"`
	Counts    model.StatusCounts `json:"counts"`
}

// RecoveryPassword generates a fresh recovery token for the given user
// and returns it for out-of-band delivery. Any prior token is
// overwritten.
func (h *AdminHandler) RecoveryPassword(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	recoveryToken, err := utils.NewRecoveryToken()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate token failed"})
	}
	expires := time.Now().UTC().Add(h.Cfg.RecoveryTTL)
	if err := h.Users.SetRecoveryToken(ctx, userID, recoveryToken, expires); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save token failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"token": recoveryToken})
}

// CreateManager provisions an inactive manager account with an empty
// password and a pre-seeded activation token. The activation link
// reuses the recovery-token mechanism for the first password set.
func (h *AdminHandler) CreateManager(c echo.Context) error {
	var req createManagerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Email == "" || req.FirstName == "" || req.LastName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, first_name and last_name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	activationToken, err := utils.NewRecoveryToken()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate token failed"})
	}
	expires := time.Now().UTC().Add(h.Cfg.RecoveryTTL)

	if _, err := h.Users.CreateManager(ctx, req.Email, req.FirstName, req.LastName, activationToken, expires); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create manager failed"})
	}

	link := strings.TrimRight(h.Cfg.AppBaseURL, "/") + "/activate/" + activationToken
	return c.JSON(http.StatusCreated, echo.Map{
		"message":         "manager created successfully",
		"activation_link": link,
	})
}

// UpdateUserStatus bans or unbans a user. Admin accounts cannot be
// banned. Banning revokes every live session immediately.
func (h *AdminHandler) UpdateUserStatus(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req updateStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.Role == model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot ban admin"})
	}

	if err := h.Users.SetBanned(ctx, userID, req.IsBanned); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update status failed"})
	}
	if req.IsBanned {
		if err := h.Sessions.BlockAllForUser(ctx, userID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update status failed"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user status updated"})
}

// ListManagers returns a page of manager accounts, each with its order
// counts by status.
func (h *AdminHandler) ListManagers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	managers, total, err := h.Users.ListManagers(ctx, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	views := make([]managerView, 0, len(managers))
	for _, m := range managers {
		id := m.ID
		counts, err := h.Orders.CountByStatus(ctx, &id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		views = append(views, managerView{
			ID: m.ID, Email: m.Email, FirstName: m.FirstName, LastName: m.LastName,
			IsActive: m.IsActive, IsBanned: m.IsBanned, Counts: counts,
		})
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return c.JSON(http.StatusOK, echo.Map{
		"managers": views,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// ManagerStatistics returns per-manager order counts; when managerId
// is given, only that manager's counts.
func (h *AdminHandler) ManagerStatistics(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw := c.QueryParam("managerId"); raw != "" {
		managerID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid manager id"})
		}
		u, err := h.Users.GetByID(ctx, managerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		counts, err := h.Orders.CountByStatus(ctx, &managerID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, model.ManagerStatistics{
			ManagerID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Counts: counts,
		})
	}

	stats, err := h.Orders.ManagerCounts(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"managers": stats})
}

// OverallStatistics returns global order counts by status.
func (h *AdminHandler) OverallStatistics(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	counts, err := h.Orders.CountByStatus(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, counts)
}
