package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/okten/crm-api/internal/repository"
)

// GroupHandler serves group creation and listing. Any authenticated
// user may create a group.
type GroupHandler struct {
	Groups repository.GroupStore
}

func NewGroupHandler(g repository.GroupStore) *GroupHandler { return &GroupHandler{Groups: g} }

type createGroupReq struct {
	Name string `json:"name"`
}

// Create inserts a new named group. Duplicate names are rejected.
func (h *GroupHandler) Create(c echo.Context) error {
	var req createGroupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	g, err := h.Groups.Create(ctx, req.Name)
	if err != nil {
		if errors.Is(err, repository.ErrGroupExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "group with this name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create group failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": g.ID, "name": g.Name, "created_at": g.CreatedAt})
}

// List returns every group, newest first.
func (h *GroupHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	groups, err := h.Groups.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	type groupView struct {
		ID        uint64    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	}
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, groupView{ID: g.ID, Name: g.Name, CreatedAt: g.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"groups": views})
}
