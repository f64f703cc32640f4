package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/okten/crm-api/internal/middleware"
	"github.com/okten/crm-api/internal/queue"
	"github.com/okten/crm-api/internal/repository"
	queue_publisher "github.com/okten/crm-api/internal/service"
)

// CommentHandler serves comment creation (which may claim the order
// for the author) and the comment listing. Publish is swappable so
// tests do not need a running broker.
type CommentHandler struct {
	Comments repository.CommentStore
	Publish  func(ctx context.Context, ev queue.OrderClaimedEvent) error
}

func NewCommentHandler(cs repository.CommentStore) *CommentHandler {
	return &CommentHandler{Comments: cs, Publish: queue_publisher.PublishOrderClaimed}
}

type createCommentReq struct {
	OrderID uint64 `json:"order_id"`
	Message string `json:"message"`
}

// Create adds a comment to an order. The first comment on an
// unmanaged order claims it for the author and moves a NULL/"New"
// status to "In work". A claim publishes an order.claimed event;
// publish failures are logged inside the publisher and never fail the
// request.
func (h *CommentHandler) Create(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createCommentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.OrderID == 0 || req.Message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id and message required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	comment, order, claimed, err := h.Comments.CreateWithClaim(ctx, req.OrderID, u.ID, req.Message)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "you can't comment this order"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create comment failed"})
	}

	if claimed && h.Publish != nil {
		status := ""
		if order.Status != nil {
			status = *order.Status
		}
		_ = h.Publish(ctx, queue.OrderClaimedEvent{
			OrderID:      order.ID,
			ManagerID:    u.ID,
			ManagerEmail: u.Email,
			Status:       status,
			ClaimedAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"comment": repository.CommentDetail{
			ID:              comment.ID,
			Message:         comment.Message,
			OrderID:         comment.OrderID,
			UserID:          comment.UserID,
			AuthorFirstName: u.FirstName,
			AuthorLastName:  u.LastName,
			CreatedAt:       comment.CreatedAt,
		},
		"order": toOrderView(order),
	})
}

// List returns every comment with author names, newest first.
func (h *CommentHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	comments, err := h.Comments.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"comments": comments})
}
