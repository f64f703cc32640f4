package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/okten/crm-api/internal/model"
	"github.com/okten/crm-api/internal/repository"
)

// OrderHandler serves order reads and partial updates.
type OrderHandler struct {
	Orders repository.OrderStore
}

func NewOrderHandler(o repository.OrderStore) *OrderHandler { return &OrderHandler{Orders: o} }

// orderView is the JSON projection of an order. Pointer fields render
// as null when the column is NULL.
type orderView struct {
	ID           uint64    `json:"id"`
	Name         *string   `json:"name"`
	Surname      *string   `json:"surname"`
	Email        *string   `json:"email"`
	Phone        *string   `json:"phone"`
	Age          *int      `json:"age"`
	Course       *string   `json:"course"`
	CourseFormat *string   `json:"course_format"`
	CourseType   *string   `json:"course_type"`
	Sum          *int      `json:"sum"`
	AlreadyPaid  *int      `json:"already_paid"`
	UTM          *string   `json:"utm"`
	Msg          *string   `json:"msg"`
	Status       *string   `json:"status"`
	GroupID      *uint64   `json:"group_id"`
	ManagerID    *uint64   `json:"manager_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toOrderView(o model.Order) orderView {
	return orderView{
		ID: o.ID, Name: o.Name, Surname: o.Surname, Email: o.Email, Phone: o.Phone,
		Age: o.Age, Course: o.Course, CourseFormat: o.CourseFormat, CourseType: o.CourseType,
		Sum: o.Sum, AlreadyPaid: o.AlreadyPaid, UTM: o.UTM, Msg: o.Msg, Status: o.Status,
		GroupID: o.GroupID, ManagerID: o.ManagerID, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}
}

// List returns one page of orders. Query params: page, limit, sort,
// order=asc|desc, search, plus equality filters on status, course,
// course_format, course_type, manager_id and group_id.
func (h *OrderHandler) List(c echo.Context) error {
	q := repository.OrderQuery{}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	q.Sort = c.QueryParam("sort")
	q.Desc = strings.EqualFold(c.QueryParam("order"), "desc")
	q.Search = c.QueryParam("search")

	strFilter := func(param string, set []string, dst **string) error {
		v := c.QueryParam(param)
		if v == "" {
			return nil
		}
		if !model.ValidEnum(v, set) {
			return fmt.Errorf("invalid %s", param)
		}
		*dst = &v
		return nil
	}
	if err := strFilter("status", model.Statuses, &q.Status); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := strFilter("course", model.Courses, &q.Course); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := strFilter("course_format", model.CourseFormats, &q.CourseFormat); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := strFilter("course_type", model.CourseTypes, &q.CourseType); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	idFilter := func(param string, dst **uint64) error {
		v := c.QueryParam(param)
		if v == "" {
			return nil
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s", param)
		}
		*dst = &n
		return nil
	}
	if err := idFilter("manager_id", &q.ManagerID); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := idFilter("group_id", &q.GroupID); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, total, err := h.Orders.List(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 25
	}
	return c.JSON(http.StatusOK, echo.Map{
		"orders": views,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// Get returns a single order by id.
func (h *OrderHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toOrderView(o))
}

// patchColumnOrder fixes the order in which incoming patch fields are
// applied so generated SQL is deterministic.
var patchColumnOrder = []string{
	"name", "surname", "email", "phone", "age",
	"course", "course_format", "course_type",
	"sum", "already_paid", "utm", "msg",
	"status", "group_id", "manager_id",
}

// enumForColumn maps enum columns to their allowed value sets.
var enumForColumn = map[string][]string{
	"course":        model.Courses,
	"course_format": model.CourseFormats,
	"course_type":   model.CourseTypes,
	"status":        model.Statuses,
}

// Update applies a partial patch. Absent keys leave columns unchanged;
// an explicit null clears a nullable column.
func (h *OrderHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	var body map[string]interface{}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	for key := range body {
		if !repository.PatchColumns[key] {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown field: " + key})
		}
	}

	patch := make(repository.OrderPatch, 0, len(body))
	for _, col := range patchColumnOrder {
		raw, present := body[col]
		if !present {
			continue
		}
		if raw == nil {
			// Explicit null clears the column.
			patch = append(patch, repository.PatchField{Column: col, Value: nil})
			continue
		}
		switch col {
		case "age", "sum", "already_paid", "group_id", "manager_id":
			n, ok := raw.(float64) // JSON numbers decode as float64
			if !ok || n != float64(int64(n)) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid value for " + col})
			}
			patch = append(patch, repository.PatchField{Column: col, Value: int64(n)})
		default:
			s, ok := raw.(string)
			if !ok {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid value for " + col})
			}
			if set, isEnum := enumForColumn[col]; isEnum && !model.ValidEnum(s, set) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid value for " + col})
			}
			patch = append(patch, repository.PatchField{Column: col, Value: s})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toOrderView(o))
}
