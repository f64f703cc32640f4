package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/okten/crm-api/internal/model"
)

// OrderRepo implements OrderStore over the 'orders' table.
type OrderRepo struct{ DB *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

// OrderQuery carries pagination, sorting and filtering for List.
// Sort keys are validated against sortColumns before being used, so a
// caller-supplied value can never be interpolated into SQL.
type OrderQuery struct {
	Page         int
	Limit        int
	Sort         string // one of sortColumns keys; default "id"
	Desc         bool
	Status       *string
	Course       *string
	CourseFormat *string
	CourseType   *string
	ManagerID    *uint64
	GroupID      *uint64
	Search       string // matched against name/surname/email/phone
}

// sortColumns whitelists the sortable columns.
var sortColumns = map[string]string{
	"id":            "id",
	"name":          "name",
	"surname":       "surname",
	"email":         "email",
	"phone":         "phone",
	"age":           "age",
	"course":        "course",
	"course_format": "course_format",
	"course_type":   "course_type",
	"status":        "status",
	"sum":           "sum",
	"already_paid":  "already_paid",
	"created_at":    "created_at",
}

// PatchField is one column assignment in a partial update. A nil Value
// writes NULL, clearing a nullable column.
type PatchField struct {
	Column string
	Value  interface{}
}

// OrderPatch is an ordered list of column assignments. Columns are
// validated by the handler against patchColumns before reaching SQL.
type OrderPatch []PatchField

// PatchColumns whitelists the columns an order patch may touch.
var PatchColumns = map[string]bool{
	"name": true, "surname": true, "email": true, "phone": true,
	"age": true, "course": true, "course_format": true, "course_type": true,
	"sum": true, "already_paid": true, "utm": true, "msg": true,
	"status": true, "group_id": true, "manager_id": true,
}

const orderColumns = "id,name,surname,email,phone,age,course,course_format,course_type,`sum`,already_paid,utm,msg,status,group_id,manager_id,created_at,updated_at"

type orderScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row orderScanner) (model.Order, error) {
	var (
		o                                      model.Order
		name, surname, email, phone            sql.NullString
		course, courseFormat, courseType       sql.NullString
		utm, msg, status                       sql.NullString
		age, sum, alreadyPaid                  sql.NullInt64
		groupID, managerID                     sql.NullInt64
	)
	err := row.Scan(&o.ID, &name, &surname, &email, &phone, &age,
		&course, &courseFormat, &courseType, &sum, &alreadyPaid,
		&utm, &msg, &status, &groupID, &managerID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return model.Order{}, err
	}
	setStr := func(dst **string, v sql.NullString) {
		if v.Valid {
			s := v.String
			*dst = &s
		}
	}
	setInt := func(dst **int, v sql.NullInt64) {
		if v.Valid {
			n := int(v.Int64)
			*dst = &n
		}
	}
	setUint := func(dst **uint64, v sql.NullInt64) {
		if v.Valid {
			n := uint64(v.Int64)
			*dst = &n
		}
	}
	setStr(&o.Name, name)
	setStr(&o.Surname, surname)
	setStr(&o.Email, email)
	setStr(&o.Phone, phone)
	setStr(&o.Course, course)
	setStr(&o.CourseFormat, courseFormat)
	setStr(&o.CourseType, courseType)
	setStr(&o.UTM, utm)
	setStr(&o.Msg, msg)
	setStr(&o.Status, status)
	setInt(&o.Age, age)
	setInt(&o.Sum, sum)
	setInt(&o.AlreadyPaid, alreadyPaid)
	setUint(&o.GroupID, groupID)
	setUint(&o.ManagerID, managerID)
	return o, nil
}

// GetByID fetches a single order.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (model.Order, error) {
	return scanOrder(r.DB.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id=? LIMIT 1", id))
}

// buildFilter renders the WHERE clause shared by List's count and page
// queries.
func buildFilter(q OrderQuery) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	eq := func(col string, v interface{}) {
		conds = append(conds, col+"=?")
		args = append(args, v)
	}
	if q.Status != nil {
		eq("status", *q.Status)
	}
	if q.Course != nil {
		eq("course", *q.Course)
	}
	if q.CourseFormat != nil {
		eq("course_format", *q.CourseFormat)
	}
	if q.CourseType != nil {
		eq("course_type", *q.CourseType)
	}
	if q.ManagerID != nil {
		eq("manager_id", *q.ManagerID)
	}
	if q.GroupID != nil {
		eq("group_id", *q.GroupID)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + s + "%"
		conds = append(conds, "(name LIKE ? OR surname LIKE ? OR email LIKE ? OR phone LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of orders plus the total count matching the
// same filter.
func (r *OrderRepo) List(ctx context.Context, q OrderQuery) ([]model.Order, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 25
	}
	where, args := buildFilter(q)

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[q.Sort]
	if !ok {
		col = "id"
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	query := "SELECT " + orderColumns + " FROM orders" + where +
		" ORDER BY `" + col + "` " + dir + " LIMIT ? OFFSET ?"
	pageArgs := append(args, q.Limit, (q.Page-1)*q.Limit)

	rows, err := r.DB.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// Update applies a partial patch and returns the updated row. An empty
// patch reads the row back without writing. sql.ErrNoRows is returned
// when the order does not exist.
func (r *OrderRepo) Update(ctx context.Context, id uint64, patch OrderPatch) (model.Order, error) {
	if len(patch) > 0 {
		sets := make([]string, 0, len(patch))
		args := make([]interface{}, 0, len(patch)+1)
		for _, f := range patch {
			sets = append(sets, "`"+f.Column+"`=?")
			args = append(args, f.Value)
		}
		args = append(args, id)
		res, err := r.DB.ExecContext(ctx,
			"UPDATE orders SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
		if err != nil {
			return model.Order{}, err
		}
		// RowsAffected is 0 both for a missing row and for a no-op
		// write, so existence is settled by the read-back below.
		_ = res
	}
	return r.GetByID(ctx, id)
}

// CountByStatus aggregates orders by status, optionally scoped to one
// manager. Orders with NULL status count toward Total only.
func (r *OrderRepo) CountByStatus(ctx context.Context, managerID *uint64) (model.StatusCounts, error) {
	query := "SELECT COUNT(*), " +
		"COALESCE(SUM(status=?),0), COALESCE(SUM(status=?),0), COALESCE(SUM(status=?),0), " +
		"COALESCE(SUM(status=?),0), COALESCE(SUM(status=?),0) FROM orders"
	args := []interface{}{model.StatusNew, model.StatusInWork, model.StatusAgree,
		model.StatusDisagree, model.StatusDubbing}
	if managerID != nil {
		query += " WHERE manager_id=?"
		args = append(args, *managerID)
	}
	var c model.StatusCounts
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(
		&c.Total, &c.New, &c.InWork, &c.Agree, &c.Disagree, &c.Dubbing)
	return c, err
}

// ManagerCounts returns per-manager status aggregations for every
// manager account, including managers with no assigned orders.
func (r *OrderRepo) ManagerCounts(ctx context.Context) ([]model.ManagerStatistics, error) {
	query := "SELECT u.id, u.email, u.first_name, u.last_name, " +
		"COUNT(o.id), " +
		"COALESCE(SUM(o.status=?),0), COALESCE(SUM(o.status=?),0), COALESCE(SUM(o.status=?),0), " +
		"COALESCE(SUM(o.status=?),0), COALESCE(SUM(o.status=?),0) " +
		"FROM users u LEFT JOIN orders o ON o.manager_id=u.id " +
		"WHERE u.role=? GROUP BY u.id, u.email, u.first_name, u.last_name ORDER BY u.id"
	rows, err := r.DB.QueryContext(ctx, query,
		model.StatusNew, model.StatusInWork, model.StatusAgree,
		model.StatusDisagree, model.StatusDubbing, model.RoleManager)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ManagerStatistics
	for rows.Next() {
		var m model.ManagerStatistics
		if err := rows.Scan(&m.ManagerID, &m.Email, &m.FirstName, &m.LastName,
			&m.Counts.Total, &m.Counts.New, &m.Counts.InWork,
			&m.Counts.Agree, &m.Counts.Disagree, &m.Counts.Dubbing); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
