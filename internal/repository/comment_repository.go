package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/okten/crm-api/internal/model"
)

// CommentRepo implements CommentStore. Comment creation and the order
// claim it may trigger happen in one transaction so a crash cannot
// leave a comment on an order that was never claimed.
type CommentRepo struct{ DB *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{DB: db} }

// CommentDetail is a comment joined with its author's public fields,
// as returned by the list endpoint.
type CommentDetail struct {
	ID              uint64    `json:"id"`
	Message         string    `json:"message"`
	OrderID         uint64    `json:"order_id"`
	UserID          uint64    `json:"user_id"`
	AuthorFirstName string    `json:"author_first_name"`
	AuthorLastName  string    `json:"author_last_name"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateWithClaim inserts a comment and applies the claim rule: when
// the order has no manager the author becomes its manager, and a
// NULL/"New" status moves to "In work". The order row is locked for
// the duration of the transaction so concurrent first comments cannot
// both claim. Fails with sql.ErrNoRows for a missing order and
// ErrForbidden when a different manager already owns the order.
func (r *CommentRepo) CreateWithClaim(ctx context.Context, orderID, authorID uint64, message string) (model.Comment, model.Order, bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Comment{}, model.Order{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		managerID sql.NullInt64
		status    sql.NullString
	)
	err = tx.QueryRowContext(ctx,
		"SELECT manager_id, status FROM orders WHERE id=? FOR UPDATE", orderID).
		Scan(&managerID, &status)
	if err != nil {
		return model.Comment{}, model.Order{}, false, err
	}
	if managerID.Valid && uint64(managerID.Int64) != authorID {
		return model.Comment{}, model.Order{}, false, ErrForbidden
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO comments (message, order_id, user_id) VALUES (?,?,?)",
		message, orderID, authorID)
	if err != nil {
		return model.Comment{}, model.Order{}, false, err
	}
	cid, err := res.LastInsertId()
	if err != nil {
		return model.Comment{}, model.Order{}, false, err
	}

	claimed := !managerID.Valid
	// The "In work" transition fires at most once: only from an empty
	// or "New" status. A manually set status is never overwritten.
	transition := !status.Valid || status.String == model.StatusNew
	if claimed || transition {
		sets := ""
		args := []interface{}{}
		if claimed {
			sets = "manager_id=?"
			args = append(args, authorID)
		}
		if transition {
			if sets != "" {
				sets += ", "
			}
			sets += "status=?"
			args = append(args, model.StatusInWork)
		}
		args = append(args, orderID)
		if _, err := tx.ExecContext(ctx, "UPDATE orders SET "+sets+" WHERE id=?", args...); err != nil {
			return model.Comment{}, model.Order{}, false, err
		}
	}

	order, err := scanOrder(tx.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id=? LIMIT 1", orderID))
	if err != nil {
		return model.Comment{}, model.Order{}, false, err
	}

	var comment model.Comment
	err = tx.QueryRowContext(ctx,
		"SELECT id, message, order_id, user_id, created_at FROM comments WHERE id=? LIMIT 1",
		uint64(cid)).Scan(&comment.ID, &comment.Message, &comment.OrderID, &comment.UserID, &comment.CreatedAt)
	if err != nil {
		return model.Comment{}, model.Order{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return model.Comment{}, model.Order{}, false, err
	}
	return comment, order, claimed, nil
}

// ListAll returns every comment with author names, newest first.
func (r *CommentRepo) ListAll(ctx context.Context) ([]CommentDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT c.id, c.message, c.order_id, c.user_id, u.first_name, u.last_name, c.created_at "+
			"FROM comments c JOIN users u ON u.id=c.user_id ORDER BY c.created_at DESC, c.id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CommentDetail
	for rows.Next() {
		var d CommentDetail
		if err := rows.Scan(&d.ID, &d.Message, &d.OrderID, &d.UserID,
			&d.AuthorFirstName, &d.AuthorLastName, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
