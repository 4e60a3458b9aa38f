package orders

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
)

// Repository defines persistence operations for orders.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Order, int, error)
	Get(ctx context.Context, id int64) (Order, error)
	UpdateStatus(ctx context.Context, id int64, from, to string) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the postgres-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const orderColumns = `o.id, o.reference, o.user_id, u.name, u.email, o.status, o.subtotal, o.shipping, o.total, o.address, o.placed_at, o.updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Order, int, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o JOIN users u ON u.id = o.user_id WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM orders o JOIN users u ON u.id = o.user_id WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Status != "" {
		argCount++
		clause := ` AND o.status = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filters.Status)
	}
	if filters.Search != "" {
		argCount++
		clause := ` AND (o.reference ILIKE $` + strconv.Itoa(argCount) + ` OR u.name ILIKE $` + strconv.Itoa(argCount) + ` OR u.email ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY o.placed_at DESC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, o)
	}
	return list, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o JOIN users u ON u.id = o.user_id WHERE o.id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, shared.ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}

	rows, err := r.db.Query(ctx, `SELECT id, order_id, product_id, name, sku, unit_price, quantity FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.SKU, &it.UnitPrice, &it.Quantity); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

// UpdateStatus moves an order to a new status only if it is still in the
// expected one. Returns false when the row was not in that status, which
// covers both missing orders and concurrent updates.
func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to string) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Reference, &o.UserID, &o.CustomerName, &o.CustomerEmail, &o.Status, &o.Subtotal, &o.Shipping, &o.Total, &o.Address, &o.PlacedAt, &o.UpdatedAt)
	return o, err
}
