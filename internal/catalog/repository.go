package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
)

// ErrDuplicateSlug is returned when the slug or SKU is already taken.
var ErrDuplicateSlug = errors.New("catalog: slug or sku already in use")

// Repository defines persistence operations for the catalog.
type Repository interface {
	List(ctx context.Context, filters ListFilters, lowStock int) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id int64, p Product) error
	Delete(ctx context.Context, id int64) error
	BulkSetStock(ctx context.Context, ids []int64, level int) (int64, error)
	BulkAddStock(ctx context.Context, ids []int64, delta int) (int64, error)
	BulkDelete(ctx context.Context, ids []int64) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the postgres-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const productColumns = `id, sku, slug, name, description, brand, category, mrp, selling_price, stock, image, tags, show_on_home, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters, lowStock int) ([]Product, int, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR sku ILIKE $` + strconv.Itoa(argCount) + ` OR brand ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
	}
	switch filters.Stock {
	case "outofstock":
		query += ` AND stock = 0`
		countQuery += ` AND stock = 0`
	case "lowstock":
		argCount++
		clause := ` AND stock > 0 AND stock <= $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, lowStock)
	case "instock":
		query += ` AND stock > 0`
		countQuery += ` AND stock > 0`
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
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

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1 AND id <> $2)`, slug, excludeID).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, p Product) (Product, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO products (sku, slug, name, description, brand, category, mrp, selling_price, stock, image, tags, show_on_home, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14) RETURNING id`,
		p.SKU, p.Slug, p.Name, p.Description, p.Brand, p.Category, p.MRP, p.SellingPrice, p.Stock, p.Image, p.Tags, p.ShowOnHome, p.IsActive, now).Scan(&p.ID)
	if err != nil {
		return Product{}, mapConstraintErr(err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *repository) Update(ctx context.Context, id int64, p Product) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET sku = $1, slug = $2, name = $3, description = $4, brand = $5, category = $6, mrp = $7, selling_price = $8, stock = $9, image = $10, tags = $11, show_on_home = $12, is_active = $13, updated_at = NOW() WHERE id = $14`,
		p.SKU, p.Slug, p.Name, p.Description, p.Brand, p.Category, p.MRP, p.SellingPrice, p.Stock, p.Image, p.Tags, p.ShowOnHome, p.IsActive, id)
	if err != nil {
		return mapConstraintErr(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) BulkSetStock(ctx context.Context, ids []int64, level int) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE products SET stock = $1, updated_at = NOW() WHERE id = ANY($2)`, level, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) BulkAddStock(ctx context.Context, ids []int64, delta int) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE products SET stock = GREATEST(stock + $1, 0), updated_at = NOW() WHERE id = ANY($2)`, delta, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Slug, &p.Name, &p.Description, &p.Brand, &p.Category, &p.MRP, &p.SellingPrice, &p.Stock, &p.Image, &p.Tags, &p.ShowOnHome, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// mapConstraintErr converts a unique violation into ErrDuplicateSlug.
func mapConstraintErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSlug
	}
	return err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "sku":
		return "sku " + dir
	case "price":
		return "selling_price " + dir
	case "stock":
		return "stock " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
