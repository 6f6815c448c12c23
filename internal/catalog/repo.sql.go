package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockkeep/stockkeep/internal/shared"
)

// Repository persists catalog master data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RepositoryPort abstracts repository usage for the service and for
// the transaction engine's reference checks.
type RepositoryPort interface {
	InsertProduct(ctx context.Context, p Product) (Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	InsertGodown(ctx context.Context, g Godown) (Godown, error)
	GetGodown(ctx context.Context, id int64) (Godown, error)
	ListGodowns(ctx context.Context) ([]Godown, error)
}

func (r *Repository) InsertProduct(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products (sku, name, category, brand, purchase_price, selling_price, gst_percent, hsn_code, low_stock_threshold, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW()) RETURNING id, created_at`,
		p.SKU, p.Name, p.Category, p.Brand, p.PurchasePrice, p.SellingPrice, p.GSTPercent, p.HSNCode, p.LowStockThreshold).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, fmt.Errorf("catalog: sku %s: %w", p.SKU, shared.ErrDuplicate)
		}
		return Product{}, err
	}
	return p, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT id, sku, name, category, brand, purchase_price, selling_price, gst_percent, hsn_code, low_stock_threshold, created_at
FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Brand, &p.PurchasePrice, &p.SellingPrice, &p.GSTPercent, &p.HSNCode, &p.LowStockThreshold, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("catalog: product %d: %w", id, shared.ErrNotFound)
		}
		return Product{}, err
	}
	return p, nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, sku, name, category, brand, purchase_price, selling_price, gst_percent, hsn_code, low_stock_threshold, created_at
FROM products ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Brand, &p.PurchasePrice, &p.SellingPrice, &p.GSTPercent, &p.HSNCode, &p.LowStockThreshold, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *Repository) InsertGodown(ctx context.Context, g Godown) (Godown, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO godowns (code, name, address, city, state, pincode, manager, contact, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW()) RETURNING id, created_at`,
		g.Code, g.Name, g.Address, g.City, g.State, g.Pincode, g.Manager, g.Contact, g.IsActive).
		Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Godown{}, fmt.Errorf("catalog: godown code %s: %w", g.Code, shared.ErrDuplicate)
		}
		return Godown{}, err
	}
	return g, nil
}

func (r *Repository) GetGodown(ctx context.Context, id int64) (Godown, error) {
	var g Godown
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, address, city, state, pincode, manager, contact, is_active, created_at
FROM godowns WHERE id=$1`, id).
		Scan(&g.ID, &g.Code, &g.Name, &g.Address, &g.City, &g.State, &g.Pincode, &g.Manager, &g.Contact, &g.IsActive, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Godown{}, fmt.Errorf("catalog: godown %d: %w", id, shared.ErrNotFound)
		}
		return Godown{}, err
	}
	return g, nil
}

func (r *Repository) ListGodowns(ctx context.Context) ([]Godown, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, address, city, state, pincode, manager, contact, is_active, created_at
FROM godowns ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	godowns := []Godown{}
	for rows.Next() {
		var g Godown
		if err := rows.Scan(&g.ID, &g.Code, &g.Name, &g.Address, &g.City, &g.State, &g.Pincode, &g.Manager, &g.Contact, &g.IsActive, &g.CreatedAt); err != nil {
			return nil, err
		}
		godowns = append(godowns, g)
	}
	return godowns, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
