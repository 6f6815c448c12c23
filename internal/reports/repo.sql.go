package reports

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the report queries against PostgreSQL. Reads take no
// balance locks; aggregates are advisory snapshots.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) LowStock(ctx context.Context) ([]LowStockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.sku, p.name, COALESCE(SUM(b.quantity), 0) AS total_stock, p.low_stock_threshold
FROM products p
LEFT JOIN stock_balances b ON b.product_id = p.id
GROUP BY p.id, p.sku, p.name, p.low_stock_threshold
HAVING COALESCE(SUM(b.quantity), 0) <= p.low_stock_threshold
ORDER BY total_stock ASC, p.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LowStockItem{}
	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ProductID, &item.SKU, &item.Name, &item.TotalStock, &item.Threshold); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) SalesByGodown(ctx context.Context) ([]GodownSales, error) {
	rows, err := r.pool.Query(ctx, `SELECT g.id, g.code, g.name,
	COUNT(s.id) AS invoice_count,
	COALESCE((SELECT SUM(l.quantity) FROM sale_lines l JOIN sales s2 ON s2.id = l.sale_id WHERE s2.godown_id = g.id), 0) AS total_quantity,
	COALESCE(SUM(s.total_amount), 0) AS total_amount
FROM godowns g
LEFT JOIN sales s ON s.godown_id = g.id
GROUP BY g.id, g.code, g.name
ORDER BY g.code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []GodownSales{}
	for rows.Next() {
		var gs GodownSales
		if err := rows.Scan(&gs.GodownID, &gs.GodownCode, &gs.GodownName, &gs.InvoiceCount, &gs.TotalQuantity, &gs.TotalAmount); err != nil {
			return nil, err
		}
		if gs.InvoiceCount > 0 {
			gs.AverageAmount = gs.TotalAmount / float64(gs.InvoiceCount)
		}
		result = append(result, gs)
	}
	return result, rows.Err()
}

func (r *Repository) SalesByProduct(ctx context.Context) ([]ProductSales, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.sku, p.name,
	COUNT(DISTINCT l.sale_id) AS invoice_count,
	COALESCE(SUM(l.quantity), 0) AS total_quantity,
	COALESCE(SUM(l.line_total), 0) AS total_amount
FROM products p
LEFT JOIN sale_lines l ON l.product_id = p.id
GROUP BY p.id, p.sku, p.name
ORDER BY p.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []ProductSales{}
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.SKU, &ps.Name, &ps.InvoiceCount, &ps.TotalQuantity, &ps.TotalAmount); err != nil {
			return nil, err
		}
		if ps.InvoiceCount > 0 {
			ps.AverageAmount = ps.TotalAmount / float64(ps.InvoiceCount)
		}
		result = append(result, ps)
	}
	return result, rows.Err()
}

func (r *Repository) FilteredSales(ctx context.Context, filter SalesFilter) ([]SaleRow, SalesTotals, error) {
	query := `SELECT DISTINCT s.id, s.invoice_number, s.customer->>'name', s.godown_id, s.date, s.total_amount
FROM sales s`
	args := []any{}
	argCount := 0

	if filter.ProductID != 0 {
		query += ` JOIN sale_lines l ON l.sale_id = s.id`
	}
	query += ` WHERE 1=1`
	if filter.GodownID != 0 {
		argCount++
		query += ` AND s.godown_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.GodownID)
	}
	if filter.ProductID != 0 {
		argCount++
		query += ` AND l.product_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.ProductID)
	}
	if !filter.From.IsZero() {
		argCount++
		query += ` AND s.date >= $` + strconv.Itoa(argCount)
		args = append(args, startOfDay(filter.From))
	}
	if !filter.To.IsZero() {
		argCount++
		query += ` AND s.date < $` + strconv.Itoa(argCount)
		args = append(args, startOfDay(filter.To).AddDate(0, 0, 1))
	}
	query += ` ORDER BY s.date DESC, s.id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, SalesTotals{}, err
	}
	defer rows.Close()

	result := []SaleRow{}
	var totals SalesTotals
	for rows.Next() {
		var row SaleRow
		if err := rows.Scan(&row.ID, &row.InvoiceNumber, &row.CustomerName, &row.GodownID, &row.Date, &row.TotalAmount); err != nil {
			return nil, SalesTotals{}, err
		}
		result = append(result, row)
		totals.InvoiceCount++
		totals.TotalAmount += row.TotalAmount
	}
	if err := rows.Err(); err != nil {
		return nil, SalesTotals{}, err
	}
	if totals.InvoiceCount > 0 {
		totals.AverageAmount = totals.TotalAmount / float64(totals.InvoiceCount)
	}
	return result, totals, nil
}

func (r *Repository) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `SELECT
	(SELECT COUNT(*) FROM godowns),
	(SELECT COUNT(*) FROM products),
	(SELECT COUNT(*) FROM sales),
	(SELECT COUNT(*) FROM purchases),
	(SELECT COALESCE(SUM(total_amount), 0) FROM sales),
	(SELECT COALESCE(SUM(total_amount), 0) FROM purchases),
	(SELECT COUNT(*) FROM (
		SELECT p.id FROM products p
		LEFT JOIN stock_balances b ON b.product_id = p.id
		GROUP BY p.id, p.low_stock_threshold
		HAVING COALESCE(SUM(b.quantity), 0) <= p.low_stock_threshold
	) low)`).
		Scan(&s.GodownCount, &s.ProductCount, &s.SaleCount, &s.PurchaseCount, &s.SalesRevenue, &s.PurchaseCost, &s.LowStockCount)
	return s, err
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
