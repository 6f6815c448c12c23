package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockkeep/stockkeep/internal/ledger"
	"github.com/stockkeep/stockkeep/internal/sequence"
	"github.com/stockkeep/stockkeep/internal/shared"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside one bounded-wait transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return ledger.RunScoped(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) NextNumber(ctx context.Context, year int) (string, error) {
	return sequence.Next(ctx, r.tx, sequence.DocTypeSale, year)
}

func (r *txRepository) LockBalances(ctx context.Context, keys []ledger.BalanceKey) (map[ledger.BalanceKey]int64, error) {
	return ledger.LockBalances(ctx, r.tx, keys)
}

func (r *txRepository) ApplyDelta(ctx context.Context, key ledger.BalanceKey, delta int64) (ledger.Balance, error) {
	return ledger.ApplyDelta(ctx, r.tx, key, delta)
}

func (r *txRepository) InsertSale(ctx context.Context, s Sale) (int64, error) {
	customer, err := json.Marshal(s.Customer)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.tx.QueryRow(ctx, `INSERT INTO sales (invoice_number, customer, godown_id, date, subtotal, cgst, sgst, total_amount, payment_status, paid_amount, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW()) RETURNING id`,
		s.InvoiceNumber, customer, s.GodownID, s.Date, s.Subtotal, s.CGST, s.SGST, s.TotalAmount, string(s.PaymentStatus), s.PaidAmount, nullInt(s.CreatedBy)).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("sales: number %s already claimed: %w", s.InvoiceNumber, shared.ErrSequenceConflict)
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertLines(ctx context.Context, saleID int64, items []LineItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO sale_lines (sale_id, product_id, quantity, unit_price, gst_percent, gst_amount, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			saleID, item.ProductID, item.Quantity, item.UnitPrice, item.GSTPercent, item.GSTAmount, item.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

// Get fetches one sale with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Sale, error) {
	var (
		s        Sale
		customer []byte
		status   string
	)
	err := r.pool.QueryRow(ctx, `SELECT id, invoice_number, customer, godown_id, date, subtotal, cgst, sgst, total_amount, payment_status, paid_amount, COALESCE(created_by, 0), created_at
FROM sales WHERE id=$1`, id).
		Scan(&s.ID, &s.InvoiceNumber, &customer, &s.GodownID, &s.Date, &s.Subtotal, &s.CGST, &s.SGST, &s.TotalAmount, &status, &s.PaidAmount, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, fmt.Errorf("sales: %d: %w", id, shared.ErrNotFound)
		}
		return Sale{}, err
	}
	if err := json.Unmarshal(customer, &s.Customer); err != nil {
		return Sale{}, err
	}
	s.PaymentStatus = PaymentStatus(status)
	s.Items, err = r.lines(ctx, s.ID)
	return s, err
}

// List returns sales newest first, lines included.
func (r *Repository) List(ctx context.Context) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_number, customer, godown_id, date, subtotal, cgst, sgst, total_amount, payment_status, paid_amount, COALESCE(created_by, 0), created_at
FROM sales ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []Sale{}
	for rows.Next() {
		var (
			s        Sale
			customer []byte
			status   string
		)
		if err := rows.Scan(&s.ID, &s.InvoiceNumber, &customer, &s.GodownID, &s.Date, &s.Subtotal, &s.CGST, &s.SGST, &s.TotalAmount, &status, &s.PaidAmount, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(customer, &s.Customer); err != nil {
			return nil, err
		}
		s.PaymentStatus = PaymentStatus(status)
		invoices = append(invoices, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range invoices {
		if invoices[i].Items, err = r.lines(ctx, invoices[i].ID); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

func (r *Repository) lines(ctx context.Context, saleID int64) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, quantity, unit_price, gst_percent, gst_amount, line_total
FROM sale_lines WHERE sale_id=$1 ORDER BY id ASC`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LineItem{}
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice, &item.GSTPercent, &item.GSTAmount, &item.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
