package purchases

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

// Repository persists purchases in PostgreSQL.
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
	return sequence.Next(ctx, r.tx, sequence.DocTypePurchase, year)
}

func (r *txRepository) LockBalances(ctx context.Context, keys []ledger.BalanceKey) (map[ledger.BalanceKey]int64, error) {
	return ledger.LockBalances(ctx, r.tx, keys)
}

func (r *txRepository) ApplyDelta(ctx context.Context, key ledger.BalanceKey, delta int64) (ledger.Balance, error) {
	return ledger.ApplyDelta(ctx, r.tx, key, delta)
}

func (r *txRepository) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	supplier, err := json.Marshal(p.Supplier)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.tx.QueryRow(ctx, `INSERT INTO purchases (purchase_number, supplier, godown_id, date, subtotal, cgst, sgst, total_amount, payment_status, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW()) RETURNING id`,
		p.PurchaseNumber, supplier, p.GodownID, p.Date, p.Subtotal, p.CGST, p.SGST, p.TotalAmount, string(p.PaymentStatus), nullInt(p.CreatedBy)).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("purchases: number %s already claimed: %w", p.PurchaseNumber, shared.ErrSequenceConflict)
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertLines(ctx context.Context, purchaseID int64, items []LineItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO purchase_lines (purchase_id, product_id, quantity, unit_price, gst_percent, gst_amount, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			purchaseID, item.ProductID, item.Quantity, item.UnitPrice, item.GSTPercent, item.GSTAmount, item.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

// Get fetches one purchase with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Purchase, error) {
	var (
		p        Purchase
		supplier []byte
		status   string
	)
	err := r.pool.QueryRow(ctx, `SELECT id, purchase_number, supplier, godown_id, date, subtotal, cgst, sgst, total_amount, payment_status, COALESCE(created_by, 0), created_at
FROM purchases WHERE id=$1`, id).
		Scan(&p.ID, &p.PurchaseNumber, &supplier, &p.GodownID, &p.Date, &p.Subtotal, &p.CGST, &p.SGST, &p.TotalAmount, &status, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, fmt.Errorf("purchases: %d: %w", id, shared.ErrNotFound)
		}
		return Purchase{}, err
	}
	if err := json.Unmarshal(supplier, &p.Supplier); err != nil {
		return Purchase{}, err
	}
	p.PaymentStatus = PaymentStatus(status)
	p.Items, err = r.lines(ctx, p.ID)
	return p, err
}

// List returns purchases newest first, lines included.
func (r *Repository) List(ctx context.Context) ([]Purchase, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, purchase_number, supplier, godown_id, date, subtotal, cgst, sgst, total_amount, payment_status, COALESCE(created_by, 0), created_at
FROM purchases ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := []Purchase{}
	for rows.Next() {
		var (
			p        Purchase
			supplier []byte
			status   string
		)
		if err := rows.Scan(&p.ID, &p.PurchaseNumber, &supplier, &p.GodownID, &p.Date, &p.Subtotal, &p.CGST, &p.SGST, &p.TotalAmount, &status, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(supplier, &p.Supplier); err != nil {
			return nil, err
		}
		p.PaymentStatus = PaymentStatus(status)
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range purchases {
		if purchases[i].Items, err = r.lines(ctx, purchases[i].ID); err != nil {
			return nil, err
		}
	}
	return purchases, nil
}

func (r *Repository) lines(ctx context.Context, purchaseID int64) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, quantity, unit_price, gst_percent, gst_amount, line_total
FROM purchase_lines WHERE purchase_id=$1 ORDER BY id ASC`, purchaseID)
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
