package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockkeep/stockkeep/internal/platform/db"
	"github.com/stockkeep/stockkeep/internal/shared"
)

// Querier is the subset of pgx.Tx the tx-scoped helpers need. Sharing
// these helpers lets the sales and purchase repositories mutate
// balances inside their own transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// lockWait bounds the time an operation waits for a balance row lock
// before failing with shared.ErrBusy.
const lockWait = "3s"

// RunScoped executes fn inside one RepeatableRead transaction with the
// bounded lock wait applied. The sales and purchase repositories run
// their document postings through it as well.
func RunScoped(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	err := db.WithTx(ctx, pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%s'", lockWait)); err != nil {
			return fmt.Errorf("ledger: set lock timeout: %w", err)
		}
		return fn(tx)
	})
	// Serialization failures can also surface at commit time.
	return mapLockError(err)
}

// LockBalances acquires the exclusive scope for every key in sorted
// order and returns the current quantities. Keys without a balance row
// report zero; the row lock for them is taken on first write instead.
func LockBalances(ctx context.Context, q Querier, keys []BalanceKey) (map[BalanceKey]int64, error) {
	ordered := make([]BalanceKey, len(keys))
	copy(ordered, keys)
	SortKeys(ordered)

	balances := make(map[BalanceKey]int64, len(ordered))
	for _, key := range ordered {
		var qty int64
		err := q.QueryRow(ctx, `SELECT quantity FROM stock_balances WHERE product_id=$1 AND godown_id=$2 FOR UPDATE`,
			key.ProductID, key.GodownID).Scan(&qty)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				balances[key] = 0
				continue
			}
			return nil, mapLockError(err)
		}
		balances[key] = qty
	}
	return balances, nil
}

// ApplyDelta adjusts one balance by delta and returns the new row.
// The quantity guard in the UPDATE arm is a backstop; callers validate
// against locked balances first.
func ApplyDelta(ctx context.Context, q Querier, key BalanceKey, delta int64) (Balance, error) {
	var bal Balance
	err := q.QueryRow(ctx, `INSERT INTO stock_balances (product_id, godown_id, quantity, last_updated)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (product_id, godown_id) DO UPDATE
SET quantity = stock_balances.quantity + EXCLUDED.quantity, last_updated = NOW()
WHERE stock_balances.quantity + EXCLUDED.quantity >= 0
RETURNING product_id, godown_id, quantity, last_updated`,
		key.ProductID, key.GodownID, delta).
		Scan(&bal.ProductID, &bal.GodownID, &bal.Quantity, &bal.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, &InsufficientStockError{ProductID: key.ProductID, GodownID: key.GodownID, Requested: -delta}
		}
		if delta < 0 && isCheckViolation(err) {
			return Balance{}, &InsufficientStockError{ProductID: key.ProductID, GodownID: key.GodownID, Requested: -delta}
		}
		return Balance{}, mapLockError(err)
	}
	return bal, nil
}

// TxStore exposes the tx-scoped balance operations used by Service.
type TxStore interface {
	LockBalances(ctx context.Context, keys []BalanceKey) (map[BalanceKey]int64, error)
	ApplyDelta(ctx context.Context, key BalanceKey, delta int64) (Balance, error)
}

// RepositoryPort abstracts repository usage for Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	GetBalance(ctx context.Context, productID, godownID int64) (int64, error)
	ListByGodown(ctx context.Context, godownID int64) ([]GodownStock, error)
	ListByProduct(ctx context.Context, productID int64) ([]ProductStock, error)
}

// Repository persists stock balances in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) LockBalances(ctx context.Context, keys []BalanceKey) (map[BalanceKey]int64, error) {
	return LockBalances(ctx, s.tx, keys)
}

func (s *txStore) ApplyDelta(ctx context.Context, key BalanceKey, delta int64) (Balance, error) {
	return ApplyDelta(ctx, s.tx, key, delta)
}

// WithTx executes fn inside one exclusive-scope transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return RunScoped(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

// GetBalance reads one quantity without taking the exclusive scope.
func (r *Repository) GetBalance(ctx context.Context, productID, godownID int64) (int64, error) {
	var qty int64
	err := r.pool.QueryRow(ctx, `SELECT quantity FROM stock_balances WHERE product_id=$1 AND godown_id=$2`,
		productID, godownID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return qty, nil
}

func (r *Repository) ListByGodown(ctx context.Context, godownID int64) ([]GodownStock, error) {
	rows, err := r.pool.Query(ctx, `SELECT b.product_id, p.sku, p.name, b.quantity, b.last_updated
FROM stock_balances b JOIN products p ON p.id = b.product_id
WHERE b.godown_id = $1
ORDER BY p.name ASC`, godownID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stocks := []GodownStock{}
	for rows.Next() {
		var s GodownStock
		if err := rows.Scan(&s.ProductID, &s.SKU, &s.ProductName, &s.Quantity, &s.LastUpdated); err != nil {
			return nil, err
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

func (r *Repository) ListByProduct(ctx context.Context, productID int64) ([]ProductStock, error) {
	rows, err := r.pool.Query(ctx, `SELECT b.godown_id, g.code, g.name, b.quantity
FROM stock_balances b JOIN godowns g ON g.id = b.godown_id
WHERE b.product_id = $1
ORDER BY g.code ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stocks := []ProductStock{}
	for rows.Next() {
		var s ProductStock
		if err := rows.Scan(&s.GodownID, &s.GodownCode, &s.GodownName, &s.Quantity); err != nil {
			return nil, err
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// mapLockError converts the two SQLSTATEs a contended posting can raise
// into the retryable ErrBusy class: 55P03 when the bounded lock wait
// expires, 40001 when RepeatableRead detects that a row we waited on was
// rewritten by a committed transaction.
func mapLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return fmt.Errorf("ledger: lock wait exceeded %s: %w", lockWait, shared.ErrBusy)
		case "40001":
			return fmt.Errorf("ledger: serialization conflict: %w", shared.ErrBusy)
		}
	}
	return err
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}
