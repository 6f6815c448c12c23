package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/stockkeep/stockkeep/internal/shared"
)

// Balance is the authoritative stock quantity for one (product, godown)
// pair. Absence of a row is equivalent to a zero balance. Quantity is
// never negative; the transaction engine validates before any decrement.
type Balance struct {
	ProductID   int64     `json:"productId"`
	GodownID    int64     `json:"godownId"`
	Quantity    int64     `json:"quantity"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// BalanceKey identifies a serialization unit. All read-then-write
// sequences touching the same key execute under its exclusive scope.
type BalanceKey struct {
	ProductID int64
	GodownID  int64
}

// SortKeys orders keys by product then godown. Multi-key operations
// always lock in this order regardless of direction, so two transfers
// between the same pair of godowns cannot deadlock.
func SortKeys(keys []BalanceKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ProductID != keys[j].ProductID {
			return keys[i].ProductID < keys[j].ProductID
		}
		return keys[i].GodownID < keys[j].GodownID
	})
}

// GodownStock is one row of a per-godown stock listing.
type GodownStock struct {
	ProductID   int64     `json:"productId"`
	SKU         string    `json:"sku"`
	ProductName string    `json:"productName"`
	Quantity    int64     `json:"quantity"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ProductStock is one row of a per-product stock listing.
type ProductStock struct {
	GodownID   int64  `json:"godownId"`
	GodownCode string `json:"godownCode"`
	GodownName string `json:"godownName"`
	Quantity   int64  `json:"quantity"`
}

// InsufficientStockError reports a movement that would drive a balance
// negative. It carries the requested and available quantities verbatim;
// callers must never clamp silently.
type InsufficientStockError struct {
	ProductID int64
	GodownID  int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d in godown %d: requested %d, available %d",
		e.ProductID, e.GodownID, e.Requested, e.Available)
}

// Unwrap lets errors.Is match the shared sentinel.
func (e *InsufficientStockError) Unwrap() error {
	return shared.ErrInsufficientStock
}
