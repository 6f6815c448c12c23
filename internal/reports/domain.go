package reports

import "time"

// LowStockItem flags a product whose total stock across all godowns is
// at or below its threshold.
type LowStockItem struct {
	ProductID  int64  `json:"productId"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	TotalStock int64  `json:"totalStock"`
	Threshold  int64  `json:"threshold"`
}

// GodownSales aggregates sale invoices per godown. Average is zero
// when no invoices exist, never a division by zero.
type GodownSales struct {
	GodownID      int64   `json:"godownId"`
	GodownCode    string  `json:"godownCode"`
	GodownName    string  `json:"godownName"`
	InvoiceCount  int64   `json:"invoiceCount"`
	TotalQuantity int64   `json:"totalQuantity"`
	TotalAmount   float64 `json:"totalAmount"`
	AverageAmount float64 `json:"averageAmount"`
}

// ProductSales aggregates sold line items per product.
type ProductSales struct {
	ProductID     int64   `json:"productId"`
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	InvoiceCount  int64   `json:"invoiceCount"`
	TotalQuantity int64   `json:"totalQuantity"`
	TotalAmount   float64 `json:"totalAmount"`
	AverageAmount float64 `json:"averageAmount"`
}

// SalesFilter is a conjunctive filter over sale history. Date bounds
// are inclusive; zero values mean unbounded.
type SalesFilter struct {
	GodownID  int64
	ProductID int64
	From      time.Time
	To        time.Time
}

// SaleRow is one filtered invoice.
type SaleRow struct {
	ID            int64     `json:"id"`
	InvoiceNumber string    `json:"invoiceNumber"`
	CustomerName  string    `json:"customerName"`
	GodownID      int64     `json:"godownId"`
	Date          time.Time `json:"date"`
	TotalAmount   float64   `json:"totalAmount"`
}

// SalesTotals summarises a filtered result set.
type SalesTotals struct {
	InvoiceCount  int64   `json:"invoiceCount"`
	TotalAmount   float64 `json:"totalAmount"`
	AverageAmount float64 `json:"averageAmount"`
}

// Overview is the dashboard payload.
type Overview struct {
	Summary  Summary        `json:"summary"`
	LowStock []LowStockItem `json:"lowStock"`
}

// Summary backs the dashboard: entity counts and revenue/cost totals.
type Summary struct {
	GodownCount   int64   `json:"godownCount"`
	ProductCount  int64   `json:"productCount"`
	SaleCount     int64   `json:"saleCount"`
	PurchaseCount int64   `json:"purchaseCount"`
	SalesRevenue  float64 `json:"salesRevenue"`
	PurchaseCost  float64 `json:"purchaseCost"`
	LowStockCount int64   `json:"lowStockCount"`
}
