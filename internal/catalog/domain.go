package catalog

import "time"

// Product is a catalog master record. Prices and the low stock
// threshold are editable; identity fields are fixed after creation.
type Product struct {
	ID                int64     `json:"id"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	Brand             string    `json:"brand"`
	PurchasePrice     float64   `json:"purchasePrice"`
	SellingPrice      float64   `json:"sellingPrice"`
	GSTPercent        float64   `json:"gstPercent"`
	HSNCode           string    `json:"hsnCode"`
	LowStockThreshold int64     `json:"lowStockThreshold"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Godown is a warehouse location.
type Godown struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Pincode   string    `json:"pincode"`
	Manager   string    `json:"manager"`
	Contact   string    `json:"contact"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}
