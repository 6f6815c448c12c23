package purchases

import "time"

// PaymentStatus of a purchase document.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
)

// Supplier is a snapshot embedded in the purchase at posting time.
type Supplier struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	GSTIN string `json:"gstin"`
}

// LineItem is one product line of a purchase. GSTPercent is copied
// from the product when the document is posted, not live-linked.
type LineItem struct {
	ProductID  int64   `json:"productId"`
	Quantity   int64   `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	GSTPercent float64 `json:"gstPercent"`
	GSTAmount  float64 `json:"gstAmount"`
	LineTotal  float64 `json:"lineTotal"`
}

// Purchase is an immutable goods-inward document. Posting one
// increments the stock balance at the receiving godown per line.
type Purchase struct {
	ID             int64         `json:"id"`
	PurchaseNumber string        `json:"purchaseNumber"`
	Supplier       Supplier      `json:"supplier"`
	GodownID       int64         `json:"godownId"`
	Date           time.Time     `json:"date"`
	Items          []LineItem    `json:"items"`
	Subtotal       float64       `json:"subtotal"`
	CGST           float64       `json:"cgst"`
	SGST           float64       `json:"sgst"`
	TotalAmount    float64       `json:"totalAmount"`
	PaymentStatus  PaymentStatus `json:"paymentStatus"`
	CreatedBy      int64         `json:"createdBy"`
	CreatedAt      time.Time     `json:"createdAt"`
}
