package sales

import "time"

// PaymentStatus of a sale invoice. The only supported flow records the
// invoice as fully paid at creation.
type PaymentStatus string

const PaymentStatusPaid PaymentStatus = "paid"

// Customer is a snapshot embedded in the invoice at posting time.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	GSTIN string `json:"gstin"`
}

// LineItem is one product line of a sale. GSTPercent is copied from
// the product when the invoice is posted.
type LineItem struct {
	ProductID  int64   `json:"productId"`
	Quantity   int64   `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	GSTPercent float64 `json:"gstPercent"`
	GSTAmount  float64 `json:"gstAmount"`
	LineTotal  float64 `json:"lineTotal"`
}

// Sale is an immutable invoice. Posting one decrements stock balances
// at the invoice's godown; availability is checked against that same
// godown under the locks that cover the decrement.
type Sale struct {
	ID            int64         `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	Customer      Customer      `json:"customer"`
	GodownID      int64         `json:"godownId"`
	Date          time.Time     `json:"date"`
	Items         []LineItem    `json:"items"`
	Subtotal      float64       `json:"subtotal"`
	CGST          float64       `json:"cgst"`
	SGST          float64       `json:"sgst"`
	TotalAmount   float64       `json:"totalAmount"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	PaidAmount    float64       `json:"paidAmount"`
	CreatedBy     int64         `json:"createdBy"`
	CreatedAt     time.Time     `json:"createdAt"`
}
