package purchases

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks whether a purchase has been settled with the supplier.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
)

// Purchase is one buy-side document against a supplier. Unlike estimates
// there is no conversion step; purchases stay editable for their whole life.
type Purchase struct {
	ID                 int64           `json:"id"`
	OwnerAccountID     int64           `json:"-"`
	SupplierID         int64           `json:"supplierId"`
	CreatedBySubuserID *int64          `json:"createdBySubuserId,omitempty"`
	PurchaseDate       time.Time       `json:"purchaseDate"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	TaxPercentage      decimal.Decimal `json:"taxPercentage"`
	TaxAmount          decimal.Decimal `json:"taxAmount"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	PaymentStatus      PaymentStatus   `json:"paymentStatus"`
	AttachmentKey      *string         `json:"attachmentKey,omitempty"`
	Notes              *string         `json:"notes,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	Items              []PurchaseItem  `json:"items,omitempty"`
}

// PurchaseItem is one line of a purchase. Flagged lines feed the stock merge
// rule; the merge is never reversed, not even when the purchase is deleted.
type PurchaseItem struct {
	ID             int64           `json:"id"`
	PurchaseID     int64           `json:"purchaseId"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Amount         decimal.Decimal `json:"amount"`
	AddToInventory bool            `json:"addToInventory"`
}

// BillAttachment is the opaque supplier bill stored against a purchase. The
// bytes are kept as-is; no parsing or thumbnailing happens server-side.
type BillAttachment struct {
	Key         string    `json:"key"`
	PurchaseID  int64     `json:"purchaseId"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Data        []byte    `json:"-"`
	UploadedAt  time.Time `json:"uploadedAt"`
}
