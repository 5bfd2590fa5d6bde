package billing

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// EstimateLineRequest is one line in a create/update payload. Quantities and
// prices arrive as JSON numbers and are converted to decimals server-side.
type EstimateLineRequest struct {
	Description     string  `json:"description" validate:"required,max=500"`
	Quantity        float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice       float64 `json:"unitPrice" validate:"gte=0"`
	InventoryItemID *int64  `json:"inventoryItemId,omitempty" validate:"omitempty,gt=0"`
}

// CreateEstimateRequest creates an estimate with its full item set.
type CreateEstimateRequest struct {
	CustomerName        string                `json:"customerName" validate:"required,max=200"`
	CustomerContact     string                `json:"customerContact" validate:"max=100"`
	IssueDate           time.Time             `json:"issueDate" validate:"required"`
	DiscountPercentage  float64               `json:"discountPercentage" validate:"gte=0,lte=100"`
	TaxPercentage       float64               `json:"taxPercentage" validate:"gte=0,lte=100"`
	PaymentType         string                `json:"paymentType" validate:"required,oneof=cash card upi credit"`
	ExpectedPaymentDate *time.Time            `json:"expectedPaymentDate,omitempty"`
	Notes               *string               `json:"notes,omitempty"`
	Items               []EstimateLineRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateEstimateRequest patches header fields and replaces the item set
// wholesale. Nil header fields keep their stored value.
type UpdateEstimateRequest struct {
	CustomerName        *string               `json:"customerName,omitempty" validate:"omitempty,min=1,max=200"`
	CustomerContact     *string               `json:"customerContact,omitempty" validate:"omitempty,max=100"`
	IssueDate           *time.Time            `json:"issueDate,omitempty"`
	DiscountPercentage  *float64              `json:"discountPercentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	TaxPercentage       *float64              `json:"taxPercentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	ExpectedPaymentDate *time.Time            `json:"expectedPaymentDate,omitempty"`
	Notes               *string               `json:"notes,omitempty"`
	Items               []EstimateLineRequest `json:"items" validate:"required,min=1,dive"`
}

// RecordPaymentRequest appends one partial payment to a credit estimate.
type RecordPaymentRequest struct {
	Amount      float64   `json:"amount" validate:"required,gt=0"`
	PaymentDate time.Time `json:"paymentDate" validate:"required"`
	Mode        string    `json:"mode" validate:"required,oneof=cash card upi"`
	Notes       *string   `json:"notes,omitempty"`
}

// MarkPaidRequest settles a credit estimate in one shot without ledger entries.
type MarkPaidRequest struct {
	ReceivedDate time.Time `json:"receivedDate" validate:"required"`
	Mode         string    `json:"mode" validate:"required,oneof=cash card upi"`
}

// ListEstimatesRequest filters the estimates listing.
type ListEstimatesRequest struct {
	PaymentType *string `json:"paymentType,omitempty" validate:"omitempty,oneof=cash card upi credit"`
	Query       string  `json:"query,omitempty" validate:"max=200"`
	Page        int     `json:"page" validate:"gte=0"`
	PerPage     int     `json:"perPage" validate:"gte=0,lte=200"`
}
