package purchases

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// PurchaseLineRequest is one line in a create/update payload.
type PurchaseLineRequest struct {
	Description    string  `json:"description" validate:"required,max=500"`
	Quantity       float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice      float64 `json:"unitPrice" validate:"gte=0"`
	AddToInventory bool    `json:"addToInventory"`
}

// CreatePurchaseRequest records a purchase with its full item set.
type CreatePurchaseRequest struct {
	SupplierID         int64                 `json:"supplierId" validate:"required,gt=0"`
	PurchaseDate       time.Time             `json:"purchaseDate" validate:"required"`
	DiscountPercentage float64               `json:"discountPercentage" validate:"gte=0,lte=100"`
	TaxPercentage      float64               `json:"taxPercentage" validate:"gte=0,lte=100"`
	PaymentStatus      string                `json:"paymentStatus" validate:"required,oneof=paid pending"`
	Notes              *string               `json:"notes,omitempty"`
	Items              []PurchaseLineRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdatePurchaseRequest patches header fields and replaces the item set
// wholesale. Nil header fields keep their stored value.
type UpdatePurchaseRequest struct {
	SupplierID         *int64                `json:"supplierId,omitempty" validate:"omitempty,gt=0"`
	PurchaseDate       *time.Time            `json:"purchaseDate,omitempty"`
	DiscountPercentage *float64              `json:"discountPercentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	TaxPercentage      *float64              `json:"taxPercentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	PaymentStatus      *string               `json:"paymentStatus,omitempty" validate:"omitempty,oneof=paid pending"`
	Notes              *string               `json:"notes,omitempty"`
	Items              []PurchaseLineRequest `json:"items" validate:"required,min=1,dive"`
}

// SetStatusRequest flips the settlement status.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=paid pending"`
}
