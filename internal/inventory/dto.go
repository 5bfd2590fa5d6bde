package inventory

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// CreateItemRequest is the payload for adding a stock line. Quantities and
// values arrive as JSON numbers; persisted records carry decimal strings.
type CreateItemRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Quantity      float64 `json:"quantity" validate:"gte=0"`
	PurchaseValue float64 `json:"purchaseValue" validate:"gte=0"`
	SalesValue    float64 `json:"salesValue" validate:"gte=0"`
}

// UpdateItemRequest patches an item field-by-field; nil fields stay untouched.
type UpdateItemRequest struct {
	Name          *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Quantity      *float64 `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	PurchaseValue *float64 `json:"purchaseValue,omitempty" validate:"omitempty,gte=0"`
	SalesValue    *float64 `json:"salesValue,omitempty" validate:"omitempty,gte=0"`
}
