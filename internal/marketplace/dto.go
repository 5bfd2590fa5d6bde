package marketplace

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// PublishRequest puts an inventory item on the marketplace. Price defaults to
// the item's sales value when omitted.
type PublishRequest struct {
	InventoryItemID int64    `json:"inventoryItemId" validate:"required,gt=0"`
	Price           *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	Description     *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
}
