package suppliers

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// CreateSupplierRequest registers a supplier.
type CreateSupplierRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Contact string  `json:"contact" validate:"max=100"`
	Address string  `json:"address" validate:"max=500"`
	Notes   *string `json:"notes,omitempty"`
}

// UpdateSupplierRequest patches supplier fields; nil fields keep their value.
type UpdateSupplierRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Contact *string `json:"contact,omitempty" validate:"omitempty,max=100"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Notes   *string `json:"notes,omitempty"`
}
