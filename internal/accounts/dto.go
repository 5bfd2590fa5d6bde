package accounts

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// RegisterRequest creates an owner account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=200"`
	ShopName string `json:"shopName" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest authenticates the owner, or a subuser when username is set.
type LoginRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Username *string `json:"username,omitempty" validate:"omitempty,min=1,max=100"`
	Password string  `json:"password" validate:"required"`
}

// CreateSubuserRequest adds a named login under the caller's account.
type CreateSubuserRequest struct {
	Username string `json:"username" validate:"required,min=2,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
