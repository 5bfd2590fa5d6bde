package subscriptions

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// SubscribeRequest upgrades the account to premium for a number of months.
type SubscribeRequest struct {
	Months int `json:"months" validate:"required,gte=1,lte=36"`
}
