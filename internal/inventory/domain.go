package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Item is one stock line owned by an account. Name is unique per account;
// the purchase merge rule matches on it. Quantity may be fractional and must
// never go negative.
type Item struct {
	ID             int64           `json:"id"`
	OwnerAccountID int64           `json:"-"`
	Name           string          `json:"name"`
	Quantity       decimal.Decimal `json:"quantity"`
	PurchaseValue  decimal.Decimal `json:"purchaseValue"`
	SalesValue     decimal.Decimal `json:"salesValue"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ErrInsufficientStock triggered when a movement would drive quantity below zero.
var ErrInsufficientStock = errors.New("inventory: insufficient stock")

// ErrInvalidQuantity indicates invalid qty.
var ErrInvalidQuantity = errors.New("inventory: quantity must be >= 0")

// InsufficientStockError names the offending item and the shortfall.
type InsufficientStockError struct {
	ItemName  string
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for %q: available %s, required %s",
		e.ItemName, e.Available.String(), e.Required.String())
}

// Is makes errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// WeightedAverageCost blends an existing holding with an incoming lot:
//
//	(oldQty*oldCost + newQty*unitPrice) / (oldQty + newQty)
//
// rounded to 4dp. Both quantities must be positive for the result to be
// meaningful; callers guard that.
func WeightedAverageCost(oldQty, oldCost, newQty, unitPrice decimal.Decimal) decimal.Decimal {
	totalQty := oldQty.Add(newQty)
	if totalQty.Sign() == 0 {
		return oldCost
	}
	return oldQty.Mul(oldCost).Add(newQty.Mul(unitPrice)).Div(totalQty).Round(4)
}
