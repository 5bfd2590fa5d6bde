package marketplace

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Listing is an inventory item a shop has published for other tenants to see.
// Listings are a projection of stock, not a sales channel; buying still
// happens off-platform.
type Listing struct {
	ID              int64           `json:"id"`
	SellerAccountID int64           `json:"sellerAccountId"`
	InventoryItemID int64           `json:"inventoryItemId"`
	Title           string          `json:"title"`
	Price           decimal.Decimal `json:"price"`
	Description     *string         `json:"description,omitempty"`
	PublishedAt     time.Time       `json:"publishedAt"`
}

// ErrAlreadyPublished rejects publishing the same item twice.
var ErrAlreadyPublished = errors.New("marketplace: item already published")
