package suppliers

import "time"

// Supplier is a buy-side counterparty owned by one account.
type Supplier struct {
	ID             int64     `json:"id"`
	OwnerAccountID int64     `json:"-"`
	Name           string    `json:"name"`
	Contact        string    `json:"contact,omitempty"`
	Address        string    `json:"address,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
