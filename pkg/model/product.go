package model

import "github.com/shopspring/decimal"

// Availability is the canonical stock state of a product.
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
)

// DefaultCurrency applies when neither the upstream record nor its price carries one.
const DefaultCurrency = "USD"

// DefaultCategory applies when neither category nor brand is present upstream.
const DefaultCategory = "General"

// Product is the canonical catalog item surfaced by the read path.
// ID is the external retailer identifier and is stable across syncs.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	ImageURL     string          `json:"imageUrl"`
	Availability Availability    `json:"availability"`
	Category     string          `json:"category"`
	URL          string          `json:"url,omitempty"`
}

// ProductPatch carries a sparse update. Nil fields are left untouched upstream.
type ProductPatch struct {
	Name         *string          `json:"name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Currency     *string          `json:"currency,omitempty"`
	ImageURL     *string          `json:"imageUrl,omitempty"`
	Availability *Availability    `json:"availability,omitempty"`
	URL          *string          `json:"url,omitempty"`
}

// Empty reports whether the patch sets no field at all.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Currency == nil &&
		p.ImageURL == nil && p.Availability == nil && p.URL == nil
}
