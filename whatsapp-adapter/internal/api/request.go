package api

import "github.com/Checker-Finance/commerce-adapters/whatsapp-adapter/internal/whatsapp"

// ProductInput is a product as supplied by a caller. A plain numeric price is
// in major units; currency-tagged strings ("SGD50.00", "29.99 USD") are also accepted.
type ProductInput struct {
	ID           string            `json:"id"`
	RetailerID   string            `json:"retailerId"`
	ProductID    string            `json:"productId"`
	CatalogID    string            `json:"catalogId"`
	Name         string            `json:"name" example:"Ceramic Mug"`
	Description  string            `json:"description"`
	Price        whatsapp.RawPrice `json:"price" example:"12.50"`
	Currency     string            `json:"currency" example:"SGD"`
	ImageURL     string            `json:"imageUrl"`
	Availability string            `json:"availability" example:"in_stock"`
	Category     string            `json:"category"`
	URL          string            `json:"url"`
}

// PatchInput carries only the fields to change on an existing product.
type PatchInput struct {
	Name         *string            `json:"name"`
	Description  *string            `json:"description"`
	Price        *whatsapp.RawPrice `json:"price"`
	Currency     *string            `json:"currency"`
	ImageURL     *string            `json:"imageUrl"`
	Availability *string            `json:"availability"`
	URL          *string            `json:"url"`
}

// CatalogActionRequest is the POST /catalog body.
type CatalogActionRequest struct {
	Action    string        `json:"action" example:"create_product"`
	CatalogID string        `json:"catalogId"`
	Product   *ProductInput `json:"product"`
	ProductID string        `json:"productId"`
	Fields    *PatchInput   `json:"fields"`
}

// SendProductRequest is the POST /send-product-message body.
type SendProductRequest struct {
	To        string        `json:"to" example:"+65 8437-3362"`
	CatalogID string        `json:"catalogId"`
	Product   *ProductInput `json:"product"`
}

// TestMessageRequest is the POST /test-message body.
type TestMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// TestDirectRequest is the POST /test-direct body. Template defaults to hello_world.
type TestDirectRequest struct {
	To       string `json:"to"`
	Template string `json:"template"`
	Language string `json:"language"`
}

// SendCatalogRequest is the POST /send-catalog-message body.
type SendCatalogRequest struct {
	To                 string `json:"to"`
	CatalogID          string `json:"catalogId"`
	ThumbnailProductID string `json:"thumbnailProductId"`
}
