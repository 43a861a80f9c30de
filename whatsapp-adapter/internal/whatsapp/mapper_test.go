package whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

func TestMapper_FromRawProduct_Widget(t *testing.T) {
	m := NewMapper(nil, "")

	var raw RawProduct
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p1","name":"Widget","price":"SGD50.00"}`), &raw))

	p, n := m.FromRawProduct(raw)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, "50.00", FormatAmount(p.Price))
	assert.Equal(t, "SGD", p.Currency)
	assert.Equal(t, DefaultPlaceholderBase+"Widget", p.ImageURL)
	assert.Equal(t, model.AvailabilityInStock, p.Availability)
	assert.Equal(t, "Widget - Available in our catalog", p.Description)
	assert.Equal(t, model.DefaultCategory, p.Category)

	assert.Equal(t, PriceRuleCurrencyPrefix, n.PriceRule)
	assert.Equal(t, ImageSourcePlaceholder, n.ImageSource)
	assert.True(t, n.Degraded())
}

func TestMapper_FromRawProduct_Fields(t *testing.T) {
	m := NewMapper(nil, "")

	p, n := m.FromRawProduct(RawProduct{
		ID:           "1234567890",
		RetailerID:   "mug-blue",
		Name:         " Blue Mug ",
		Description:  "Ceramic",
		Price:        RawPrice{Value: "12.00", Set: true},
		Currency:     "myr",
		Availability: "out of stock",
		ImageURL:     "https://cdn/mug.jpg",
		Brand:        "Acme",
	})

	assert.Equal(t, "mug-blue", p.ID, "retailer id is the external identifier")
	assert.Equal(t, "Blue Mug", p.Name)
	assert.Equal(t, "MYR", p.Currency)
	assert.Equal(t, model.AvailabilityOutOfStock, p.Availability)
	assert.Equal(t, "Acme", p.Category)
	assert.False(t, n.Degraded())
	assert.False(t, n.CurrencyDefaulted)
}

func TestMapper_FromRawProduct_CurrencyDefault(t *testing.T) {
	p, n := NewMapper(nil, "").FromRawProduct(RawProduct{ID: "x", Price: RawPrice{Value: "N/A", Set: true}})
	assert.Equal(t, model.DefaultCurrency, p.Currency)
	assert.True(t, p.Price.IsZero())
	assert.True(t, n.CurrencyDefaulted)
	assert.Equal(t, PriceRuleDefault, n.PriceRule)
}

func TestParseAvailability(t *testing.T) {
	assert.Equal(t, model.AvailabilityInStock, ParseAvailability("in stock"))
	assert.Equal(t, model.AvailabilityInStock, ParseAvailability(""))
	assert.Equal(t, model.AvailabilityInStock, ParseAvailability("available for order"))
	assert.Equal(t, model.AvailabilityOutOfStock, ParseAvailability("Out of Stock"))
	assert.Equal(t, model.AvailabilityOutOfStock, ParseAvailability("discontinued"))
}

func TestMapper_ToCreateRequest(t *testing.T) {
	m := NewMapper(nil, "https://shop.example.com/")

	req := m.ToCreateRequest(model.Product{
		ID:           "mug-blue",
		Name:         "Blue Mug",
		Price:        decimal.RequireFromString("19.99"),
		Currency:     "sgd",
		Availability: model.AvailabilityOutOfStock,
	})

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"retailer_id": "mug-blue",
		"name": "Blue Mug",
		"description": "Blue Mug",
		"price": 1999,
		"currency": "SGD",
		"availability": "out of stock",
		"condition": "new",
		"image_url": "https://via.placeholder.com/300x300?text=Blue%20Mug",
		"url": "https://shop.example.com/products/mug-blue"
	}`, string(data))
}

func TestMapper_ToUpdateRequest_Sparse(t *testing.T) {
	m := NewMapper(nil, "")
	price := decimal.RequireFromString("5.5")

	data, err := json.Marshal(m.ToUpdateRequest(model.ProductPatch{Price: &price}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":550}`, string(data))

	name := "Renamed"
	avail := model.AvailabilityInStock
	data, err = json.Marshal(m.ToUpdateRequest(model.ProductPatch{Name: &name, Availability: &avail}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Renamed","availability":"in stock"}`, string(data))
}
