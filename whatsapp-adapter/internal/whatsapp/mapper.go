package whatsapp

import (
	"strings"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

//
// ────────────────────────────────────────────────
//   Mapper – Converts between Graph and Canonical
// ────────────────────────────────────────────────
//

// Normalization records which fallbacks were applied to one product.
type Normalization struct {
	PriceRule         PriceRule
	ImageSource       ImageSource
	CurrencyDefaulted bool
}

// Degraded reports whether the product needed a lossy default.
func (n Normalization) Degraded() bool {
	return n.PriceRule == PriceRuleDefault || n.ImageSource == ImageSourcePlaceholder
}

// Mapper translates between Graph catalog payloads and canonical products.
type Mapper struct {
	images         *ImageResolver
	storefrontBase string
}

// NewMapper constructs a Mapper. storefrontBase builds product back-links
// when a product carries no URL of its own.
func NewMapper(images *ImageResolver, storefrontBase string) *Mapper {
	if images == nil {
		images = NewImageResolver("")
	}
	return &Mapper{images: images, storefrontBase: strings.TrimRight(storefrontBase, "/")}
}

//
// ────────────────────────────────────────────────
//   GRAPH → CANONICAL : read path
// ────────────────────────────────────────────────
//

// FromRawProduct normalizes one upstream record. It never fails: malformed
// fields degrade to defaults and the returned Normalization says which.
func (m *Mapper) FromRawProduct(raw RawProduct) (model.Product, Normalization) {
	price := NormalizePrice(raw.Price)
	image, source := m.images.Resolve(raw)

	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	defaulted := false
	if currency == "" {
		currency = price.CurrencyHint
	}
	if currency == "" {
		currency = model.DefaultCurrency
		defaulted = true
	}

	name := strings.TrimSpace(raw.Name)
	description := strings.TrimSpace(raw.Description)
	if description == "" {
		description = name + " - Available in our catalog"
	}

	product := model.Product{
		ID:           raw.ExternalID(),
		Name:         name,
		Description:  description,
		Price:        price.Amount,
		Currency:     currency,
		ImageURL:     image,
		Availability: ParseAvailability(raw.Availability),
		Category:     firstNonEmpty(raw.Category, raw.Brand, model.DefaultCategory),
		URL:          strings.TrimSpace(raw.URL),
	}
	return product, Normalization{
		PriceRule:         price.Rule,
		ImageSource:       source,
		CurrencyDefaulted: defaulted,
	}
}

// ParseAvailability maps the upstream wording to the canonical enum.
// Missing or unknown values count as in stock.
func ParseAvailability(s string) model.Availability {
	v := strings.ToLower(strings.TrimSpace(s))
	if strings.Contains(v, "out") || strings.Contains(v, "discontinued") {
		return model.AvailabilityOutOfStock
	}
	return model.AvailabilityInStock
}

//
// ────────────────────────────────────────────────
//   CANONICAL → GRAPH : write path
// ────────────────────────────────────────────────
//

// ToCreateRequest builds a full create body with the price in minor units.
func (m *Mapper) ToCreateRequest(p model.Product) *productWriteRequest {
	name := strings.TrimSpace(p.Name)
	description := strings.TrimSpace(p.Description)
	if description == "" {
		description = name
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = model.DefaultCurrency
	}
	price := ToMinorUnits(p.Price)
	availability := upstreamAvailability(p.Availability)
	condition := "new"
	image := strings.TrimSpace(p.ImageURL)
	if image == "" {
		image = m.images.Placeholder(firstNonEmpty(name, p.ID, "Product"))
	}

	req := &productWriteRequest{
		RetailerID:   p.ID,
		Name:         &name,
		Description:  &description,
		Price:        &price,
		Currency:     &currency,
		Availability: &availability,
		Condition:    &condition,
		ImageURL:     &image,
	}
	if link := m.productURL(p); link != "" {
		req.URL = &link
	}
	return req
}

// ToUpdateRequest builds a sparse body holding only the fields set in patch.
func (m *Mapper) ToUpdateRequest(patch model.ProductPatch) *productWriteRequest {
	req := &productWriteRequest{
		Name:        trimmedPtr(patch.Name),
		Description: trimmedPtr(patch.Description),
		ImageURL:    trimmedPtr(patch.ImageURL),
		URL:         trimmedPtr(patch.URL),
	}
	if patch.Price != nil {
		minor := ToMinorUnits(*patch.Price)
		req.Price = &minor
	}
	if patch.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*patch.Currency))
		req.Currency = &c
	}
	if patch.Availability != nil {
		a := upstreamAvailability(*patch.Availability)
		req.Availability = &a
	}
	return req
}

func (m *Mapper) productURL(p model.Product) string {
	if u := strings.TrimSpace(p.URL); u != "" {
		return u
	}
	if m.storefrontBase == "" {
		return ""
	}
	return m.storefrontBase + "/products/" + p.ID
}

func upstreamAvailability(a model.Availability) string {
	if a == model.AvailabilityOutOfStock {
		return "out of stock"
	}
	return "in stock"
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
