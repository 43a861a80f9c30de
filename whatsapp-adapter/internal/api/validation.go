package api

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
	"github.com/Checker-Finance/commerce-adapters/whatsapp-adapter/internal/whatsapp"
)

// Catalog actions accepted by POST /catalog.
const (
	ActionCreateProduct = "create_product"
	ActionUpdateProduct = "update_product"
	ActionSyncAll       = "sync_all"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

func (r CatalogActionRequest) Validate() error {
	switch r.Action {
	case ActionCreateProduct:
		if r.Product == nil {
			return errors.New("product is required")
		}
	case ActionUpdateProduct:
		if strings.TrimSpace(r.ProductID) == "" {
			return errors.New("productId is required")
		}
		if r.Fields == nil {
			return errors.New("fields is required")
		}
	case ActionSyncAll:
	default:
		return errInvalidAction
	}
	return nil
}

var errInvalidAction = errors.New("Invalid action")

func (r SendProductRequest) Validate() error {
	if strings.TrimSpace(r.To) == "" || r.Product == nil {
		return errors.New("Missing phone number or product data")
	}
	return nil
}

func (r TestMessageRequest) Validate() error {
	if strings.TrimSpace(r.To) == "" || strings.TrimSpace(r.Message) == "" {
		return errors.New(`Missing "to" or "message" field`)
	}
	return nil
}

func (r TestDirectRequest) Validate() error {
	if strings.TrimSpace(r.To) == "" {
		return errors.New(`Missing "to" field`)
	}
	return nil
}

func (r SendCatalogRequest) Validate() error {
	if strings.TrimSpace(r.To) == "" {
		return errors.New(`Missing "to" field`)
	}
	return nil
}

// retailerID returns the first identifier the caller supplied.
func (p ProductInput) retailerID() string {
	for _, id := range []string{p.ID, p.RetailerID, p.ProductID} {
		if id = strings.TrimSpace(id); id != "" {
			return id
		}
	}
	return ""
}

// toProduct validates a caller product. Unlike the read path, an unreadable
// price is rejected instead of degrading to zero.
func (p ProductInput) toProduct() (model.Product, error) {
	id := p.retailerID()
	if id == "" {
		return model.Product{}, errors.New("product.id is required")
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return model.Product{}, errors.New("product.name is required")
	}
	if !p.Price.Set {
		return model.Product{}, errors.New("product.price is required")
	}
	price, err := callerPrice("product.price", p.Price)
	if err != nil {
		return model.Product{}, err
	}

	currency, err := resolveCurrency(p.Currency, price.CurrencyHint)
	if err != nil {
		return model.Product{}, err
	}

	category := strings.TrimSpace(p.Category)
	if category == "" {
		category = model.DefaultCategory
	}

	return model.Product{
		ID:           id,
		Name:         name,
		Description:  strings.TrimSpace(p.Description),
		Price:        price.Amount,
		Currency:     currency,
		ImageURL:     strings.TrimSpace(p.ImageURL),
		Availability: whatsapp.ParseAvailability(p.Availability),
		Category:     category,
		URL:          strings.TrimSpace(p.URL),
	}, nil
}

func (p PatchInput) toPatch() (model.ProductPatch, error) {
	patch := model.ProductPatch{
		Name:        trimmed(p.Name),
		Description: trimmed(p.Description),
		ImageURL:    trimmed(p.ImageURL),
		URL:         trimmed(p.URL),
	}
	if p.Price != nil {
		price, err := callerPrice("fields.price", *p.Price)
		if err != nil {
			return model.ProductPatch{}, err
		}
		patch.Price = &price.Amount
		if p.Currency == nil && price.CurrencyHint != "" {
			hint := price.CurrencyHint
			patch.Currency = &hint
		}
	}
	if p.Currency != nil {
		c, err := resolveCurrency(*p.Currency, "")
		if err != nil {
			return model.ProductPatch{}, err
		}
		patch.Currency = &c
	}
	if p.Availability != nil {
		a := whatsapp.ParseAvailability(*p.Availability)
		patch.Availability = &a
	}
	if patch.Empty() {
		return model.ProductPatch{}, errors.New("fields must set at least one field")
	}
	return patch, nil
}

// callerPrice reads a plain number as major units. Anything else goes through
// the normalizer, which must recognize it.
func callerPrice(field string, raw whatsapp.RawPrice) (whatsapp.NormalizedPrice, error) {
	if d, err := decimal.NewFromString(strings.TrimSpace(raw.Value)); err == nil {
		if d.IsNegative() {
			return whatsapp.NormalizedPrice{}, fmt.Errorf("%s must not be negative", field)
		}
		return whatsapp.NormalizedPrice{Amount: d, Rule: whatsapp.PriceRuleDecimal}, nil
	}
	price := whatsapp.NormalizePrice(raw)
	if price.Degraded() {
		return whatsapp.NormalizedPrice{}, fmt.Errorf("%s %q is not a valid non-negative amount", field, raw.Value)
	}
	return price, nil
}

func resolveCurrency(explicit, hint string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(explicit))
	if c == "" {
		c = hint
	}
	if c == "" {
		return model.DefaultCurrency, nil
	}
	if !currencyCode.MatchString(c) {
		return "", fmt.Errorf("currency %q must be a 3-letter code", c)
	}
	return c, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
