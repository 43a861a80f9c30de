package api

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
	"github.com/Checker-Finance/commerce-adapters/whatsapp-adapter/internal/whatsapp"
)

// ProductView is a canonical product as rendered to callers. Price is a JSON
// number with exactly two decimals.
type ProductView struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Price        json.Number        `json:"price"`
	Currency     string             `json:"currency"`
	ImageURL     string             `json:"imageUrl"`
	Availability model.Availability `json:"availability"`
	Category     string             `json:"category"`
	URL          string             `json:"url,omitempty"`
}

func toProductView(p model.Product) ProductView {
	return ProductView{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        json.Number(whatsapp.FormatAmount(p.Price)),
		Currency:     p.Currency,
		ImageURL:     p.ImageURL,
		Availability: p.Availability,
		Category:     p.Category,
		URL:          p.URL,
	}
}

func toProductViews(products []model.Product) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, toProductView(p))
	}
	return out
}

// classify maps an operation error to an HTTP status and, for caller
// mistakes, a more specific summary.
func classify(err error, summary string) (int, string) {
	var ce *whatsapp.ConfigError
	if errors.As(err, &ce) {
		switch ce.Field {
		case "WHATSAPP_CATALOG_ID":
			return fiber.StatusBadRequest, "Missing catalogId parameter"
		case "DATABASE_URL":
			return fiber.StatusInternalServerError, "Merchant catalog not configured"
		}
		return fiber.StatusInternalServerError, "WhatsApp API not configured"
	}
	var ie *whatsapp.InvalidMessageError
	if errors.As(err, &ie) {
		return fiber.StatusBadRequest, "Invalid message: " + ie.Reason
	}
	var pe *whatsapp.InvalidProductError
	if errors.As(err, &pe) {
		return fiber.StatusBadRequest, "Invalid product: " + pe.Reason
	}
	if errors.Is(err, whatsapp.ErrSyncInProgress) {
		return fiber.StatusConflict, "Catalog sync already in progress"
	}
	return fiber.StatusInternalServerError, summary
}

// errorDetails exposes the underlying failure, including the upstream status
// and body when there is one.
func errorDetails(err error) fiber.Map {
	details := fiber.Map{"message": err.Error()}
	var ue *whatsapp.UpstreamError
	if errors.As(err, &ue) && ue.Status != 0 {
		details["status"] = ue.Status
		if json.Valid([]byte(ue.Body)) {
			details["body"] = json.RawMessage(ue.Body)
		} else {
			details["body"] = ue.Body
		}
	}
	var ce *whatsapp.ConfigError
	if errors.As(err, &ce) {
		details["field"] = ce.Field
	}
	return details
}
