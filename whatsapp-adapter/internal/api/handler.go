package api

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
	"github.com/Checker-Finance/commerce-adapters/whatsapp-adapter/internal/whatsapp"
)

// CatalogService is the part of whatsapp.Service the HTTP surface calls.
type CatalogService interface {
	ListNormalizedProducts(ctx context.Context, catalogID string) ([]model.Product, string, error)
	GetCatalog(ctx context.Context, catalogID string) (json.RawMessage, string, error)
	CreateProduct(ctx context.Context, catalogID string, p model.Product) (string, error)
	UpdateProduct(ctx context.Context, catalogID, productID string, patch model.ProductPatch) error
	SyncAll(ctx context.Context, catalogID string) (*whatsapp.SyncResult, error)
	SendText(ctx context.Context, to, body string) (*whatsapp.SendResult, error)
	SendTemplate(ctx context.Context, to, templateName, languageCode string) (*whatsapp.SendResult, error)
	SendProductMessage(ctx context.Context, to, catalogID string, p model.Product) (*whatsapp.SendResult, error)
	SendCatalogMessage(ctx context.Context, to, catalogID, thumbnailRetailerID string) (*whatsapp.SendResult, error)
}

// Diagnostics is the non-credential configuration reported by GET /debug.
type Diagnostics struct {
	CredentialSource   string // "env" or "secrets_manager"
	WebhookVerifyToken string
	MetaAppID          string
	MetaAppSecret      string
}

// Handler serves the catalog and messaging endpoints.
type Handler struct {
	logger  *zap.Logger
	service CatalogService
	creds   whatsapp.CredentialSource
	diag    Diagnostics
	debug   bool
	now     func() time.Time
}

// NewHandler creates a new Handler. With debug set, error bodies carry the
// underlying failure and /debug shows identifiers.
func NewHandler(logger *zap.Logger, service CatalogService, creds whatsapp.CredentialSource, diag Diagnostics, debug bool) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:  logger,
		service: service,
		creds:   creds,
		diag:    diag,
		debug:   debug,
		now:     time.Now,
	}
}

// ListCatalogProducts returns the normalized catalog.
// GET /catalog-products?catalogId=
func (h *Handler) ListCatalogProducts(c *fiber.Ctx) error {
	products, catalogID, err := h.service.ListNormalizedProducts(c.UserContext(), c.Query("catalogId"))
	if err != nil {
		return h.fail(c, "details", "Failed to fetch catalog products", err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"products":  toProductViews(products),
		"total":     len(products),
		"catalogId": catalogID,
	})
}

// GetCatalog returns the upstream product list without normalization.
// GET /catalog?catalogId=
func (h *Handler) GetCatalog(c *fiber.Ctx) error {
	raw, catalogID, err := h.service.GetCatalog(c.UserContext(), c.Query("catalogId"))
	if err != nil {
		return h.fail(c, "details", "Failed to fetch catalog", err)
	}

	var page struct {
		Data   json.RawMessage `json:"data"`
		Paging json.RawMessage `json:"paging,omitempty"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &page); err != nil {
			return h.fail(c, "details", "Failed to fetch catalog", err)
		}
	}
	if len(page.Data) == 0 || string(page.Data) == "null" {
		page.Data = json.RawMessage("[]")
	}

	resp := fiber.Map{
		"success":   true,
		"products":  page.Data,
		"catalogId": catalogID,
	}
	if len(page.Paging) > 0 {
		resp["paging"] = page.Paging
	}
	return c.JSON(resp)
}

// CatalogAction dispatches create_product, update_product and sync_all.
// POST /catalog
func (h *Handler) CatalogAction(c *fiber.Ctx) error {
	var req CatalogActionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.UserContext()
	switch req.Action {
	case ActionCreateProduct:
		p, err := req.Product.toProduct()
		if err != nil {
			return badRequest(c, err.Error())
		}
		catalogID := firstNonEmpty(req.CatalogID, req.Product.CatalogID)
		id, err := h.service.CreateProduct(ctx, catalogID, p)
		if err != nil {
			return h.fail(c, "details", "Catalog operation failed", err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data":    fiber.Map{"id": id, "retailerId": p.ID},
			"message": "Product added to WhatsApp catalog",
		})

	case ActionUpdateProduct:
		patch, err := req.Fields.toPatch()
		if err != nil {
			return badRequest(c, err.Error())
		}
		productID := strings.TrimSpace(req.ProductID)
		if err := h.service.UpdateProduct(ctx, req.CatalogID, productID, patch); err != nil {
			return h.fail(c, "details", "Catalog operation failed", err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data":    fiber.Map{"id": productID},
			"message": "Product updated in WhatsApp catalog",
		})

	default: // ActionSyncAll
		res, err := h.service.SyncAll(ctx, req.CatalogID)
		if err != nil {
			return h.fail(c, "details", "Catalog sync failed", err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Catalog sync completed",
			"created": res.Created,
			"updated": res.Updated,
			"failed":  res.Failed,
		})
	}
}

// SendProductMessage sends an interactive single-product message.
// POST /send-product-message
func (h *Handler) SendProductMessage(c *fiber.Ctx) error {
	var req SendProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}
	p, err := req.Product.toProduct()
	if err != nil {
		return badRequest(c, err.Error())
	}

	catalogID := firstNonEmpty(req.CatalogID, req.Product.CatalogID)
	res, err := h.service.SendProductMessage(c.UserContext(), req.To, catalogID, p)
	if err != nil {
		return h.fail(c, "details", "Failed to send product message", err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"messageId": res.MessageID,
		"message":   "Product sent successfully!",
	})
}

// SendCatalogMessage sends a catalog browsing message.
// POST /send-catalog-message
func (h *Handler) SendCatalogMessage(c *fiber.Ctx) error {
	var req SendCatalogRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.service.SendCatalogMessage(c.UserContext(), req.To, req.CatalogID, strings.TrimSpace(req.ThumbnailProductID))
	if err != nil {
		return h.fail(c, "details", "Failed to send catalog message", err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"messageId": res.MessageID,
		"message":   "Catalog sent successfully!",
	})
}

// TestMessageUsage describes the test-message endpoint.
// GET /test-message
func (h *Handler) TestMessageUsage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "WhatsApp Test API",
		"usage":   `POST with {"to": "phone_number", "message": "your_message"}`,
	})
}

// TestMessage sends a plain text message.
// POST /test-message
func (h *Handler) TestMessage(c *fiber.Ctx) error {
	var req TestMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.service.SendText(c.UserContext(), req.To, req.Message)
	if err != nil {
		return h.fail(c, "debug", "Failed to send message", err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"messageId": res.MessageID,
		"message":   "Message sent successfully!",
	})
}

// TestDirect sends a template message, hello_world by default, and returns
// the upstream response.
// POST /test-direct
func (h *Handler) TestDirect(c *fiber.Ctx) error {
	var req TestDirectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	template := firstNonEmpty(req.Template, "hello_world")
	res, err := h.service.SendTemplate(c.UserContext(), req.To, template, strings.TrimSpace(req.Language))
	if err != nil {
		return h.fail(c, "debug", "WhatsApp API error", err)
	}

	var data any = res
	if len(res.Raw) > 0 {
		data = res.Raw
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"messageId": res.MessageID,
		"data":      data,
	})
}

// Debug reports which settings are present. Secrets are reported by presence
// and length only; identifiers are shown only in debug mode.
// GET /debug
func (h *Handler) Debug(c *fiber.Ctx) error {
	env := fiber.Map{
		"credentialSource": h.diag.CredentialSource,
		"hasWebhookToken":  h.diag.WebhookVerifyToken != "",
		"hasAppId":         h.diag.MetaAppID != "",
		"hasAppSecret":     h.diag.MetaAppSecret != "",
	}

	var creds whatsapp.Credentials
	if h.creds != nil {
		var err error
		creds, err = h.creds.Credentials(c.UserContext())
		if err != nil {
			env["credentialError"] = "unavailable"
		}
	}
	env["hasAccessToken"] = creds.AccessToken != ""
	env["accessTokenLength"] = len(creds.AccessToken)
	env["hasPhoneNumberId"] = creds.PhoneNumberID != ""
	env["hasCatalogId"] = creds.CatalogID != ""

	if h.debug {
		env["phoneNumberId"] = orNotSet(creds.PhoneNumberID)
		env["catalogId"] = orNotSet(creds.CatalogID)
		env["appId"] = orNotSet(h.diag.MetaAppID)
	}

	return c.JSON(fiber.Map{
		"environment": env,
		"timestamp":   h.now().UTC().Format(time.RFC3339),
	})
}

// fail renders an operation error. detailKey is "details" or "debug"; the
// detail object is only included in debug mode.
func (h *Handler) fail(c *fiber.Ctx, detailKey, summary string, err error) error {
	status, summary := classify(err, summary)
	h.logger.Warn("api.request_failed",
		zap.String("route", c.Route().Path),
		zap.Int("status", status),
		zap.Error(err))

	body := fiber.Map{"error": summary}
	if h.debug {
		body[detailKey] = errorDetails(err)
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func orNotSet(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}
