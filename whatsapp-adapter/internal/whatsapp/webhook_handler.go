package whatsapp

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// WebhookHandler serves the platform's webhook endpoint.
type WebhookHandler struct {
	verifier *Verifier
	router   *Router
	observer Observer
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(verifier *Verifier, router *Router, observer Observer) *WebhookHandler {
	if observer == nil {
		observer = NopObserver{}
	}
	return &WebhookHandler{verifier: verifier, router: router, observer: observer}
}

// HandleVerify answers the subscription handshake. The challenge is echoed
// only on success.
// GET /webhook
func (h *WebhookHandler) HandleVerify(c *fiber.Ctx) error {
	challenge, err := h.verifier.Verify(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	h.observer.WebhookVerified(err == nil)
	if err != nil {
		return c.Status(fiber.StatusForbidden).SendString("Verification failed")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(fiber.StatusOK).SendString(challenge)
}

// HandleDelivery parses and routes an event delivery. Unknown objects are
// acknowledged untouched; parse or handler failures answer 500 so the
// platform redelivers.
// POST /webhook
func (h *WebhookHandler) HandleDelivery(c *fiber.Ctx) error {
	start := time.Now()

	ev, err := ParseEvent(c.Body())
	if err != nil {
		h.observer.WebhookDelivered(nil, DispatchResult{}, time.Since(start), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	res, err := h.router.Dispatch(c.UserContext(), ev)
	h.observer.WebhookDelivered(ev, res, time.Since(start), err)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
