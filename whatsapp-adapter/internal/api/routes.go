package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Checker-Finance/commerce-adapters/whatsapp-adapter/internal/whatsapp"
)

// StatusReporter reports the event sink connection state ("ok", "disabled", "disconnected").
type StatusReporter interface {
	Status() string
}

// HealthChecker pings the backing store.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RegisterRoutes mounts every endpoint. st may be nil when no store is configured.
func RegisterRoutes(app *fiber.App, h *Handler, webhook *whatsapp.WebhookHandler, sink StatusReporter, st HealthChecker) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"event_sink": "disabled",
			"store":      "disabled",
		}
		status := "ok"
		code := fiber.StatusOK

		if sink != nil {
			checks["event_sink"] = sink.Status()
			if checks["event_sink"] == "disconnected" {
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		if st != nil {
			healthCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := st.HealthCheck(healthCtx); err != nil {
				checks["store"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			} else {
				checks["store"] = "ok"
			}
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	app.Get("/catalog-products", h.ListCatalogProducts)
	app.Get("/catalog", h.GetCatalog)
	app.Post("/catalog", h.CatalogAction)
	app.Post("/send-product-message", h.SendProductMessage)
	app.Post("/send-catalog-message", h.SendCatalogMessage)
	app.Get("/test-message", h.TestMessageUsage)
	app.Post("/test-message", h.TestMessage)
	app.Post("/test-direct", h.TestDirect)
	app.Get("/debug", h.Debug)

	// Webhook
	app.Get("/webhook", webhook.HandleVerify)
	app.Post("/webhook", webhook.HandleDelivery)
}
