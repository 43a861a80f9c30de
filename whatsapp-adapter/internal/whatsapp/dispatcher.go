package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

// CatalogMessageBody is the body text of catalog browsing messages.
const CatalogMessageBody = "Browse our catalog and place your order directly through WhatsApp."

type messageSender interface {
	SendMessage(ctx context.Context, msg *outboundMessage) (*SendResult, error)
}

// Dispatcher builds outbound WhatsApp messages and hands them to the Graph
// client. Every recipient is sanitized before transmission.
type Dispatcher struct {
	sender messageSender
}

// NewDispatcher wraps a Graph client.
func NewDispatcher(client *Client) *Dispatcher {
	return &Dispatcher{sender: client}
}

// SanitizeRecipient strips every non-digit, so "+65 8437-3362" becomes "6584373362".
func SanitizeRecipient(to string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, to)
}

// SendText sends a plain text message.
func (d *Dispatcher) SendText(ctx context.Context, to, body string) (*SendResult, error) {
	if strings.TrimSpace(body) == "" {
		return nil, invalidMessage("text", "body is required")
	}
	msg, err := newMessage(to, "text")
	if err != nil {
		return nil, err
	}
	msg.Text = &textPayload{Body: body}
	return d.sender.SendMessage(ctx, msg)
}

// SendTemplate sends an approved template, e.g. hello_world / en_US.
func (d *Dispatcher) SendTemplate(ctx context.Context, to, templateName, languageCode string) (*SendResult, error) {
	if strings.TrimSpace(templateName) == "" {
		return nil, invalidMessage("template", "template name is required")
	}
	if strings.TrimSpace(languageCode) == "" {
		languageCode = "en_US"
	}
	msg, err := newMessage(to, "template")
	if err != nil {
		return nil, err
	}
	msg.Template = &templatePayload{Name: templateName, Language: templateLanguage{Code: languageCode}}
	return d.sender.SendMessage(ctx, msg)
}

// SendInteractiveProduct sends a single-product message.
func (d *Dispatcher) SendInteractiveProduct(ctx context.Context, to, catalogID, productRetailerID, bodyText string) (*SendResult, error) {
	if catalogID == "" {
		return nil, &ConfigError{Field: "WHATSAPP_CATALOG_ID"}
	}
	if strings.TrimSpace(productRetailerID) == "" {
		return nil, invalidMessage("interactive", "product retailer id is required")
	}
	msg, err := newMessage(to, "interactive")
	if err != nil {
		return nil, err
	}
	msg.Interactive = &interactivePayload{
		Type: "product",
		Action: interactiveAction{
			CatalogID:         catalogID,
			ProductRetailerID: productRetailerID,
		},
	}
	if strings.TrimSpace(bodyText) != "" {
		msg.Interactive.Body = &interactiveText{Text: bodyText}
	}
	return d.sender.SendMessage(ctx, msg)
}

// SendInteractiveCatalog sends a catalog browsing message. The catalog linked
// to the sending number is shown; thumbnailRetailerID optionally picks the
// product used as the thumbnail.
func (d *Dispatcher) SendInteractiveCatalog(ctx context.Context, to, catalogID, thumbnailRetailerID string) (*SendResult, error) {
	if catalogID == "" {
		return nil, &ConfigError{Field: "WHATSAPP_CATALOG_ID"}
	}
	msg, err := newMessage(to, "interactive")
	if err != nil {
		return nil, err
	}
	msg.Interactive = &interactivePayload{
		Type:   "catalog_message",
		Body:   &interactiveText{Text: CatalogMessageBody},
		Action: interactiveAction{Name: "catalog_message"},
	}
	if t := strings.TrimSpace(thumbnailRetailerID); t != "" {
		msg.Interactive.Action.Parameters = &catalogActionParameter{ThumbnailProductRetailerID: t}
	}
	return d.sender.SendMessage(ctx, msg)
}

// ProductMessageBody renders the body text of a product message.
func ProductMessageBody(p model.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Check out %s! 🛍️", p.Name)
	if d := strings.TrimFunc(p.Description, unicode.IsSpace); d != "" {
		b.WriteString("\n\n")
		b.WriteString(d)
	}
	fmt.Fprintf(&b, "\n\nPrice: %s %s", FormatAmount(p.Price), p.Currency)
	return b.String()
}

func newMessage(to, kind string) (*outboundMessage, error) {
	recipient := SanitizeRecipient(to)
	if recipient == "" {
		return nil, invalidMessage(kind, "recipient has no digits")
	}
	return &outboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient,
		Type:             kind,
	}, nil
}

func invalidMessage(kind, reason string) error {
	return &UpstreamError{Kind: ErrDeliveryFailed, Op: "send " + kind + " message", Err: &InvalidMessageError{Reason: reason}}
}

// InvalidMessageError reports a message rejected locally before any network call.
type InvalidMessageError struct {
	Reason string
}

func (e *InvalidMessageError) Error() string { return e.Reason }
