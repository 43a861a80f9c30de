package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

type recordingSender struct {
	sent []*outboundMessage
	err  error
}

func (s *recordingSender) SendMessage(_ context.Context, msg *outboundMessage) (*SendResult, error) {
	s.sent = append(s.sent, msg)
	if s.err != nil {
		return nil, s.err
	}
	return &SendResult{MessageID: "wamid.1"}, nil
}

func newTestDispatcher() (*Dispatcher, *recordingSender) {
	s := &recordingSender{}
	return &Dispatcher{sender: s}, s
}

func payloadJSON(t *testing.T, msg *outboundMessage) string {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return string(b)
}

func TestSanitizeRecipient(t *testing.T) {
	tests := map[string]string{
		"+65 8437-3362":     "6584373362",
		"(555) 010-9999":    "5550109999",
		"6584373362":        "6584373362",
		"whatsapp:+1 212 5": "12125",
		"":                  "",
	}
	for in, want := range tests {
		got := SanitizeRecipient(in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, got, SanitizeRecipient(got), "sanitize must be idempotent")
	}
}

func TestDispatcher_SendText(t *testing.T) {
	d, s := newTestDispatcher()

	res, err := d.SendText(context.Background(), "+65 8437-3362", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", res.MessageID)
	require.Len(t, s.sent, 1)
	assert.JSONEq(t, `{
		"messaging_product": "whatsapp",
		"recipient_type": "individual",
		"to": "6584373362",
		"type": "text",
		"text": {"preview_url": false, "body": "Hello"}
	}`, payloadJSON(t, s.sent[0]))
}

func TestDispatcher_SendTemplate(t *testing.T) {
	d, s := newTestDispatcher()

	_, err := d.SendTemplate(context.Background(), "6584373362", "hello_world", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"messaging_product": "whatsapp",
		"recipient_type": "individual",
		"to": "6584373362",
		"type": "template",
		"template": {"name": "hello_world", "language": {"code": "en_US"}}
	}`, payloadJSON(t, s.sent[0]))
}

func TestDispatcher_SendInteractiveProduct(t *testing.T) {
	d, s := newTestDispatcher()

	_, err := d.SendInteractiveProduct(context.Background(), "+1 (212) 555-0100", "cat-1", "mug", "Check it")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"messaging_product": "whatsapp",
		"recipient_type": "individual",
		"to": "12125550100",
		"type": "interactive",
		"interactive": {
			"type": "product",
			"body": {"text": "Check it"},
			"action": {"catalog_id": "cat-1", "product_retailer_id": "mug"}
		}
	}`, payloadJSON(t, s.sent[0]))
}

func TestDispatcher_SendInteractiveCatalog(t *testing.T) {
	d, s := newTestDispatcher()

	_, err := d.SendInteractiveCatalog(context.Background(), "6584373362", "cat-1", "mug")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"messaging_product": "whatsapp",
		"recipient_type": "individual",
		"to": "6584373362",
		"type": "interactive",
		"interactive": {
			"type": "catalog_message",
			"body": {"text": "`+CatalogMessageBody+`"},
			"action": {"name": "catalog_message", "parameters": {"thumbnail_product_retailer_id": "mug"}}
		}
	}`, payloadJSON(t, s.sent[0]))

	_, err = d.SendInteractiveCatalog(context.Background(), "6584373362", "cat-1", "")
	require.NoError(t, err)
	assert.Nil(t, s.sent[1].Interactive.Action.Parameters)
}

func TestDispatcher_RejectsBeforeSending(t *testing.T) {
	d, s := newTestDispatcher()

	_, err := d.SendText(context.Background(), "no digits", "hi")
	var ime *InvalidMessageError
	assert.ErrorAs(t, err, &ime)

	_, err = d.SendText(context.Background(), "6584373362", "  ")
	assert.ErrorAs(t, err, &ime)

	_, err = d.SendInteractiveProduct(context.Background(), "6584373362", "", "mug", "")
	assert.True(t, errors.Is(err, ErrConfiguration))

	assert.Empty(t, s.sent)
}

func TestDispatcher_PropagatesDeliveryFailure(t *testing.T) {
	d, s := newTestDispatcher()
	s.err = &UpstreamError{Kind: ErrDeliveryFailed, Op: "send text message", Status: 400, Body: `{"error":{}}`}

	_, err := d.SendText(context.Background(), "6584373362", "hi")
	assert.True(t, errors.Is(err, ErrDeliveryFailed))
}

func TestProductMessageBody(t *testing.T) {
	body := ProductMessageBody(model.Product{
		Name:        "Blue Mug",
		Description: "Ceramic, 350ml",
		Price:       decimal.RequireFromString("19.9"),
		Currency:    "SGD",
	})
	assert.Equal(t, "Check out Blue Mug! 🛍️\n\nCeramic, 350ml\n\nPrice: 19.90 SGD", body)
}
