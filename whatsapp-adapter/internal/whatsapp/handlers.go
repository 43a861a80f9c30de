package whatsapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

// Topics for published inbound events.
const (
	TopicTextReceived        = "evt.whatsapp.message.text.v1"
	TopicOrderReceived       = "evt.whatsapp.message.order.v1"
	TopicInteractiveReceived = "evt.whatsapp.message.interactive.v1"
	TopicCatalogSynced       = "evt.whatsapp.catalog.synced.v1"
)

// Text intents.
const (
	IntentCatalogRequest = "catalog_request"
	IntentOrderInquiry   = "order_inquiry"
	IntentOther          = "other"
)

// EventPublisher emits canonical envelopes to the event sink.
type EventPublisher interface {
	Publish(ctx context.Context, env *model.Envelope) error
}

type catalogReplier interface {
	SendCatalogMessage(ctx context.Context, to, catalogID, thumbnailRetailerID string) (*SendResult, error)
}

// EventHandler turns inbound messages into canonical events. Order
// persistence and fulfilment belong to the consumers of those events.
type EventHandler struct {
	publisher EventPublisher
	replier   catalogReplier
	autoReply bool
	observer  Observer
}

// NewEventHandler builds the default Handler. With autoReply set, a text
// asking for the catalog is answered with a catalog message on a best-effort
// basis.
func NewEventHandler(pub EventPublisher, replier catalogReplier, autoReply bool, observer Observer) *EventHandler {
	if observer == nil {
		observer = NopObserver{}
	}
	return &EventHandler{publisher: pub, replier: replier, autoReply: autoReply, observer: observer}
}

// ClassifyIntent buckets a text body by keyword.
func ClassifyIntent(body string) string {
	b := strings.ToLower(body)
	switch {
	case strings.Contains(b, "catalog") || strings.Contains(b, "products"):
		return IntentCatalogRequest
	case strings.Contains(b, "order") || strings.Contains(b, "buy"):
		return IntentOrderInquiry
	default:
		return IntentOther
	}
}

func (h *EventHandler) HandleText(ctx context.Context, msg *TextMessage) error {
	intent := ClassifyIntent(msg.Body)
	err := h.publish(ctx, TopicTextReceived, model.EventTextReceived, model.TextMessageEvent{
		MessageID:  msg.ID,
		From:       sender(msg.MessageMeta),
		Body:       msg.Body,
		Intent:     intent,
		ReceivedAt: msg.Timestamp,
	})
	if err != nil {
		return err
	}

	// The event is already out. Failing here would release the claim and the
	// redelivery would publish it twice, so a failed reply is only reported.
	if h.autoReply && intent == IntentCatalogRequest && h.replier != nil {
		if _, err := h.replier.SendCatalogMessage(ctx, msg.From, "", ""); err != nil {
			h.observer.AutoReplyFailed(msg.From, err)
		}
	}
	return nil
}

func (h *EventHandler) HandleInteractive(ctx context.Context, msg *InteractiveMessage) error {
	return h.publish(ctx, TopicInteractiveReceived, model.EventInteractiveReceived, model.InteractiveMessageEvent{
		MessageID:  msg.ID,
		From:       sender(msg.MessageMeta),
		ReplyType:  msg.ReplyType,
		ReplyID:    msg.ReplyID,
		ReplyTitle: msg.ReplyTitle,
		ReceivedAt: msg.Timestamp,
	})
}

func (h *EventHandler) HandleOrder(ctx context.Context, msg *OrderMessage) error {
	lines := make([]model.OrderLine, 0, len(msg.Items))
	for _, it := range msg.Items {
		lines = append(lines, model.OrderLine{
			ProductRetailerID: it.ProductRetailerID,
			Quantity:          it.Quantity,
			ItemPrice:         FormatAmount(it.ItemPrice),
			Currency:          it.Currency,
		})
	}
	return h.publish(ctx, TopicOrderReceived, model.EventOrderReceived, model.OrderMessageEvent{
		MessageID:  msg.ID,
		From:       sender(msg.MessageMeta),
		CatalogID:  msg.CatalogID,
		Note:       msg.Note,
		Lines:      lines,
		Total:      FormatAmount(msg.Total()),
		ReceivedAt: msg.Timestamp,
	})
}

func (h *EventHandler) publish(ctx context.Context, topic, eventType string, payload any) error {
	if h.publisher == nil {
		return nil
	}
	env, err := model.NewEnvelope(topic, eventType, payload)
	if err != nil {
		return fmt.Errorf("build %s envelope: %w", eventType, err)
	}
	err = h.publisher.Publish(ctx, env)
	h.observer.EventPublished(eventType, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func sender(m MessageMeta) model.Sender {
	return model.Sender{Phone: m.From, Name: m.ContactName}
}
