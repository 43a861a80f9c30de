package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted for inbound WhatsApp messages.
const (
	EventTextReceived        = "whatsapp.message.text"
	EventOrderReceived       = "whatsapp.message.order"
	EventInteractiveReceived = "whatsapp.message.interactive"
)

// Envelope is the canonical wrapper for every event this service publishes.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload under topic with fresh identifiers.
func NewEnvelope(topic, eventType string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		Topic:         topic,
		EventType:     eventType,
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Payload:       data,
	}, nil
}

// Sender identifies who sent an inbound message.
type Sender struct {
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

// TextMessageEvent is published for each inbound text message.
type TextMessageEvent struct {
	MessageID  string    `json:"message_id"`
	From       Sender    `json:"from"`
	Body       string    `json:"body"`
	Intent     string    `json:"intent"`
	ReceivedAt time.Time `json:"received_at"`
}

// OrderLine is one product line of an inbound cart order.
type OrderLine struct {
	ProductRetailerID string `json:"product_retailer_id"`
	Quantity          int    `json:"quantity"`
	ItemPrice         string `json:"item_price"`
	Currency          string `json:"currency,omitempty"`
}

// OrderMessageEvent is published for each inbound cart order.
type OrderMessageEvent struct {
	MessageID  string      `json:"message_id"`
	From       Sender      `json:"from"`
	CatalogID  string      `json:"catalog_id"`
	Note       string      `json:"note,omitempty"`
	Lines      []OrderLine `json:"lines"`
	Total      string      `json:"total"`
	ReceivedAt time.Time   `json:"received_at"`
}

// InteractiveMessageEvent is published for each button or list reply.
type InteractiveMessageEvent struct {
	MessageID  string    `json:"message_id"`
	From       Sender    `json:"from"`
	ReplyType  string    `json:"reply_type"`
	ReplyID    string    `json:"reply_id"`
	ReplyTitle string    `json:"reply_title"`
	ReceivedAt time.Time `json:"received_at"`
}

// EventCatalogSynced is emitted after a scheduled catalog sync completes.
const EventCatalogSynced = "whatsapp.catalog.synced"

// JobCompletedEvent reports one successful run of a background job.
type JobCompletedEvent struct {
	Job        string    `json:"job"`
	DurationMs int64     `json:"duration_ms"`
	Result     any       `json:"result,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}
