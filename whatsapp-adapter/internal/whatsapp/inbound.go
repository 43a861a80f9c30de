package whatsapp

import (
	"time"

	"github.com/shopspring/decimal"
)

// InboundMessage is one parsed message from a webhook delivery:
// a *TextMessage, *InteractiveMessage or *OrderMessage.
type InboundMessage interface {
	Meta() MessageMeta
	Kind() string
}

// MessageMeta is carried by every inbound message variant.
type MessageMeta struct {
	ID          string
	From        string
	Timestamp   time.Time
	ContactName string
}

func (m MessageMeta) Meta() MessageMeta { return m }

// TextMessage is a free-form text sent by a customer.
type TextMessage struct {
	MessageMeta
	Body string
}

func (*TextMessage) Kind() string { return "text" }

// InteractiveMessage is a button or list reply.
type InteractiveMessage struct {
	MessageMeta
	ReplyType  string
	ReplyID    string
	ReplyTitle string
}

func (*InteractiveMessage) Kind() string { return "interactive" }

// OrderItem is one cart line of an order message.
type OrderItem struct {
	ProductRetailerID string
	Quantity          int
	ItemPrice         decimal.Decimal
	Currency          string
}

// OrderMessage is a cart submitted from the catalog.
type OrderMessage struct {
	MessageMeta
	CatalogID string
	Note      string
	Items     []OrderItem
}

func (*OrderMessage) Kind() string { return "order" }

// Total sums quantity times item price over every line.
func (o *OrderMessage) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.ItemPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// Event is a parsed webhook delivery.
type Event struct {
	Object   string
	Messages []InboundMessage
	// Skipped counts messages of types nobody handles (image, audio, ...).
	Skipped  int
	Statuses int
	// Invalid holds messages that were dropped because they failed validation.
	Invalid  []InvalidMessage
}

// InvalidMessage is one message ParseEvent could not convert. Redelivering
// the same body cannot fix it, so it is acknowledged and reported instead.
type InvalidMessage struct {
	Path      string
	MessageID string
	Err       error
}
