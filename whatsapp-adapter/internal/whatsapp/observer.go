package whatsapp

import "time"

// RouteOutcome describes what happened to one inbound message.
type RouteOutcome string

const (
	RouteHandled   RouteOutcome = "handled"
	RouteDuplicate RouteOutcome = "duplicate"
	RouteFailed    RouteOutcome = "failed"
)

// Observer is told about every operation after it completes. Logging and
// metrics live behind it so parsing and normalization stay side-effect free.
type Observer interface {
	CatalogListed(catalogID string, report []Normalization, elapsed time.Duration, err error)
	ProductWritten(op, catalogID, productID string, elapsed time.Duration, err error)
	CatalogSynced(catalogID string, result *SyncResult, elapsed time.Duration, err error)
	MessageSent(kind, recipient string, result *SendResult, elapsed time.Duration, err error)
	WebhookVerified(ok bool)
	WebhookDelivered(ev *Event, result DispatchResult, elapsed time.Duration, err error)
	MessageRouted(msg InboundMessage, outcome RouteOutcome, err error)
	EventPublished(eventType string, err error)
	AutoReplyFailed(recipient string, err error)
}

// NopObserver discards every notification.
type NopObserver struct{}

func (NopObserver) CatalogListed(string, []Normalization, time.Duration, error) {}
func (NopObserver) ProductWritten(string, string, string, time.Duration, error) {}
func (NopObserver) CatalogSynced(string, *SyncResult, time.Duration, error) {}
func (NopObserver) MessageSent(string, string, *SendResult, time.Duration, error) {}
func (NopObserver) WebhookVerified(bool) {}
func (NopObserver) WebhookDelivered(*Event, DispatchResult, time.Duration, error) {}
func (NopObserver) MessageRouted(InboundMessage, RouteOutcome, error) {}
func (NopObserver) EventPublished(string, error) {}
func (NopObserver) AutoReplyFailed(string, error) {}
