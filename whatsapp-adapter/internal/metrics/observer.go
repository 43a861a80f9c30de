package metrics

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/commerce-adapters/pkg/utils"
	"github.com/Checker-Finance/commerce-adapters/whatsapp-adapter/internal/whatsapp"
)

// Observer logs and counts every whatsapp operation once it completes.
type Observer struct {
	logger *zap.Logger
}

var _ whatsapp.Observer = (*Observer)(nil)

func NewObserver(logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{logger: logger}
}

func (o *Observer) CatalogListed(catalogID string, report []whatsapp.Normalization, elapsed time.Duration, err error) {
	o.graphCall("list_products", elapsed, err)
	if err != nil {
		o.logger.Error("whatsapp.catalog.list_failed",
			append(errorFields(err), zap.String("catalog_id", catalogID))...)
		return
	}

	degraded := 0
	for _, n := range report {
		if n.PriceRule == whatsapp.PriceRuleDefault {
			NormalizationDegraded.WithLabelValues("price", string(n.PriceRule)).Inc()
		}
		if n.ImageSource == whatsapp.ImageSourcePlaceholder {
			NormalizationDegraded.WithLabelValues("image", string(n.ImageSource)).Inc()
		}
		if n.CurrencyDefaulted {
			NormalizationDegraded.WithLabelValues("currency", "default").Inc()
		}
		if n.Degraded() {
			degraded++
		}
	}

	o.logger.Info("whatsapp.catalog.listed",
		zap.String("catalog_id", catalogID),
		zap.Int("products", len(report)),
		zap.Int("degraded", degraded),
		zap.Duration("elapsed", elapsed))
}

func (o *Observer) ProductWritten(op, catalogID, productID string, elapsed time.Duration, err error) {
	o.graphCall(op+"_product", elapsed, err)
	if err != nil {
		o.logger.Error("whatsapp.catalog."+op+"_failed",
			append(errorFields(err),
				zap.String("catalog_id", catalogID),
				zap.String("product_id", productID))...)
		return
	}
	o.logger.Info("whatsapp.catalog."+op+"d",
		zap.String("catalog_id", catalogID),
		zap.String("product_id", productID),
		zap.Duration("elapsed", elapsed))
}

func (o *Observer) CatalogSynced(catalogID string, res *whatsapp.SyncResult, elapsed time.Duration, err error) {
	if err != nil {
		o.logger.Error("whatsapp.catalog.sync_failed",
			append(errorFields(err), zap.String("catalog_id", catalogID))...)
		return
	}
	if res == nil {
		return
	}
	SyncProductsTotal.WithLabelValues("created").Add(float64(res.Created))
	SyncProductsTotal.WithLabelValues("updated").Add(float64(res.Updated))
	SyncProductsTotal.WithLabelValues("failed").Add(float64(len(res.Failed)))

	level := o.logger.Info
	if len(res.Failed) > 0 {
		level = o.logger.Warn
	}
	level("whatsapp.catalog.synced",
		zap.String("catalog_id", catalogID),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("elapsed", elapsed))
}

func (o *Observer) MessageSent(kind, recipient string, res *whatsapp.SendResult, elapsed time.Duration, err error) {
	o.graphCall("send_"+kind, elapsed, err)
	if err != nil {
		o.logger.Error("whatsapp.message.send_failed",
			append(errorFields(err),
				zap.String("kind", kind),
				zap.String("to", utils.MaskPhone(recipient)))...)
		return
	}
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("to", utils.MaskPhone(recipient)),
		zap.Duration("elapsed", elapsed),
	}
	if res != nil {
		fields = append(fields, zap.String("message_id", res.MessageID))
	}
	o.logger.Info("whatsapp.message.sent", fields...)
}

func (o *Observer) WebhookVerified(ok bool) {
	if !ok {
		WebhookVerificationsTotal.WithLabelValues("rejected").Inc()
		o.logger.Warn("whatsapp.webhook.verification_failed")
		return
	}
	WebhookVerificationsTotal.WithLabelValues("ok").Inc()
	o.logger.Info("whatsapp.webhook.verified")
}

func (o *Observer) WebhookDelivered(ev *whatsapp.Event, res whatsapp.DispatchResult, elapsed time.Duration, err error) {
	WebhookDeliveryDuration.Observe(elapsed.Seconds())
	WebhookDeliveriesTotal.WithLabelValues(result(err)).Inc()
	if ev != nil && ev.Skipped > 0 {
		InboundMessagesTotal.WithLabelValues("unsupported", "skipped").Add(float64(ev.Skipped))
	}
	if ev != nil {
		for _, bad := range ev.Invalid {
			InboundMessagesTotal.WithLabelValues("invalid", "skipped").Inc()
			o.logger.Warn("whatsapp.webhook.message_invalid",
				zap.String("path", bad.Path),
				zap.String("message_id", bad.MessageID),
				zap.Error(bad.Err))
		}
	}

	if err != nil {
		IncError("webhook", reason(err))
		o.logger.Error("whatsapp.webhook.delivery_failed",
			zap.Int("handled", res.Handled),
			zap.Int("failed", res.Failed),
			zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.Int("handled", res.Handled),
		zap.Int("duplicates", res.Duplicates),
		zap.Duration("elapsed", elapsed),
	}
	if ev != nil {
		fields = append(fields,
			zap.String("object", ev.Object),
			zap.Int("skipped", ev.Skipped),
			zap.Int("invalid", len(ev.Invalid)),
			zap.Int("statuses", ev.Statuses))
	}
	o.logger.Info("whatsapp.webhook.delivered", fields...)
}

func (o *Observer) MessageRouted(msg whatsapp.InboundMessage, outcome whatsapp.RouteOutcome, err error) {
	InboundMessagesTotal.WithLabelValues(msg.Kind(), string(outcome)).Inc()
	meta := msg.Meta()
	switch outcome {
	case whatsapp.RouteFailed:
		o.logger.Error("whatsapp.webhook.handler_failed",
			zap.String("message_id", meta.ID),
			zap.String("type", msg.Kind()),
			zap.String("from", utils.MaskPhone(meta.From)),
			zap.Error(err))
	case whatsapp.RouteDuplicate:
		o.logger.Info("whatsapp.webhook.duplicate_ignored",
			zap.String("message_id", meta.ID),
			zap.String("type", msg.Kind()))
	default:
		o.logger.Debug("whatsapp.webhook.message_routed",
			zap.String("message_id", meta.ID),
			zap.String("type", msg.Kind()),
			zap.String("from", utils.MaskPhone(meta.From)))
	}
}

func (o *Observer) EventPublished(eventType string, err error) {
	EventsPublishedTotal.WithLabelValues(eventType, result(err)).Inc()
	if err != nil {
		IncError("publisher", "publish_failed")
	}
}

func (o *Observer) AutoReplyFailed(recipient string, err error) {
	IncError("webhook", "auto_reply_failed")
	o.logger.Warn("whatsapp.webhook.auto_reply_failed",
		append(errorFields(err), zap.String("to", utils.MaskPhone(recipient)))...)
}

func (o *Observer) graphCall(op string, elapsed time.Duration, err error) {
	IncGraphRequest(op, result(err))
	GraphRequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	if err != nil {
		IncError("graph", reason(err))
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, whatsapp.ErrConfiguration):
		return "configuration"
	case errors.Is(err, whatsapp.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, whatsapp.ErrUpstreamRejected):
		return "upstream_rejected"
	case errors.Is(err, whatsapp.ErrDeliveryFailed):
		return "delivery_failed"
	case errors.Is(err, whatsapp.ErrMalformedInboundEvent):
		return "malformed_event"
	default:
		return "internal"
	}
}

func errorFields(err error) []zap.Field {
	fields := []zap.Field{zap.String("reason", reason(err)), zap.Error(err)}
	var ue *whatsapp.UpstreamError
	if errors.As(err, &ue) {
		fields = append(fields, zap.Int("status", ue.Status), zap.String("op", ue.Op))
		if ue.Graph != nil {
			fields = append(fields,
				zap.Int("graph_code", ue.Graph.Code),
				zap.String("fbtrace_id", ue.Graph.FBTraceID))
		}
	}
	return fields
}
