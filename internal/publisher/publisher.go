package publisher

import (
	"context"

	"go.uber.org/zap"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

// Sink names accepted by EVENT_SINK.
const (
	SinkNone = "none"
	SinkNATS = "nats"
	SinkAMQP = "amqp"
)

// Sink publishes canonical envelopes and reports its connection state.
type Sink interface {
	Publish(ctx context.Context, env *model.Envelope) error
	Status() string
	Close() error
}

func headers(env *model.Envelope, service string) map[string]string {
	return map[string]string{
		"event_type":     env.EventType,
		"correlation_id": env.CorrelationID.String(),
		"service":        service,
		"content_type":   "application/json",
	}
}

// Nop drops every envelope. Used when EVENT_SINK=none.
type Nop struct {
	Logger *zap.Logger
}

func (n Nop) Publish(_ context.Context, env *model.Envelope) error {
	if n.Logger != nil && env != nil {
		n.Logger.Debug("publisher.dropped",
			zap.String("topic", env.Topic),
			zap.String("event_type", env.EventType))
	}
	return nil
}

func (Nop) Status() string { return "disabled" }
func (Nop) Close() error   { return nil }
