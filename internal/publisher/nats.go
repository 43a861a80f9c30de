package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

type jetStream interface {
	PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSPublisher publishes envelopes to JetStream, one subject per topic.
type NATSPublisher struct {
	nc      *nats.Conn
	js      jetStream
	service string
	logger  *zap.Logger
}

// StreamConfig names the JetStream stream that captures published subjects.
// An empty Name skips stream provisioning.
type StreamConfig struct {
	Name     string
	Subjects []string
}

// NewNATS enables JetStream on nc and makes sure the stream exists.
func NewNATS(nc *nats.Conn, stream StreamConfig, service string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if stream.Name != "" {
		if _, err := js.StreamInfo(stream.Name); err != nil {
			if !errors.Is(err, nats.ErrStreamNotFound) {
				return nil, fmt.Errorf("stream info %s: %w", stream.Name, err)
			}
			if _, err := js.AddStream(&nats.StreamConfig{Name: stream.Name, Subjects: stream.Subjects}); err != nil {
				return nil, fmt.Errorf("add stream %s: %w", stream.Name, err)
			}
			logger.Info("publisher.stream_created",
				zap.String("stream", stream.Name),
				zap.Strings("subjects", stream.Subjects))
		}
	}

	return &NATSPublisher{nc: nc, js: js, service: service, logger: logger}, nil
}

// Publish serializes env and publishes it on env.Topic.
func (p *NATSPublisher) Publish(_ context.Context, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := &nats.Msg{Subject: env.Topic, Data: data, Header: nats.Header{}}
	for k, v := range headers(env, p.service) {
		msg.Header.Set(k, v)
	}

	if _, err := p.js.PublishMsg(msg); err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("subject", env.Topic),
			zap.String("event_type", env.EventType),
			zap.Error(err))
		return fmt.Errorf("publish %s: %w", env.Topic, err)
	}

	p.logger.Debug("publisher.publish_success",
		zap.String("subject", env.Topic),
		zap.String("event_type", env.EventType))
	return nil
}

func (p *NATSPublisher) Status() string {
	if p.nc == nil || !p.nc.IsConnected() {
		return "disconnected"
	}
	return "ok"
}

// Close drains the connection so in-flight publishes complete.
func (p *NATSPublisher) Close() error {
	if p.nc == nil || p.nc.IsClosed() {
		return nil
	}
	return p.nc.Drain()
}
