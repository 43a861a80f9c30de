package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes envelopes to RabbitMQ with the topic as routing key.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	service  string
	logger   *zap.Logger
}

// DialAMQP connects to url and opens a channel. An empty exchange publishes
// through the default exchange.
func DialAMQP(url, exchange, service string, logger *zap.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if exchange != "" {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
		}
	}

	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange, service: service, logger: logger}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, env *model.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	table := amqp.Table{}
	for k, v := range headers(env, p.service) {
		table[k] = v
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		env.Topic, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.ID.String(),
			CorrelationId: env.CorrelationID.String(),
			Timestamp:     env.Timestamp,
			Type:          env.EventType,
			AppId:         p.service,
			Headers:       table,
			Body:          body,
		},
	)
	if err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("routing_key", env.Topic),
			zap.String("event_type", env.EventType),
			zap.Error(err))
		return fmt.Errorf("publish %s: %w", env.Topic, err)
	}
	return nil
}

func (p *AMQPPublisher) Status() string {
	if p.conn == nil || p.conn.IsClosed() {
		return "disconnected"
	}
	return "ok"
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn.Close()
	}
	return nil
}
