package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

// --- mock types ---

type mockJetStream struct {
	published []*nats.Msg
	fail      bool
}

func (m *mockJetStream) PublishMsg(msg *nats.Msg, _ ...nats.PubOpt) (*nats.PubAck, error) {
	if m.fail {
		return nil, errors.New("mock publish error")
	}
	m.published = append(m.published, msg)
	return &nats.PubAck{Stream: "mock-stream", Sequence: 1}, nil
}

type amqpCall struct {
	exchange, key string
	msg           amqp.Publishing
}

type mockChannel struct {
	calls  []amqpCall
	fail   bool
	closed bool
}

func (m *mockChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if m.fail {
		return errors.New("channel closed")
	}
	m.calls = append(m.calls, amqpCall{exchange: exchange, key: key, msg: msg})
	return nil
}

func (m *mockChannel) Close() error {
	m.closed = true
	return nil
}

func textEnvelope(t *testing.T) *model.Envelope {
	t.Helper()
	env, err := model.NewEnvelope("evt.whatsapp.message.text.v1", model.EventTextReceived,
		model.TextMessageEvent{MessageID: "wamid.1", From: model.Sender{Phone: "15551234567"}, Body: "hi"})
	require.NoError(t, err)
	return env
}

// --- NATS ---

func TestNATSPublish_Success(t *testing.T) {
	js := &mockJetStream{}
	pub := &NATSPublisher{js: js, service: "whatsapp-adapter", logger: zap.NewNop()}
	env := textEnvelope(t)

	require.NoError(t, pub.Publish(context.Background(), env))
	require.Len(t, js.published, 1)

	msg := js.published[0]
	assert.Equal(t, "evt.whatsapp.message.text.v1", msg.Subject)
	assert.Equal(t, model.EventTextReceived, msg.Header.Get("event_type"))
	assert.Equal(t, env.CorrelationID.String(), msg.Header.Get("correlation_id"))
	assert.Equal(t, "whatsapp-adapter", msg.Header.Get("service"))

	var parsed model.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &parsed))
	assert.Equal(t, env.ID, parsed.ID)
	assert.JSONEq(t, string(env.Payload), string(parsed.Payload))
}

func TestNATSPublish_Failure(t *testing.T) {
	pub := &NATSPublisher{js: &mockJetStream{fail: true}, logger: zap.NewNop()}
	err := pub.Publish(context.Background(), textEnvelope(t))
	assert.ErrorContains(t, err, "mock publish error")
}

func TestNATS_StatusAndCloseWithoutConnection(t *testing.T) {
	pub := &NATSPublisher{js: &mockJetStream{}, logger: zap.NewNop()}
	assert.Equal(t, "disconnected", pub.Status())
	assert.NoError(t, pub.Close())
}

// --- AMQP ---

func TestAMQPPublish_Success(t *testing.T) {
	ch := &mockChannel{}
	pub := &AMQPPublisher{channel: ch, exchange: "whatsapp.events", service: "whatsapp-adapter", logger: zap.NewNop()}
	env := textEnvelope(t)

	require.NoError(t, pub.Publish(context.Background(), env))
	require.Len(t, ch.calls, 1)

	call := ch.calls[0]
	assert.Equal(t, "whatsapp.events", call.exchange)
	assert.Equal(t, env.Topic, call.key)
	assert.Equal(t, "application/json", call.msg.ContentType)
	assert.Equal(t, amqp.Persistent, call.msg.DeliveryMode)
	assert.Equal(t, env.ID.String(), call.msg.MessageId)
	assert.Equal(t, model.EventTextReceived, call.msg.Type)
	assert.Equal(t, "whatsapp-adapter", call.msg.Headers["service"])

	var parsed model.Envelope
	require.NoError(t, json.Unmarshal(call.msg.Body, &parsed))
	assert.Equal(t, env.EventType, parsed.EventType)
}

func TestAMQPPublish_Failure(t *testing.T) {
	pub := &AMQPPublisher{channel: &mockChannel{fail: true}, logger: zap.NewNop()}
	err := pub.Publish(context.Background(), textEnvelope(t))
	assert.ErrorContains(t, err, "channel closed")
}

func TestAMQP_CloseClosesChannel(t *testing.T) {
	ch := &mockChannel{}
	pub := &AMQPPublisher{channel: ch, logger: zap.NewNop()}
	assert.Equal(t, "disconnected", pub.Status())
	require.NoError(t, pub.Close())
	assert.True(t, ch.closed)
}

// --- Nop ---

func TestNop(t *testing.T) {
	var sink Sink = Nop{Logger: zap.NewNop()}
	assert.NoError(t, sink.Publish(context.Background(), textEnvelope(t)))
	assert.Equal(t, "disabled", sink.Status())
	assert.NoError(t, sink.Close())
}
