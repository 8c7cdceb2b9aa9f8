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

	"github.com/Checker-Finance/etims-adapter/pkg/etims"
	"github.com/Checker-Finance/etims-adapter/pkg/model"
)

var (
	_ etims.EventSink = (*NATSPublisher)(nil)
	_ etims.EventSink = (*AMQPPublisher)(nil)
	_ etims.EventSink = Nop{}
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
	return &nats.PubAck{Stream: "ETIMS"}, nil
}

type mockChannel struct {
	exchange string
	key      string
	msgs     []amqp.Publishing
	fail     bool
	closed   bool
}

func (m *mockChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if m.fail {
		return errors.New("channel/connection is not open")
	}
	m.exchange = exchange
	m.key = key
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *mockChannel) Close() error {
	m.closed = true
	return nil
}

func testEnvelope() *model.Envelope {
	payload, _ := json.Marshal(model.SubmissionPayload{
		Request:  json.RawMessage(`{"invcNo":"INV-001"}`),
		Response: json.RawMessage(`{"resultCd":"0000"}`),
	})
	return model.NewEnvelope("etims-adapter", etims.EventTopic(model.EventSalesSubmitted),
		model.EventSalesSubmitted, "P000000001A", "00", payload)
}

// --- NATS ---

func TestNATSPublish(t *testing.T) {
	js := &mockJetStream{}
	p := newNATSPublisher(nil, js, "checker.", "etims-adapter", nil)
	env := testEnvelope()

	require.NoError(t, p.Publish(context.Background(), env))
	require.Len(t, js.published, 1)

	msg := js.published[0]
	assert.Equal(t, "checker.evt.etims.sales.submitted.v1", msg.Subject)
	assert.Equal(t, "sales.submitted", msg.Header.Get("event_type"))
	assert.Equal(t, env.CorrelationID, msg.Header.Get("correlation_id"))
	assert.Equal(t, "P000000001A", msg.Header.Get("tin"))
	assert.Equal(t, "etims-adapter", msg.Header.Get("service"))

	var decoded model.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, env.ID, decoded.ID)
	assert.Equal(t, "00", decoded.BranchID)
}

func TestNATSPublish_NoPrefix(t *testing.T) {
	p := newNATSPublisher(nil, &mockJetStream{}, "", "svc", nil)
	assert.Equal(t, "evt.etims.item.saved.v1", p.Subject(etims.EventTopic(model.EventItemSaved)))
}

func TestNATSPublish_Failure(t *testing.T) {
	p := newNATSPublisher(nil, &mockJetStream{fail: true}, "checker", "svc", nil)
	err := p.Publish(context.Background(), testEnvelope())
	assert.Error(t, err)
}

func TestNATSClose_NilConn(t *testing.T) {
	p := newNATSPublisher(nil, &mockJetStream{}, "", "svc", nil)
	assert.NoError(t, p.Close())
}

// --- AMQP ---

func TestAMQPPublish(t *testing.T) {
	ch := &mockChannel{}
	p := newAMQPPublisher(ch, "etims.events", "etims-adapter", nil)
	env := testEnvelope()

	require.NoError(t, p.Publish(context.Background(), env))
	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "etims.events", ch.exchange)
	assert.Equal(t, "evt.etims.sales.submitted.v1", ch.key)

	msg := ch.msgs[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, env.ID.String(), msg.MessageId)
	assert.Equal(t, "sales.submitted", msg.Type)
	assert.Equal(t, "P000000001A", msg.Headers["tin"])
	assert.JSONEq(t, mustJSON(t, env), string(msg.Body))
}

func TestAMQPPublish_Failure(t *testing.T) {
	p := newAMQPPublisher(&mockChannel{fail: true}, "", "svc", nil)
	assert.Error(t, p.Publish(context.Background(), testEnvelope()))
}

func TestAMQPClose(t *testing.T) {
	ch := &mockChannel{}
	p := newAMQPPublisher(ch, "", "svc", nil)
	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestNop(t *testing.T) {
	var s Sink = Nop{}
	assert.NoError(t, s.Publish(context.Background(), testEnvelope()))
	assert.NoError(t, s.Close())
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestNATSHealthCheck_NoConn(t *testing.T) {
	p := newNATSPublisher(nil, &mockJetStream{}, "", "svc", nil)
	assert.EqualError(t, p.HealthCheck(context.Background()), "disconnected")
}
