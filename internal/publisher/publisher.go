// Package publisher delivers eTims submission events to the event bus.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/etims-adapter/internal/metrics"
	"github.com/Checker-Finance/etims-adapter/pkg/model"
)

// Sink publishes canonical envelopes. Implementations satisfy etims.EventSink.
type Sink interface {
	Publish(ctx context.Context, env *model.Envelope) error
	Close() error
}

// jetStream is the part of nats.JetStreamContext the publisher needs.
type jetStream interface {
	PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSPublisher publishes envelopes to NATS JetStream.
type NATSPublisher struct {
	nc      *nats.Conn
	js      jetStream
	prefix  string
	service string
	logger  *zap.Logger
}

// NewNATS connects to url and enables JetStream. Envelopes are published on
// prefix + "." + topic, or on the bare topic when prefix is empty.
func NewNATS(url, prefix, service string, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name(service))
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}
	return newNATSPublisher(nc, js, prefix, service, logger), nil
}

func newNATSPublisher(nc *nats.Conn, js jetStream, prefix, service string, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{
		nc:      nc,
		js:      js,
		prefix:  strings.TrimSuffix(prefix, "."),
		service: service,
		logger:  logger,
	}
}

// Subject returns the subject an envelope with topic is published on.
func (p *NATSPublisher) Subject(topic string) string {
	if p.prefix == "" {
		return topic
	}
	return p.prefix + "." + topic
}

// Publish serializes env and publishes it with tracing headers.
func (p *NATSPublisher) Publish(ctx context.Context, env *model.Envelope) error {
	subject := p.Subject(env.Topic)
	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("publisher.marshal_failed",
			zap.String("subject", subject),
			zap.String("event_type", env.EventType),
			zap.Error(err))
		metrics.IncEventPublished("nats", env.EventType, "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			"tin":            []string{env.TIN},
			"bhf_id":         []string{env.BranchID},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg, nats.Context(ctx), nats.MsgId(env.ID.String()))
	metrics.ObserveDuration(metrics.EventPublishLatency, start, "nats")
	if err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("subject", subject),
			zap.String("event_type", env.EventType),
			zap.String("tin", env.TIN),
			zap.Error(err))
		metrics.IncEventPublished("nats", env.EventType, "error")
		return err
	}

	p.logger.Info("publisher.publish_success",
		zap.String("subject", subject),
		zap.String("event_type", env.EventType),
		zap.String("tin", env.TIN))
	metrics.IncEventPublished("nats", env.EventType, "ok")
	return nil
}

// HealthCheck reports whether the NATS connection is up and responsive.
func (p *NATSPublisher) HealthCheck(ctx context.Context) error {
	if p.nc == nil || !p.nc.IsConnected() {
		return errors.New("disconnected")
	}
	timeout := time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	return p.nc.FlushTimeout(timeout)
}

// Close closes the NATS connection if it is still open.
func (p *NATSPublisher) Close() error {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
	return nil
}

// Nop discards every envelope. It is used when no event bus is configured.
type Nop struct{}

func (Nop) Publish(context.Context, *model.Envelope) error { return nil }
func (Nop) Close() error                                   { return nil }
