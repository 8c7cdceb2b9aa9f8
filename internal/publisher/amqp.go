package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/etims-adapter/internal/metrics"
	"github.com/Checker-Finance/etims-adapter/pkg/model"
)

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes envelopes to RabbitMQ, routed by topic.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	service  string
	logger   *zap.Logger
}

// NewAMQP dials url and opens a channel. An empty exchange publishes through
// the default exchange, where the routing key is the queue name.
func NewAMQP(url, exchange, service string, logger *zap.Logger) (*AMQPPublisher, error) {
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
		if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
		}
	}
	p := newAMQPPublisher(ch, exchange, service, logger)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch amqpChannel, exchange, service string, logger *zap.Logger) *AMQPPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPPublisher{channel: ch, exchange: exchange, service: service, logger: logger}
}

// Publish sends env as a persistent JSON message with routing key env.Topic.
func (p *AMQPPublisher) Publish(ctx context.Context, env *model.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		metrics.IncEventPublished("amqp", env.EventType, "marshal_failed")
		return err
	}

	start := time.Now()
	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		env.Topic,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.ID.String(),
			CorrelationId: env.CorrelationID,
			Timestamp:     env.Timestamp,
			Type:          env.EventType,
			AppId:         p.service,
			Headers: amqp.Table{
				"tin":    env.TIN,
				"bhf_id": env.BranchID,
			},
			Body: body,
		},
	)
	metrics.ObserveDuration(metrics.EventPublishLatency, start, "amqp")
	if err != nil {
		p.logger.Error("publisher.amqp_publish_failed",
			zap.String("routing_key", env.Topic),
			zap.String("event_type", env.EventType),
			zap.Error(err))
		metrics.IncEventPublished("amqp", env.EventType, "error")
		return err
	}

	p.logger.Info("publisher.amqp_publish_success",
		zap.String("routing_key", env.Topic),
		zap.String("event_type", env.EventType),
		zap.String("tin", env.TIN))
	metrics.IncEventPublished("amqp", env.EventType, "ok")
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
