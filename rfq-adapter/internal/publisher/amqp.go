package publisher

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/portcall/adapters/pkg/model"
)

// amqpChannel is the subset of *amqp.Channel the sink uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink publishes envelopes to a RabbitMQ topic exchange; the subject is the routing key.
type AMQPSink struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	service  string
}

// NewAMQPSink dials url and declares a durable topic exchange.
func NewAMQPSink(url, exchange, service string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &AMQPSink{conn: conn, channel: ch, exchange: exchange, service: service}, nil
}

func (s *AMQPSink) Publish(ctx context.Context, subject string, env *model.Envelope) error {
	data, err := marshal(env)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(ctx, s.exchange, subject, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.ID.String(),
		CorrelationId: env.CorrelationID.String(),
		Timestamp:     env.Timestamp,
		Type:          env.EventType,
		AppId:         s.service,
		Body:          data,
	})
}

func (s *AMQPSink) Healthy() error {
	if s.conn == nil || s.conn.IsClosed() {
		return fmt.Errorf("amqp connection closed")
	}
	return nil
}

func (s *AMQPSink) Close() error {
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil && !s.conn.IsClosed() {
		return s.conn.Close()
	}
	return nil
}
