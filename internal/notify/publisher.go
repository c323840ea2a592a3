package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/service"
	"github.com/rabbitmq/amqp091-go"
)

// PublishTimeout bounds a single publish attempt.
const PublishTimeout = 5 * time.Second

// publishChannel is the part of *amqp091.Channel the publisher uses.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends ledger events to a durable direct exchange as persistent
// JSON messages, routed by queue name.
type Publisher struct {
	channel      publishChannel
	conn         io.Closer
	exchangeName string
	queueName    string
	retry        service.RetryOptions
}

var _ service.Notifier = (*Publisher)(nil)

// NewPublisher dials url and declares the exchange, the queue and their binding.
func NewPublisher(url, exchangeName, queueName string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, exchangeName, queueName); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return newPublisher(channel, conn, exchangeName, queueName), nil
}

func newPublisher(ch publishChannel, conn io.Closer, exchangeName, queueName string) *Publisher {
	return &Publisher{
		channel:      ch,
		conn:         conn,
		exchangeName: exchangeName,
		queueName:    queueName,
		retry:        common.PublishRetry,
	}
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Direct exchange: the routing key is the queue name.
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Notify publishes event, retrying transient failures.
func (p *Publisher) Notify(ctx context.Context, event service.Event) error {
	msg := NewEventMessage(event)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = common.WithRetry(ctx, func() error {
		return p.publish(ctx, body, msg.Timestamp)
	}, p.retry)
	if err != nil {
		return fmt.Errorf("publish %s event for %s: %w", msg.Type, msg.Username, err)
	}

	slog.DebugContext(ctx, "Published ledger event",
		common.FieldUser, msg.Username,
		"type", msg.Type,
		"exchange", p.exchangeName,
		"queue", p.queueName)
	return nil
}

func (p *Publisher) publish(ctx context.Context, body []byte, ts time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, PublishTimeout)
	defer cancel()

	return p.channel.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		p.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ts,
			Body:         body,
		},
	)
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
