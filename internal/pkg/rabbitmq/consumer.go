package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/courier-payroll-go/internal/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPermanent marks a message that will never succeed on redelivery.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so the consumer acks instead of requeueing.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

type Handler func(ctx context.Context, body []byte) error

type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.RabbitMQConfig
}

func NewConsumer(cfg config.RabbitMQConfig) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Set prefetch count
	if err := channel.Qos(cfg.PrefetchCount, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &Consumer{
		conn:    conn,
		channel: channel,
		config:  cfg,
	}, nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// IsClosed reports whether the broker connection has gone away.
func (c *Consumer) IsClosed() bool {
	return c.conn == nil || c.conn.IsClosed()
}

// Ping fails once the broker connection is closed.
func (c *Consumer) Ping(ctx context.Context) error {
	if c.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// ConsumeQueue blocks delivering messages to handler until ctx is cancelled
// or the channel closes.
func (c *Consumer) ConsumeQueue(ctx context.Context, queueName string, handler Handler) error {
	// Declare queue (idempotent)
	_, err := c.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	msgs, err := c.channel.Consume(
		queueName,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("Started consuming from queue", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Consumer stopping", "queue", queueName)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", queueName)
			}
			handleDelivery(ctx, msg, handler, c.config.RetryDelay)
		}
	}
}

// handleDelivery requeues a transiently failed message only after retryDelay.
func handleDelivery(ctx context.Context, msg amqp.Delivery, handler Handler, retryDelay time.Duration) {
	err := handler(ctx, msg.Body)
	switch {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			slog.Error("Failed to ack message", "error", ackErr)
		}
	case errors.Is(err, ErrPermanent):
		slog.Error("Dropping message", "message_id", msg.MessageId, "error", err)
		if ackErr := msg.Ack(false); ackErr != nil {
			slog.Error("Failed to ack message", "error", ackErr)
		}
	default:
		slog.Warn("Error processing message, requeueing",
			"message_id", msg.MessageId,
			"retry_in", retryDelay.String(),
			"error", err,
		)
		waitBeforeRetry(ctx, retryDelay)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			slog.Error("Failed to nack message", "error", nackErr)
		}
	}
}

// waitBeforeRetry returns early on shutdown; the message is still requeued.
func waitBeforeRetry(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
