// Package broker publishes JSON messages to a RabbitMQ topic exchange.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/exp/slog"
)

const publishTimeout = 5 * time.Second

// Broker owns one connection and channel and redials when they drop
type Broker struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	url      string
	now      func() time.Time
}

// NewBroker connects to RabbitMQ and declares a durable topic exchange
func NewBroker(url, exchange string) (*Broker, error) {
	b := &Broker{exchange: exchange, url: url, now: time.Now}
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Broker) connect() error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", b.exchange, err)
	}
	b.conn = conn
	b.channel = ch
	return nil
}

func (b *Broker) ensureConnection() error {
	if b.conn != nil && !b.conn.IsClosed() && b.channel != nil && !b.channel.IsClosed() {
		return nil
	}
	slog.Warn("RabbitMQ connection lost, reconnecting", "exchange", b.exchange)
	if b.conn != nil {
		b.conn.Close()
	}
	return b.connect()
}

// Publish sends message as JSON with the given routing key
func (b *Broker) Publish(message interface{}, routingKey string) error {
	msg, err := b.envelope(message)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureConnection(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.channel.PublishWithContext(ctx, b.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", routingKey, err)
	}
	slog.Debug("Published message", "exchange", b.exchange, "routingKey", routingKey, "messageId", msg.MessageId)
	return nil
}

func (b *Broker) envelope(message interface{}) (amqp.Publishing, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal message: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    b.now(),
		Body:         body,
	}, nil
}

// Close shuts the channel and the connection
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channel != nil {
		if err := b.channel.Close(); err != nil && err != amqp.ErrClosed {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil && err != amqp.ErrClosed {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}
