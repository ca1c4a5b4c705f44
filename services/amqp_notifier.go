package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/lewisian8787/wrestleguess/logging"
)

// AMQPNotifier publishes notifications to a topic exchange, routed by type
type AMQPNotifier struct {
	url      string
	exchange string
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	logger   *logging.Logger
}

// NewAMQPNotifier dials the broker and declares the exchange
func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	n := &AMQPNotifier{
		url:      url,
		exchange: exchange,
		logger:   logging.WithPrefix("AMQP"),
	}
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *AMQPNotifier) connect() error {
	conn, err := amqp.DialConfig(n.url, amqp.Config{
		Heartbeat: 30 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		n.exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", n.exchange, err)
	}

	n.conn = conn
	n.channel = channel
	n.logger.Infof("Publishing notifications to exchange %s", n.exchange)
	return nil
}

// Notify publishes the notification as JSON with its type as routing key.
// A closed connection is redialled once.
func (n *AMQPNotifier) Notify(ctx context.Context, note Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil || n.conn.IsClosed() {
		n.logger.Warn("Connection closed, reconnecting")
		if err := n.connect(); err != nil {
			return err
		}
	}

	err = n.channel.Publish(n.exchange, note.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    note.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s for event %s: %w", note.Type, note.EventID, err)
	}
	return nil
}

// Close shuts the channel and connection
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
