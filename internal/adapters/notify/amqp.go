package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/okian/carematch/internal/domain/model"
	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeKind = "topic"

// publisher is the slice of *amqp.Channel the notifier needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes events as JSON to a topic exchange. The routing key
// is the event type, e.g. booking.assigned.
type AMQPNotifier struct {
	exchange string
	appID    string

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     publisher
	closed bool
}

// DialAMQP connects to url and declares a durable topic exchange.
func DialAMQP(url, exchange string, opts ...AMQPOption) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %w", ErrConnect, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: open channel: %w", ErrConnect, err)
	}
	if err := ch.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%w: declare exchange %q: %w", ErrConnect, exchange, err)
	}

	n := newAMQPNotifier(ch, exchange, opts...)
	n.conn = conn
	return n, nil
}

func newAMQPNotifier(ch publisher, exchange string, opts ...AMQPOption) *AMQPNotifier {
	n := &AMQPNotifier{exchange: exchange, appID: defaultAppID, ch: ch}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify implements worker.Notifier.
func (n *AMQPNotifier) Notify(ctx context.Context, e model.AssignmentEvent) error { //nolint:gocritic // hugeParam
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrPublish, e.EventID, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}

	err = n.ch.PublishWithContext(ctx, n.exchange, e.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.EventID,
		Timestamp:    e.TS,
		Type:         e.Type,
		AppId:        n.appID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublish, e.EventID, err)
	}
	return nil
}

// Close releases the channel and connection. Safe to call more than once.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true

	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
