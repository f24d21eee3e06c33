package events

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Conn is a RabbitMQ connection with the orders exchange declared.
type Conn struct {
	mu   sync.Mutex
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

// Dial connects to the broker at url and declares the durable topic
// exchange used for order events.
func Dial(url string, lg *zap.Logger) (*Conn, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %s", Exchange)
	}

	lg.Info("Connected to message broker", zap.String("exchange", Exchange))
	return &Conn{conn: conn, ch: ch}, nil
}

// PublishWithContext implements Channel.
func (c *Conn) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn.IsClosed() {
		return amqp091.ErrClosed
	}
	return c.ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

// Check reports whether the connection is still open. It is used as a
// readiness check.
func (c *Conn) Check(_ context.Context) error {
	if c.conn.IsClosed() {
		return errors.New("amqp connection closed")
	}
	return nil
}

// Close closes the channel and the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ch.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
		return errors.Wrap(err, "close channel")
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
		return errors.Wrap(err, "close connection")
	}
	return nil
}
