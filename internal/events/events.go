// Package events publishes order lifecycle events to a RabbitMQ topic
// exchange.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xenking/foodcourt/internal/domain/order"
)

// Exchange and routing keys used for order events.
const (
	Exchange             = "orders"
	KeyOrderCreated      = "order.created"
	KeyOrderStatusChange = "order.status_changed"
)

const publishTimeout = 5 * time.Second

// Channel is the subset of *amqp091.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Publisher implements order.Notifier on top of an AMQP channel. Publishing
// goes through a circuit breaker so an unavailable broker does not slow down
// checkout.
type Publisher struct {
	ch  Channel
	cb  *gobreaker.CircuitBreaker
	lg  *zap.Logger
	now func() time.Time
}

var _ order.Notifier = (*Publisher)(nil)

// NewPublisher creates a Publisher for the given channel.
func NewPublisher(ch Channel, lg *zap.Logger) *Publisher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "amqp-publish",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn("Circuit breaker state changed",
				zap.String("circuit", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
	return &Publisher{ch: ch, cb: cb, lg: lg, now: time.Now}
}

// OrderCreated publishes an order.created event.
func (p *Publisher) OrderCreated(ctx context.Context, o *order.Order) error {
	return p.publish(ctx, KeyOrderCreated, encodeOrderCreated(o))
}

// StatusChanged publishes an order.status_changed event.
func (p *Publisher) StatusChanged(ctx context.Context, o *order.Order, from order.Status) error {
	return p.publish(ctx, KeyOrderStatusChange, encodeStatusChanged(o, from))
}

func (p *Publisher) publish(ctx context.Context, key string, body []byte) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		return nil, p.ch.PublishWithContext(ctx, Exchange, key, false, false, amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    p.now(),
			Body:         body,
		})
	})
	if err != nil {
		return errors.Wrapf(err, "publish %s", key)
	}
	p.lg.Debug("Event published", zap.String("routing_key", key), zap.Int("size", len(body)))
	return nil
}

// Nop is an order.Notifier that discards events.
type Nop struct{}

var _ order.Notifier = Nop{}

// OrderCreated implements order.Notifier.
func (Nop) OrderCreated(context.Context, *order.Order) error { return nil }

// StatusChanged implements order.Notifier.
func (Nop) StatusChanged(context.Context, *order.Order, order.Status) error { return nil }

func encodeOrderCreated(o *order.Order) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("event")
	e.Str(KeyOrderCreated)
	e.FieldStart("order_id")
	e.Str(o.ID)
	e.FieldStart("order_number")
	e.Str(o.Number)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("customer_email")
	e.Str(o.Customer.Email)
	e.FieldStart("customer_phone")
	e.Str(o.Customer.Phone)
	e.FieldStart("subtotal")
	writeDecimal(e, o.Subtotal)
	e.FieldStart("discount")
	writeDecimal(e, o.Discount)
	e.FieldStart("total")
	writeDecimal(e, o.Total)
	if o.DiscountCode != "" {
		e.FieldStart("discount_code")
		e.Str(o.DiscountCode)
	}
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range o.Lines {
		e.ObjStart()
		e.FieldStart("menu_item_id")
		e.Str(l.MenuItemID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("total_price")
		writeDecimal(e, l.Total)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()

	return append([]byte(nil), e.Bytes()...)
}

func encodeStatusChanged(o *order.Order, from order.Status) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("event")
	e.Str(KeyOrderStatusChange)
	e.FieldStart("order_id")
	e.Str(o.ID)
	e.FieldStart("order_number")
	e.Str(o.Number)
	e.FieldStart("from")
	e.Str(string(from))
	e.FieldStart("to")
	e.Str(string(o.Status))
	e.FieldStart("changed_at")
	e.Str(o.UpdatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()

	return append([]byte(nil), e.Bytes()...)
}

func writeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}
