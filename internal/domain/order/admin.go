package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Pagination defaults for ListOrders.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListParams selects a page of orders. Zero values use the defaults.
type ListParams struct {
	Status Status
	Page   int
	Limit  int
}

// Page is one page of orders with pagination metadata.
type Page struct {
	Orders     []Order
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// ListOrders returns orders newest first, optionally filtered by status.
func (s *Service) ListOrders(ctx context.Context, p ListParams) (*Page, error) {
	if p.Status != "" && !p.Status.Valid() {
		return nil, &ValidationError{Message: "unknown order status " + string(p.Status)}
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}

	orders, total, err := s.orders.List(ctx, ListFilter{
		Status: p.Status,
		Offset: (p.Page - 1) * p.Limit,
		Limit:  p.Limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	return &Page{
		Orders:     orders,
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: (total + p.Limit - 1) / p.Limit,
	}, nil
}

// UpdateStatus moves an order to a new status if the configured
// TransitionPolicy allows it.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (*Order, error) {
	if !to.Valid() {
		return nil, &ValidationError{Message: "unknown order status " + string(to)}
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := o.Status
	if err := s.cfg.Policy.Allow(from, to); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.orders.UpdateStatus(ctx, id, to, now); err != nil {
		return nil, errors.Wrapf(err, "update status of order %s", id)
	}
	o.Status = to
	o.UpdatedAt = now

	zctx.From(ctx).Info("Order status changed",
		zap.String("order_number", o.Number),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	s.notify(ctx, "status changed", s.notifier.StatusChanged(ctx, o, from))

	return o, nil
}

// Summary returns order statistics. "Today" starts at local midnight.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	sum, err := s.orders.Summary(ctx, midnight)
	if err != nil {
		return nil, errors.Wrap(err, "order summary")
	}
	return sum, nil
}
