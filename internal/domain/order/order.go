package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/foodcourt/internal/domain/pricing"
)

// Customer holds guest contact details. At least one field is set.
type Customer struct {
	Email string
	Phone string
}

// Address is the delivery destination.
type Address struct {
	Street       string
	City         string
	PostalCode   string
	Instructions string
}

// Order is a placed order. Amounts satisfy
// Total == Subtotal + Tax + DeliveryFee - Discount.
type Order struct {
	ID                  string
	Number              string
	Customer            Customer
	Address             Address
	Status              Status
	Subtotal            decimal.Decimal
	Tax                 decimal.Decimal
	DeliveryFee         decimal.Decimal
	Discount            decimal.Decimal
	DiscountCode        string
	Total               decimal.Decimal
	SpecialInstructions string
	Lines               []pricing.Line
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ListFilter selects a page of orders, newest first.
type ListFilter struct {
	Status Status
	Offset int
	Limit  int
}

// Summary aggregates order statistics.
type Summary struct {
	TotalOrders  int
	TodayOrders  int
	TotalRevenue decimal.Decimal
	ByStatus     map[Status]int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores the order with its lines. When o.DiscountCode is set the
	// usage count of that code is incremented in the same transaction.
	Create(ctx context.Context, o *Order) error
	GetByNumber(ctx context.Context, number string) (*Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error
	Summary(ctx context.Context, since time.Time) (*Summary, error)
}

// Notifier is told about committed order changes.
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order) error
	StatusChanged(ctx context.Context, o *Order, from Status) error
}
