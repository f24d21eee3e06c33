package order

import (
	"context"
	"math/rand/v2"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/foodcourt/internal/domain/discount"
	"github.com/xenking/foodcourt/internal/domain/menu"
	"github.com/xenking/foodcourt/internal/domain/pricing"
)

// DefaultDeliveryWindow is added to the creation time to estimate delivery.
const DefaultDeliveryWindow = 40 * time.Minute

// Config holds the checkout parameters of the order Service.
type Config struct {
	Rates          pricing.Rates
	DeliveryWindow time.Duration
	Policy         TransitionPolicy
}

// DefaultConfig returns the standard checkout parameters with permissive
// status transitions.
func DefaultConfig() Config {
	return Config{
		Rates:          pricing.DefaultRates(),
		DeliveryWindow: DefaultDeliveryWindow,
		Policy:         PermissivePolicy{},
	}
}

// LineRequest is one cart line as submitted by the client.
type LineRequest struct {
	MenuItemID     string
	Quantity       int
	Customizations pricing.Customizations
}

// CreateRequest holds the input for placing an order.
type CreateRequest struct {
	Customer            Customer
	Address             Address
	Items               []LineRequest
	SpecialInstructions string
	DiscountCode        string
}

// Receipt is returned after an order is placed.
type Receipt struct {
	Order             *Order
	EstimatedDelivery time.Time
}

// Service encapsulates order placement, retrieval and administration.
type Service struct {
	items     menu.Repository
	discounts discount.Validator
	orders    Repository
	notifier  Notifier
	cfg       Config

	now       func() time.Time
	newNumber func(time.Time) string
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	items menu.Repository,
	discounts discount.Validator,
	orders Repository,
	notifier Notifier,
	cfg Config,
) *Service {
	if cfg.Policy == nil {
		cfg.Policy = PermissivePolicy{}
	}
	return &Service{
		items:     items,
		discounts: discounts,
		orders:    orders,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
		newNumber: NewNumber,
	}
}

// CreateOrder validates the request, prices every line from the catalog,
// applies an eligible discount and persists the order.
//
// Client-supplied prices are never used. An invalid discount code does not
// fail the order; it is ignored.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest) (*Receipt, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	// Batch fetch every referenced item in a single query.
	ids := uniqueItemIDs(req.Items)
	fetched, err := s.items.GetAvailableByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get menu items")
	}

	byID := make(map[string]menu.Item, len(fetched))
	for _, it := range fetched {
		byID[it.ID] = it
	}

	var missing []string
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &ItemUnavailableError{MenuItemIDs: missing}
	}

	lines := make([]pricing.Line, len(req.Items))
	for i, li := range req.Items {
		lines[i] = pricing.ResolveLine(byID[li.MenuItemID], li.Quantity, li.Customizations)
	}
	subtotal := pricing.Subtotal(lines)

	discountAmount := decimal.Zero
	appliedCode := ""
	if req.DiscountCode != "" {
		res, err := s.discounts.Validate(ctx, req.DiscountCode, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "validate discount")
		}
		if res.Valid && res.Amount.IsPositive() {
			discountAmount = res.Amount
			appliedCode = res.Code
		} else {
			zctx.From(ctx).Debug("Discount code not applied",
				zap.String("code", req.DiscountCode),
				zap.String("reason", res.Message),
			)
		}
	}

	totals := s.cfg.Rates.Totals(subtotal, discountAmount)
	now := s.now()

	o := &Order{
		ID:                  uuid.New().String(),
		Number:              s.newNumber(now),
		Customer:            req.Customer,
		Address:             req.Address,
		Status:              StatusPending,
		Subtotal:            totals.Subtotal,
		Tax:                 totals.Tax,
		DeliveryFee:         totals.DeliveryFee,
		Discount:            totals.Discount,
		DiscountCode:        appliedCode,
		Total:               totals.Total,
		SpecialInstructions: req.SpecialInstructions,
		Lines:               lines,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	zctx.From(ctx).Info("Order created",
		zap.String("order_number", o.Number),
		zap.String("total", o.Total.String()),
		zap.String("discount_code", appliedCode),
	)
	s.notify(ctx, "order created", s.notifier.OrderCreated(ctx, o))

	return &Receipt{
		Order:             o,
		EstimatedDelivery: now.Add(s.cfg.DeliveryWindow),
	}, nil
}

// GetOrder returns the order with the given number. When email is not empty
// and the order was placed with a different email, ErrNotFound is returned so
// the existence of other customers' orders is not revealed.
func (s *Service) GetOrder(ctx context.Context, number, email string) (*Order, error) {
	o, err := s.orders.GetByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, err
	}
	if email != "" && o.Customer.Email != "" && o.Customer.Email != email {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) notify(ctx context.Context, what string, err error) {
	if err != nil {
		zctx.From(ctx).Warn("Notification failed", zap.String("event", what), zap.Error(err))
	}
}

func validateRequest(req *CreateRequest) error {
	req.Customer.Email = strings.TrimSpace(req.Customer.Email)
	req.Customer.Phone = strings.TrimSpace(req.Customer.Phone)
	if req.Customer.Email == "" && req.Customer.Phone == "" {
		return ErrContactRequired
	}
	if req.Customer.Email != "" {
		if _, err := mail.ParseAddress(req.Customer.Email); err != nil {
			return ErrInvalidEmail
		}
	}

	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	for _, li := range req.Items {
		if li.Quantity < 1 {
			return &InvalidQuantityError{MenuItemID: li.MenuItemID}
		}
	}

	a := req.Address
	if strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.City) == "" || strings.TrimSpace(a.PostalCode) == "" {
		return ErrAddressRequired
	}
	return nil
}

func uniqueItemIDs(items []LineRequest) []string {
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, li := range items {
		if _, ok := seen[li.MenuItemID]; ok {
			continue
		}
		seen[li.MenuItemID] = struct{}{}
		ids = append(ids, li.MenuItemID)
	}
	return ids
}

const numberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewNumber generates a human-shareable order number of the form
// ORD-<base36 unix millis>-<4 random base36 chars>.
func NewNumber(now time.Time) string {
	var suffix [4]byte
	for i := range suffix {
		suffix[i] = numberAlphabet[rand.IntN(len(numberAlphabet))]
	}
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return "ORD-" + ts + "-" + string(suffix[:])
}
