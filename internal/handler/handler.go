// Package handler serves the public and administrative JSON API over
// net/http, delegating business logic to the domain services.
package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/foodcourt/internal/domain/auth"
	"github.com/xenking/foodcourt/internal/domain/discount"
	"github.com/xenking/foodcourt/internal/domain/menu"
	"github.com/xenking/foodcourt/internal/domain/order"
)

// DefaultMaxBodyBytes limits request bodies when HandlerConfig leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in menu responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
	// MaxBodyBytes caps the size of JSON request bodies.
	MaxBodyBytes int64
}

// Handler implements the HTTP API on top of the domain services.
type Handler struct {
	menu      *menu.Service
	orders    *order.Service
	discounts discount.Validator
	auth      *auth.Authenticator

	imageBaseURL string
	maxBodyBytes int64

	ordersCreated      metric.Int64Counter
	discountsValidated metric.Int64Counter
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	menuService *menu.Service,
	orderService *order.Service,
	discounts discount.Validator,
	authenticator *auth.Authenticator,
	meter metric.Meter,
) (*Handler, error) {
	h := &Handler{
		menu:         menuService,
		orders:       orderService,
		discounts:    discounts,
		auth:         authenticator,
		imageBaseURL: cfg.ImageBaseURL,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
	if h.maxBodyBytes <= 0 {
		h.maxBodyBytes = DefaultMaxBodyBytes
	}

	var err error
	if h.ordersCreated, err = meter.Int64Counter("orders.created",
		metric.WithDescription("Number of orders placed"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.created counter")
	}
	if h.discountsValidated, err = meter.Int64Counter("discounts.validated",
		metric.WithDescription("Number of discount code validations"),
	); err != nil {
		return nil, errors.Wrap(err, "discounts.validated counter")
	}
	return h, nil
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/menu", h.ListMenu)
	mux.HandleFunc("GET /api/menu/categories", h.ListCategories)
	mux.HandleFunc("GET /api/menu/search", h.SearchMenu)
	mux.HandleFunc("GET /api/menu/{id}", h.GetMenuItem)

	mux.HandleFunc("POST /api/discounts/validate", h.ValidateDiscount)

	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("GET /api/orders/{orderNumber}", h.GetOrder)

	admin := h.requireAdmin
	mux.Handle("POST /api/admin/menu-items", admin(h.CreateMenuItem))
	mux.Handle("PUT /api/admin/menu-items/{id}", admin(h.UpdateMenuItem))
	mux.Handle("DELETE /api/admin/menu-items/{id}", admin(h.DeleteMenuItem))
	mux.Handle("GET /api/admin/orders", admin(h.ListOrders))
	mux.Handle("PUT /api/admin/orders/{id}/status", admin(h.UpdateOrderStatus))
	mux.Handle("GET /api/admin/analytics/summary", admin(h.Summary))
}
