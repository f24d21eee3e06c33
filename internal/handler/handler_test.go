package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/foodcourt/internal/domain/auth"
	"github.com/xenking/foodcourt/internal/domain/discount"
	"github.com/xenking/foodcourt/internal/domain/menu"
	"github.com/xenking/foodcourt/internal/domain/order"
)

// --- Mock implementations ---

type mockMenuRepo struct {
	items map[string]*menu.Item
	err   error
}

func (m *mockMenuRepo) ListAvailable(_ context.Context, category string) ([]menu.Item, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []menu.Item
	for _, it := range m.items {
		if it.Available && (category == "" || it.Category == category) {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *mockMenuRepo) Categories(_ context.Context) ([]string, error) {
	return []string{"Mains"}, m.err
}

func (m *mockMenuRepo) Search(_ context.Context, query string) ([]menu.Item, error) {
	var out []menu.Item
	for _, it := range m.items {
		if strings.Contains(strings.ToLower(it.Name), strings.ToLower(query)) {
			out = append(out, *it)
		}
	}
	return out, m.err
}

func (m *mockMenuRepo) GetByID(_ context.Context, id string) (*menu.Item, error) {
	if m.err != nil {
		return nil, m.err
	}
	it, ok := m.items[id]
	if !ok {
		return nil, menu.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *mockMenuRepo) GetAvailableByIDs(_ context.Context, ids []string) ([]menu.Item, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []menu.Item
	for _, id := range ids {
		if it, ok := m.items[id]; ok && it.Available {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *mockMenuRepo) Create(_ context.Context, item *menu.Item) error {
	if m.err != nil {
		return m.err
	}
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *mockMenuRepo) Update(_ context.Context, item *menu.Item) error {
	if _, ok := m.items[item.ID]; !ok {
		return menu.ErrNotFound
	}
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *mockMenuRepo) SetAvailable(_ context.Context, id string, available bool) error {
	it, ok := m.items[id]
	if !ok {
		return menu.ErrNotFound
	}
	it.Available = available
	return nil
}

type mockOrderRepo struct {
	byNumber map[string]*order.Order
	summary  *order.Summary
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.byNumber[o.Number] = o
	return nil
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, number string) (*order.Order, error) {
	o, ok := m.byNumber[number]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	for _, o := range m.byNumber {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) List(_ context.Context, f order.ListFilter) ([]order.Order, int, error) {
	var out []order.Order
	for _, o := range m.byNumber {
		if f.Status == "" || o.Status == f.Status {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, status order.Status, at time.Time) error {
	for _, o := range m.byNumber {
		if o.ID == id {
			o.Status = status
			o.UpdatedAt = at
			return nil
		}
	}
	return order.ErrNotFound
}

func (m *mockOrderRepo) Summary(_ context.Context, _ time.Time) (*order.Summary, error) {
	return m.summary, nil
}

type nopNotifier struct{}

func (nopNotifier) OrderCreated(context.Context, *order.Order) error { return nil }

func (nopNotifier) StatusChanged(context.Context, *order.Order, order.Status) error { return nil }

type mockValidator struct {
	result *discount.Result
	err    error
}

func (m *mockValidator) Validate(_ context.Context, code string, _ decimal.Decimal) (*discount.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &discount.Result{Message: discount.MsgInvalidCode}, nil
	}
	res := *m.result
	res.Code = code
	return &res, nil
}

type mockKeyRepo struct {
	keys map[string]*auth.APIKeyInfo
}

func (m *mockKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := m.keys[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return info, nil
}

func (m *mockKeyRepo) Create(_ context.Context, info *auth.APIKeyInfo) error {
	m.keys[info.KeyHash] = info
	return nil
}

// --- Helpers ---

var testPepper = []byte("pepper")

const (
	adminKey  = "admin-key"
	viewerKey = "viewer-key"
)

type fixture struct {
	menuRepo  *mockMenuRepo
	orders    *mockOrderRepo
	validator *mockValidator
	handler   *Handler
	mux       *http.ServeMux
}

func newFixture(t *testing.T, cfg HandlerConfig, policy order.TransitionPolicy) *fixture {
	t.Helper()

	f := &fixture{
		menuRepo: &mockMenuRepo{items: map[string]*menu.Item{
			"burger": {
				ID:        "burger",
				Name:      "Burger",
				Price:     decimal.RequireFromString("10.00"),
				Category:  "Mains",
				ImageURL:  "images/burger.jpg",
				Available: true,
				Options: []menu.Option{{
					ID:   "size",
					Name: "Size",
					Choices: []menu.Choice{
						{Name: "Regular", PriceDelta: decimal.Zero},
						{Name: "Large", PriceDelta: decimal.RequireFromString("2.50")},
					},
				}},
			},
			"soup": {
				ID:       "soup",
				Name:     "Soup",
				Price:    decimal.RequireFromString("6.00"),
				Category: "Starters",
			},
		}},
		orders:    &mockOrderRepo{byNumber: map[string]*order.Order{}},
		validator: &mockValidator{},
	}

	keys := &mockKeyRepo{keys: map[string]*auth.APIKeyInfo{}}
	for key, scopes := range map[string][]string{adminKey: {auth.ScopeAdmin}, viewerKey: nil} {
		hash := auth.HashKey(testPepper, key)
		keys.keys[hash] = &auth.APIKeyInfo{ID: key, Name: key, KeyHash: hash, Scopes: scopes}
	}

	orderCfg := order.DefaultConfig()
	if policy != nil {
		orderCfg.Policy = policy
	}

	h, err := NewHandler(cfg,
		menu.NewService(f.menuRepo),
		order.NewService(f.menuRepo, f.validator, f.orders, nopNotifier{}, orderCfg),
		f.validator,
		auth.NewAuthenticator(keys, testPepper),
		noop.NewMeterProvider().Meter("test"),
	)
	require.NoError(t, err)

	f.handler = h
	f.mux = http.NewServeMux()
	h.Register(f.mux)
	return f
}

func (f *fixture) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func (f *fixture) seedOrder(number, email string, status order.Status) *order.Order {
	o := &order.Order{
		ID:       "id-" + number,
		Number:   number,
		Customer: order.Customer{Email: email},
		Status:   status,
		Subtotal: decimal.RequireFromString("20"),
		Total:    decimal.RequireFromString("25.59"),
	}
	f.orders.byNumber[number] = o
	return o
}

func decodeFields(t *testing.T, body string) map[string]string {
	t.Helper()
	fields := map[string]string{}
	require.NoError(t, jx.DecodeStr(body).Obj(func(d *jx.Decoder, key string) error {
		raw, err := d.Raw()
		fields[key] = raw.String()
		return err
	}))
	return fields
}

const orderBody = `{
	"customer": {"email": "guest@example.com"},
	"deliveryAddress": {"street": "1 Main St", "city": "Springfield", "postalCode": "12345"},
	"items": [{"menuItemId": "burger", "quantity": 2, "customizations": {"Size": "Regular"}}]
}`

// --- Tests ---

func TestListMenu(t *testing.T) {
	f := newFixture(t, HandlerConfig{ImageBaseURL: "https://cdn.example.com/"}, nil)

	w := f.do(http.MethodGet, "/api/menu", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"categories": ["Mains"],
		"items": [{
			"id": "burger",
			"name": "Burger",
			"description": "",
			"price": 10,
			"category": "Mains",
			"imageUrl": "https://cdn.example.com/images/burger.jpg",
			"isAvailable": true,
			"options": [{
				"id": "size",
				"name": "Size",
				"isRequired": false,
				"maxChoices": null,
				"choices": [
					{"name": "Regular", "priceDelta": 0},
					{"name": "Large", "priceDelta": 2.5}
				]
			}]
		}]
	}`, w.Body.String())
}

func TestListMenu_StoreError(t *testing.T) {
	f := newFixture(t, HandlerConfig{}, nil)
	f.menuRepo.err = errors.New("connection refused")

	w := f.do(http.MethodGet, "/api/menu", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal error"}`, w.Body.String())
}

func TestMenuRoutes(t *testing.T) {
	f := newFixture(t, HandlerConfig{}, nil)

	w := f.do(http.MethodGet, "/api/menu/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Mains"]`, w.Body.String())

	w = f.do(http.MethodGet, "/api/menu/search?q=", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/menu/search?q=burg", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"burger"`)

	w = f.do(http.MethodGet, "/api/menu/soup", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", decodeFields(t, w.Body.String())["isAvailable"])

	w = f.do(http.MethodGet, "/api/menu/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":404,"message":"menu item not found"}`, w.Body.String())
}

func TestValidateDiscount(t *testing.T) {
	tests := []struct {
		name       string
		result     *discount.Result
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name: "valid",
			result: &discount.Result{
				Valid:       true,
				Type:        discount.TypePercentage,
				Value:       decimal.NewFromInt(10),
				Amount:      decimal.RequireFromString("2.60"),
				Description: "10% off",
			},
			body:       `{"code":"save10","subtotal":25.99}`,
			wantStatus: http.StatusOK,
			wantBody: `{"valid":true,"discountType":"percentage","discountValue":10,` +
				`"discountAmount":2.6,"description":"10% off"}`,
		},
		{
			name:       "invalid code",
			body:       `{"code":"NOPE","subtotal":"25.99"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"valid":false,"message":"Invalid discount code"}`,
		},
		{
			name:       "negative subtotal",
			body:       `{"code":"SAVE10","subtotal":-1}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":400,"message":"subtotal must not be negative"}`,
		},
		{
			name:       "missing subtotal",
			body:       `{"code":"SAVE10"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":400,"message":"subtotal is required"}`,
		},
		{
			name:       "empty body",
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":400,"message":"request body is required"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, HandlerConfig{}, nil)
			f.validator.result = tt.result

			w := f.do(http.MethodPost, "/api/discounts/validate", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t, HandlerConfig{}, nil)

	w := f.do(http.MethodPost, "/api/orders", orderBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	fields := decodeFields(t, w.Body.String())
	assert.Equal(t, "25.59", fields["total"])
	assert.True(t, strings.HasPrefix(fields["orderNumber"], `"ORD-`), fields["orderNumber"])
	assert.NotEmpty(t, fields["orderId"])
	assert.NotEmpty(t, fields["estimatedDelivery"])

	require.Len(t, f.orders.byNumber, 1)
	for number := range f.orders.byNumber {
		w = f.do(http.MethodGet, "/api/orders/"+number+"?email=guest@example.com", "")
		require.Equal(t, http.StatusOK, w.Code)

		got := decodeFields(t, w.Body.String())
		assert.Equal(t, `"PENDING"`, got["status"])
		assert.Equal(t, "20", got["subtotal"])
		assert.Equal(t, "1.6", got["tax"])
		assert.Equal(t, "3.99", got["deliveryFee"])
		assert.Equal(t, "null", got["discountCode"])
		assert.JSONEq(t, `[{"menuItemId":"burger","menuItemName":"Burger","quantity":2,`+
			`"unitPrice":10,"totalPrice":20,"customizations":{"Size":"Regular"}}]`, got["items"])
	}
}

func TestCreateOrder_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name: "no contact",
			body: `{"deliveryAddress":{"street":"a","city":"b","postalCode":"c"},` +
				`"items":[{"menuItemId":"burger","quantity":1}]}`,
			wantMsg: "Either email or phone is required",
		},
		{
			name: "unavailable item",
			body: `{"customer":{"phone":"555"},"deliveryAddress":{"street":"a","city":"b","postalCode":"c"},` +
				`"items":[{"menuItemId":"soup","quantity":1}]}`,
			wantMsg: "One or more menu items are not available: soup",
		},
		{
			name: "non-string customization",
			body: `{"customer":{"phone":"555"},"deliveryAddress":{"street":"a","city":"b","postalCode":"c"},` +
				`"items":[{"menuItemId":"burger","quantity":1,"customizations":{"Size":2}}]}`,
			wantMsg: `customization "Size" must be a string`,
		},
		{
			name: "string quantity",
			body: `{"customer":{"phone":"555"},"deliveryAddress":{"street":"a","city":"b","postalCode":"c"},` +
				`"items":[{"menuItemId":"burger","quantity":"two"}]}`,
			wantMsg: "quantity must be an integer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, HandlerConfig{}, nil)

			w := f.do(http.MethodPost, "/api/orders", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, `"`+strings.ReplaceAll(tt.wantMsg, `"`, `\"`)+`"`,
				decodeFields(t, w.Body.String())["message"])
			assert.Empty(t, f.orders.byNumber)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		f := newFixture(t, HandlerConfig{}, nil)
		w := f.do(http.MethodPost, "/api/orders", `{"items":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		f := newFixture(t, HandlerConfig{MaxBodyBytes: 16}, nil)
		w := f.do(http.MethodPost, "/api/orders", orderBody)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"code":400,"message":"request body too large"}`, w.Body.String())
	})
}

func TestGetOrder_Ownership(t *testing.T) {
	f := newFixture(t, HandlerConfig{}, nil)
	f.seedOrder("ORD-1", "owner@example.com", order.StatusPending)

	w := f.do(http.MethodGet, "/api/orders/ORD-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/orders/ORD-1?email=other@example.com", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":404,"message":"order not found"}`, w.Body.String())
}

func TestAdmin_Authentication(t *testing.T) {
	f := newFixture(t, HandlerConfig{}, nil)

	w := f.do(http.MethodGet, "/api/admin/orders", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/admin/orders", "", HeaderAPIKey, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/admin/orders", "", HeaderAPIKey, viewerKey)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/api/admin/orders", "", HeaderAPIKey, adminKey)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin_MenuItems(t *testing.T) {
	f := newFixture(t, HandlerConfig{}, nil)

	w := f.do(http.MethodPost, "/api/admin/menu-items", `{
		"name": "Pad Thai",
		"price": 13.5,
		"category": "Mains",
		"options": [{"name": "Spice", "isRequired": true, "maxChoices": 1,
			"choices": [{"name": "Mild", "priceDelta": 0}, {"name": "Hot", "priceDelta": "0.50"}]}]
	}`, HeaderAPIKey, adminKey)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decodeFields(t, w.Body.String())
	assert.Equal(t, "13.5", created["price"])
	assert.Equal(t, "true", created["isAvailable"])
	id := strings.Trim(created["id"], `"`)
	require.Contains(t, f.menuRepo.items, id)
	require.Len(t, f.menuRepo.items[id].Options, 1)
	assert.Equal(t, 1, *f.menuRepo.items[id].Options[0].MaxChoices)

	w = f.do(http.MethodPut, "/api/admin/menu-items/"+id, `{"price": 14}`, HeaderAPIKey, adminKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "14", decodeFields(t, w.Body.String())["price"])

	w = f.do(http.MethodPut, "/api/admin/menu-items/"+id, `{"name": " "}`, HeaderAPIKey, adminKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodDelete, "/api/admin/menu-items/"+id, "", HeaderAPIKey, adminKey)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, f.menuRepo.items[id].Available)

	w = f.do(http.MethodDelete, "/api/admin/menu-items/missing", "", HeaderAPIKey, adminKey)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/api/admin/menu-items", `{"name":"X","category":"Y","price":-1}`, HeaderAPIKey, adminKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_Orders(t *testing.T) {
	f := newFixture(t, HandlerConfig{}, order.ForwardOnlyPolicy{})
	f.seedOrder("ORD-1", "a@example.com", order.StatusPending)
	f.seedOrder("ORD-2", "b@example.com", order.StatusDelivered)

	w := f.do(http.MethodGet, "/api/admin/orders?status=pending&page=x&limit=5", "", HeaderAPIKey, adminKey)
	require.Equal(t, http.StatusOK, w.Code)
	page := decodeFields(t, w.Body.String())
	assert.JSONEq(t, `{"page":1,"limit":5,"total":1,"totalPages":1}`, page["pagination"])
	assert.Contains(t, page["orders"], `"orderNumber":"ORD-1"`)

	w = f.do(http.MethodGet, "/api/admin/orders?status=lost", "", HeaderAPIKey, adminKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/api/admin/orders/id-ORD-1/status", `{"status":"confirmed"}`, HeaderAPIKey, adminKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"CONFIRMED"`, decodeFields(t, w.Body.String())["status"])

	w = f.do(http.MethodPut, "/api/admin/orders/id-ORD-2/status", `{"status":"PENDING"}`, HeaderAPIKey, adminKey)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPut, "/api/admin/orders/missing/status", `{"status":"PENDING"}`, HeaderAPIKey, adminKey)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPut, "/api/admin/orders/id-ORD-1/status", `{}`, HeaderAPIKey, adminKey)
	assert.JSONEq(t, `{"code":400,"message":"status is required"}`, w.Body.String())
}

func TestAdmin_Summary(t *testing.T) {
	f := newFixture(t, HandlerConfig{}, nil)
	f.orders.summary = &order.Summary{
		TotalOrders:  3,
		TodayOrders:  1,
		TotalRevenue: decimal.RequireFromString("76.77"),
		ByStatus: map[order.Status]int{
			order.StatusDelivered: 2,
			order.StatusPending:   1,
		},
	}

	w := f.do(http.MethodGet, "/api/admin/analytics/summary", "", HeaderAPIKey, adminKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		`{"totalOrders":3,"todayOrders":1,"totalRevenue":76.77,"ordersByStatus":{"PENDING":1,"DELIVERED":2}}`,
		w.Body.String(),
	)
}

func TestImageURL(t *testing.T) {
	h := &Handler{imageBaseURL: "https://cdn.example.com"}
	assert.Equal(t, "https://cdn.example.com/a.jpg", h.imageURL("/a.jpg"))
	assert.Equal(t, "https://other.example.com/a.jpg", h.imageURL("https://other.example.com/a.jpg"))
	assert.Equal(t, "", h.imageURL(""))

	assert.Equal(t, "a.jpg", (&Handler{}).imageURL("a.jpg"))
}
