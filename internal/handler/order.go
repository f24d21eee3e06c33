package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/foodcourt/internal/domain/order"
)

// CreateOrder places a guest order. Prices always come from the catalog.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req order.CreateRequest
	if err := h.decodeBody(r, func(d *jx.Decoder) (err error) {
		req, err = decodeCreateOrder(d)
		return err
	}); err != nil {
		h.respondError(w, r, err)
		return
	}

	rc, err := h.orders.CreateOrder(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.ordersCreated.Add(r.Context(), 1)

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeReceipt(e, rc)
	})
}

// GetOrder returns an order by its number. With ?email= the order must have
// been placed with that email.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("orderNumber"), r.URL.Query().Get("email"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// ListOrders serves ?status=&page=&limit=. Malformed page and limit values
// fall back to the defaults.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var params order.ListParams
	if s := q.Get("status"); s != "" {
		status, err := order.ParseStatus(s)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		params.Status = status
	}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.Limit, _ = strconv.Atoi(q.Get("limit"))

	page, err := h.orders.ListOrders(r.Context(), params)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodePage(e, page)
	})
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var raw string
	if err := h.decodeBody(r, func(d *jx.Decoder) (err error) {
		raw, err = decodeStatus(d)
		return err
	}); err != nil {
		h.respondError(w, r, err)
		return
	}
	status, err := order.ParseStatus(raw)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.orders.Summary(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSummary(e, sum)
	})
}
