package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ValidateDiscount checks a code against a subtotal. An unusable code is a
// 200 response with valid=false and a message.
func (h *Handler) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	var req validateDiscountRequest
	if err := h.decodeBody(r, func(d *jx.Decoder) (err error) {
		req, err = decodeValidateDiscount(d)
		return err
	}); err != nil {
		h.respondError(w, r, err)
		return
	}

	res, err := h.discounts.Validate(r.Context(), req.Code, req.Subtotal)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.discountsValidated.Add(r.Context(), 1,
		metric.WithAttributes(attribute.Bool("valid", res.Valid)),
	)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeValidation(e, res)
	})
}
