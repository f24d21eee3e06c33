package handler

import (
	"slices"
	"strings"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/foodcourt/internal/domain/discount"
	"github.com/xenking/foodcourt/internal/domain/menu"
	"github.com/xenking/foodcourt/internal/domain/order"
	"github.com/xenking/foodcourt/internal/domain/pricing"
)

// writeDecimal writes d as a JSON number carrying the exact decimal digits.
func writeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func writeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

// imageURL prepends the configured base URL to relative image paths.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimRight(h.imageBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (h *Handler) encodeMenuItem(e *jx.Encoder, it menu.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("description")
	e.Str(it.Description)
	e.FieldStart("price")
	writeDecimal(e, it.Price)
	e.FieldStart("category")
	e.Str(it.Category)
	e.FieldStart("imageUrl")
	e.Str(h.imageURL(it.ImageURL))
	e.FieldStart("isAvailable")
	e.Bool(it.Available)

	e.FieldStart("options")
	e.ArrStart()
	for _, opt := range it.Options {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(opt.ID)
		e.FieldStart("name")
		e.Str(opt.Name)
		e.FieldStart("isRequired")
		e.Bool(opt.Required)
		e.FieldStart("maxChoices")
		if opt.MaxChoices != nil {
			e.Int(*opt.MaxChoices)
		} else {
			e.Null()
		}
		e.FieldStart("choices")
		e.ArrStart()
		for _, c := range opt.Choices {
			e.ObjStart()
			e.FieldStart("name")
			e.Str(c.Name)
			e.FieldStart("priceDelta")
			writeDecimal(e, c.PriceDelta)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	}
	e.ArrEnd()

	e.ObjEnd()
}

func (h *Handler) encodeMenuItems(e *jx.Encoder, items []menu.Item) {
	e.ArrStart()
	for _, it := range items {
		h.encodeMenuItem(e, it)
	}
	e.ArrEnd()
}

func encodeStrings(e *jx.Encoder, values []string) {
	e.ArrStart()
	for _, v := range values {
		e.Str(v)
	}
	e.ArrEnd()
}

func encodeValidation(e *jx.Encoder, res *discount.Result) {
	e.ObjStart()
	e.FieldStart("valid")
	e.Bool(res.Valid)
	if !res.Valid {
		e.FieldStart("message")
		e.Str(res.Message)
		e.ObjEnd()
		return
	}
	e.FieldStart("discountType")
	e.Str(string(res.Type))
	e.FieldStart("discountValue")
	writeDecimal(e, res.Value)
	e.FieldStart("discountAmount")
	writeDecimal(e, res.Amount)
	if res.Description != "" {
		e.FieldStart("description")
		e.Str(res.Description)
	}
	e.ObjEnd()
}

func encodeReceipt(e *jx.Encoder, rc *order.Receipt) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(rc.Order.ID)
	e.FieldStart("orderNumber")
	e.Str(rc.Order.Number)
	e.FieldStart("total")
	writeDecimal(e, rc.Order.Total)
	e.FieldStart("estimatedDelivery")
	writeTime(e, rc.EstimatedDelivery)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("orderNumber")
	e.Str(o.Number)
	e.FieldStart("customerEmail")
	e.Str(o.Customer.Email)
	e.FieldStart("customerPhone")
	e.Str(o.Customer.Phone)

	e.FieldStart("deliveryAddress")
	e.ObjStart()
	e.FieldStart("street")
	e.Str(o.Address.Street)
	e.FieldStart("city")
	e.Str(o.Address.City)
	e.FieldStart("postalCode")
	e.Str(o.Address.PostalCode)
	if o.Address.Instructions != "" {
		e.FieldStart("instructions")
		e.Str(o.Address.Instructions)
	}
	e.ObjEnd()

	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("subtotal")
	writeDecimal(e, o.Subtotal)
	e.FieldStart("tax")
	writeDecimal(e, o.Tax)
	e.FieldStart("deliveryFee")
	writeDecimal(e, o.DeliveryFee)
	e.FieldStart("discount")
	writeDecimal(e, o.Discount)
	e.FieldStart("discountCode")
	if o.DiscountCode != "" {
		e.Str(o.DiscountCode)
	} else {
		e.Null()
	}
	e.FieldStart("total")
	writeDecimal(e, o.Total)
	e.FieldStart("specialInstructions")
	e.Str(o.SpecialInstructions)
	e.FieldStart("createdAt")
	writeTime(e, o.CreatedAt)
	e.FieldStart("updatedAt")
	writeTime(e, o.UpdatedAt)

	e.FieldStart("items")
	e.ArrStart()
	for _, l := range o.Lines {
		encodeLine(e, l)
	}
	e.ArrEnd()

	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, l pricing.Line) {
	e.ObjStart()
	e.FieldStart("menuItemId")
	e.Str(l.MenuItemID)
	e.FieldStart("menuItemName")
	e.Str(l.Name)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("unitPrice")
	writeDecimal(e, l.UnitPrice)
	e.FieldStart("totalPrice")
	writeDecimal(e, l.Total)

	e.FieldStart("customizations")
	e.ObjStart()
	keys := make([]string, 0, len(l.Customizations))
	for k := range l.Customizations {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		e.FieldStart(k)
		e.Str(l.Customizations[k])
	}
	e.ObjEnd()

	e.ObjEnd()
}

func encodePage(e *jx.Encoder, p *order.Page) {
	e.ObjStart()
	e.FieldStart("orders")
	e.ArrStart()
	for i := range p.Orders {
		encodeOrder(e, &p.Orders[i])
	}
	e.ArrEnd()

	e.FieldStart("pagination")
	e.ObjStart()
	e.FieldStart("page")
	e.Int(p.Page)
	e.FieldStart("limit")
	e.Int(p.Limit)
	e.FieldStart("total")
	e.Int(p.Total)
	e.FieldStart("totalPages")
	e.Int(p.TotalPages)
	e.ObjEnd()

	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s *order.Summary) {
	e.ObjStart()
	e.FieldStart("totalOrders")
	e.Int(s.TotalOrders)
	e.FieldStart("todayOrders")
	e.Int(s.TodayOrders)
	e.FieldStart("totalRevenue")
	writeDecimal(e, s.TotalRevenue)

	e.FieldStart("ordersByStatus")
	e.ObjStart()
	for _, st := range order.Statuses {
		if n, ok := s.ByStatus[st]; ok {
			e.FieldStart(string(st))
			e.Int(n)
		}
	}
	e.ObjEnd()

	e.ObjEnd()
}
