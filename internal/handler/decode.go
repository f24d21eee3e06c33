package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/foodcourt/internal/domain/menu"
	"github.com/xenking/foodcourt/internal/domain/order"
	"github.com/xenking/foodcourt/internal/domain/pricing"
)

// decodeBody reads at most maxBodyBytes of the request body and hands it to
// fn. Every decoding failure becomes a requestError.
func (h *Handler) decodeBody(r *http.Request, fn func(d *jx.Decoder) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodyBytes+1))
	if err != nil {
		return badRequest("cannot read request body")
	}
	if int64(len(data)) > h.maxBodyBytes {
		return badRequest("request body too large")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return badRequest("request body is required")
	}

	if err := fn(jx.DecodeBytes(data)); err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			return reqErr
		}
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}

// optStr decodes a string that may be null or absent.
func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder, field string) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	default:
		return decimal.Zero, badRequest(field + " must be a number")
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, badRequest(field + " must be a number")
	}
	return v, nil
}

func decodeCreateOrder(d *jx.Decoder) (order.CreateRequest, error) {
	var req order.CreateRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customer":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "email":
					req.Customer.Email, err = optStr(d)
				case "phone":
					req.Customer.Phone, err = optStr(d)
				default:
					err = d.Skip()
				}
				return err
			})
		case "deliveryAddress":
			req.Address, err = decodeAddress(d)
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				li, err := decodeLine(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, li)
				return nil
			})
		case "specialInstructions":
			req.SpecialInstructions, err = optStr(d)
		case "discountCode":
			req.DiscountCode, err = optStr(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func decodeAddress(d *jx.Decoder) (order.Address, error) {
	var a order.Address
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "street":
			a.Street, err = optStr(d)
		case "city":
			a.City, err = optStr(d)
		case "postalCode":
			a.PostalCode, err = optStr(d)
		case "instructions":
			a.Instructions, err = optStr(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return a, err
}

func decodeLine(d *jx.Decoder) (order.LineRequest, error) {
	var li order.LineRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "menuItemId":
			li.MenuItemID, err = d.Str()
		case "quantity":
			if d.Next() != jx.Number {
				return badRequest("quantity must be an integer")
			}
			li.Quantity, err = d.Int()
		case "customizations":
			li.Customizations, err = decodeCustomizations(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return li, err
}

// decodeCustomizations decodes an option name to choice name map. Choices
// must be strings.
func decodeCustomizations(d *jx.Decoder) (pricing.Customizations, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	c := pricing.Customizations{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() != jx.String {
			return badRequest(fmt.Sprintf("customization %q must be a string", key))
		}
		v, err := d.Str()
		c[key] = v
		return err
	})
	return c, err
}

type validateDiscountRequest struct {
	Code     string
	Subtotal decimal.Decimal
}

func decodeValidateDiscount(d *jx.Decoder) (validateDiscountRequest, error) {
	var (
		req         validateDiscountRequest
		hasSubtotal bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			req.Code, err = optStr(d)
		case "subtotal":
			req.Subtotal, err = decodeDecimal(d, "subtotal")
			hasSubtotal = true
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return req, err
	}
	if !hasSubtotal {
		return req, badRequest("subtotal is required")
	}
	if req.Subtotal.IsNegative() {
		return req, badRequest("subtotal must not be negative")
	}
	return req, nil
}

func decodeCreateItem(d *jx.Decoder) (menu.CreateInput, error) {
	var (
		in       menu.CreateInput
		hasPrice bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			in.Name, err = optStr(d)
		case "description":
			in.Description, err = optStr(d)
		case "price":
			in.Price, err = decodeDecimal(d, "price")
			hasPrice = true
		case "category":
			in.Category, err = optStr(d)
		case "imageUrl":
			in.ImageURL, err = optStr(d)
		case "isAvailable":
			var v bool
			v, err = d.Bool()
			in.Available = &v
		case "options":
			err = d.Arr(func(d *jx.Decoder) error {
				opt, err := decodeOptionInput(d)
				if err != nil {
					return err
				}
				in.Options = append(in.Options, opt)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil && !hasPrice {
		err = badRequest("price is required")
	}
	return in, err
}

func decodeOptionInput(d *jx.Decoder) (menu.OptionInput, error) {
	var opt menu.OptionInput
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			opt.Name, err = d.Str()
		case "isRequired":
			opt.Required, err = d.Bool()
		case "maxChoices":
			if d.Next() == jx.Null {
				return d.Null()
			}
			n, err := d.Int()
			if err != nil {
				return err
			}
			opt.MaxChoices = &n
		case "choices":
			err = d.Arr(func(d *jx.Decoder) error {
				var c menu.Choice
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "name":
						c.Name, err = d.Str()
					case "priceDelta":
						c.PriceDelta, err = decodeDecimal(d, "priceDelta")
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				opt.Choices = append(opt.Choices, c)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	return opt, err
}

func decodeUpdateItem(d *jx.Decoder) (menu.UpdateInput, error) {
	var in menu.UpdateInput
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			in.Name = &v
			return err
		case "description":
			v, err := d.Str()
			in.Description = &v
			return err
		case "price":
			v, err := decodeDecimal(d, "price")
			in.Price = &v
			return err
		case "category":
			v, err := d.Str()
			in.Category = &v
			return err
		case "imageUrl":
			v, err := d.Str()
			in.ImageURL = &v
			return err
		case "isAvailable":
			v, err := d.Bool()
			in.Available = &v
			return err
		default:
			return d.Skip()
		}
	})
	return in, err
}

func decodeStatus(d *jx.Decoder) (string, error) {
	var status string
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		v, err := optStr(d)
		status = v
		return err
	})
	if err == nil && status == "" {
		err = badRequest("status is required")
	}
	return status, err
}
