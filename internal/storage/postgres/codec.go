package postgres

import (
	"fmt"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/foodcourt/internal/domain/menu"
	"github.com/xenking/foodcourt/internal/domain/order"
	"github.com/xenking/foodcourt/internal/domain/pricing"
)

// JSONB column codecs. Money is written as a JSON number carrying the exact
// decimal string.

func encodeChoices(choices []menu.Choice) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ArrStart()
	for _, c := range choices {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(c.Name)
		e.FieldStart("price_delta")
		e.Num(jx.Num(c.PriceDelta.String()))
		e.ObjEnd()
	}
	e.ArrEnd()
	return append([]byte(nil), e.Bytes()...)
}

func decodeChoices(d *jx.Decoder) ([]menu.Choice, error) {
	choices := []menu.Choice{}
	err := d.Arr(func(d *jx.Decoder) error {
		var c menu.Choice
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "name":
				v, err := d.Str()
				c.Name = v
				return err
			case "price_delta":
				v, err := decodeDecimal(d)
				c.PriceDelta = v
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		choices = append(choices, c)
		return nil
	})
	return choices, err
}

// decodeOptions decodes the aggregated options column of menu queries.
func decodeOptions(data []byte) ([]menu.Option, error) {
	options := []menu.Option{}
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var opt menu.Option
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				opt.ID, err = d.Str()
			case "name":
				opt.Name, err = d.Str()
			case "required":
				opt.Required, err = d.Bool()
			case "choices":
				opt.Choices, err = decodeChoices(d)
			case "max_choices":
				if d.Next() == jx.Null {
					return d.Null()
				}
				n, err := d.Int()
				if err != nil {
					return err
				}
				opt.MaxChoices = &n
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		options = append(options, opt)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decoding options: %w", err)
	}
	return options, nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	}
}

func encodeAddress(a order.Address) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("street")
	e.Str(a.Street)
	e.FieldStart("city")
	e.Str(a.City)
	e.FieldStart("postal_code")
	e.Str(a.PostalCode)
	if a.Instructions != "" {
		e.FieldStart("instructions")
		e.Str(a.Instructions)
	}
	e.ObjEnd()
	return append([]byte(nil), e.Bytes()...)
}

func decodeAddress(data []byte) (order.Address, error) {
	var a order.Address
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "street":
			a.Street, err = d.Str()
		case "city":
			a.City, err = d.Str()
		case "postal_code":
			a.PostalCode, err = d.Str()
		case "instructions":
			a.Instructions, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return order.Address{}, fmt.Errorf("decoding delivery address: %w", err)
	}
	return a, nil
}

func encodeCustomizations(c pricing.Customizations) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	for k, v := range c {
		e.FieldStart(k)
		e.Str(v)
	}
	e.ObjEnd()
	return append([]byte(nil), e.Bytes()...)
}

func decodeCustomizations(data []byte) (pricing.Customizations, error) {
	c := pricing.Customizations{}
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		v, err := d.Str()
		c[key] = v
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("decoding customizations: %w", err)
	}
	return c, nil
}
