// Package pricing turns catalog items and cart selections into priced order
// lines and order totals.
//
// All arithmetic is exact decimal arithmetic. Nothing is rounded here; the
// only rounding in the checkout path is applied to the discount amount by the
// discount validator.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/foodcourt/internal/domain/menu"
)

// Default checkout rates.
var (
	DefaultTaxRate     = decimal.RequireFromString("0.08")
	DefaultDeliveryFee = decimal.RequireFromString("3.99")
)

// Customizations maps an option name to the chosen choice name.
type Customizations map[string]string

// Line is a priced order line. Name and Customizations are snapshots taken
// at order time so later catalog edits do not change historical orders.
type Line struct {
	MenuItemID     string
	Name           string
	Quantity       int
	UnitPrice      decimal.Decimal
	Total          decimal.Decimal
	Customizations Customizations
}

// ResolveLine prices quantity units of item with the given customizations.
//
// The unit price is the base price plus the delta of every option whose
// chosen choice exists on the item. Unknown options and choices are ignored,
// and options without a selection contribute nothing even when required.
func ResolveLine(item menu.Item, quantity int, c Customizations) Line {
	unit := item.Price
	for _, opt := range item.Options {
		name, ok := c[opt.Name]
		if !ok {
			continue
		}
		if choice, ok := opt.Choice(name); ok {
			unit = unit.Add(choice.PriceDelta)
		}
	}

	snapshot := make(Customizations, len(c))
	for k, v := range c {
		snapshot[k] = v
	}

	return Line{
		MenuItemID:     item.ID,
		Name:           item.Name,
		Quantity:       quantity,
		UnitPrice:      unit,
		Total:          unit.Mul(decimal.NewFromInt(int64(quantity))),
		Customizations: snapshot,
	}
}

// Subtotal sums line totals.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total)
	}
	return sum
}

// Rates are the charges applied on top of the subtotal.
type Rates struct {
	TaxRate     decimal.Decimal
	DeliveryFee decimal.Decimal
}

// DefaultRates returns the standard tax rate and delivery fee.
func DefaultRates() Rates {
	return Rates{TaxRate: DefaultTaxRate, DeliveryFee: DefaultDeliveryFee}
}

// Totals is the full price breakdown of an order.
type Totals struct {
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

// Totals computes tax, delivery fee and total for a subtotal and an already
// validated discount amount. Total is always subtotal + tax + fee - discount.
func (r Rates) Totals(subtotal, discount decimal.Decimal) Totals {
	tax := subtotal.Mul(r.TaxRate)
	return Totals{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: r.DeliveryFee,
		Discount:    discount,
		Total:       subtotal.Add(tax).Add(r.DeliveryFee).Sub(discount),
	}
}
