package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Rejection messages, in the order the checks run.
const (
	MsgInvalidCode = "Invalid discount code"
	MsgInactive    = "This discount code is no longer active"
	MsgExpired     = "This discount code has expired"
	MsgUsageLimit  = "This discount code has reached its maximum usage limit"
)

var hundred = decimal.NewFromInt(100)

// Result is the outcome of validating a code against a subtotal. An invalid
// code is a normal result with Valid=false and a Message, never an error.
type Result struct {
	Valid       bool
	Message     string
	Code        string
	Type        Type
	Value       decimal.Decimal
	Amount      decimal.Decimal
	Description string
}

// Validator checks discount codes against an order subtotal.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Result, error)
}

// RepoValidator implements Validator on top of a Repository. It never
// changes stored state.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate runs the eligibility checks in order and returns the first
// failure, or the discount amount rounded to cents. Errors are returned only
// when the store cannot be queried.
func (v *RepoValidator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Result, error) {
	normalized := Normalize(code)
	if normalized == "" {
		return &Result{Message: MsgInvalidCode}, nil
	}

	dc, err := v.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Result{Message: MsgInvalidCode}, nil
		}
		return nil, errors.Wrap(err, "lookup discount code")
	}

	if !dc.Active {
		return &Result{Message: MsgInactive}, nil
	}
	if dc.ExpiresAt != nil && dc.ExpiresAt.Before(v.now()) {
		return &Result{Message: MsgExpired}, nil
	}
	if dc.MaxUses != nil && dc.UsedCount >= *dc.MaxUses {
		return &Result{Message: MsgUsageLimit}, nil
	}
	if dc.MinOrderValue != nil && subtotal.LessThan(*dc.MinOrderValue) {
		return &Result{Message: minOrderMessage(*dc.MinOrderValue)}, nil
	}

	return &Result{
		Valid:       true,
		Code:        dc.Code,
		Type:        dc.Type,
		Value:       dc.Value,
		Amount:      Amount(dc.Type, dc.Value, subtotal),
		Description: dc.Description,
	}, nil
}

// Amount computes the discount for a subtotal, rounded half-up to cents.
// A fixed discount never exceeds the subtotal.
func Amount(t Type, value, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch t {
	case TypePercentage:
		amount = subtotal.Mul(value).Div(hundred)
	case TypeFixed:
		amount = decimal.Min(value, subtotal)
	default:
		return decimal.Zero
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}

func minOrderMessage(min decimal.Decimal) string {
	return fmt.Sprintf("Minimum order value of $%s required", min.StringFixed(2))
}
