package discount

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage takes a percentage of the subtotal.
	TypePercentage Type = "percentage"
	// TypeFixed takes a fixed amount, capped at the subtotal.
	TypeFixed Type = "fixed"
)

// Valid reports whether t is a known discount type.
func (t Type) Valid() bool {
	return t == TypePercentage || t == TypeFixed
}

// ErrNotFound is returned by a Repository when no code matches.
var ErrNotFound = errors.New("discount code not found")

// Code is a stored discount code with its eligibility constraints.
type Code struct {
	ID            string
	Code          string
	Description   string
	Type          Type
	Value         decimal.Decimal
	MinOrderValue *decimal.Decimal
	ExpiresAt     *time.Time
	MaxUses       *int
	UsedCount     int
	Active        bool
}

// Normalize returns the canonical form of a user-supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Repository provides lookup and usage accounting of discount codes.
type Repository interface {
	// FindByCode returns the code matching the normalized value or ErrNotFound.
	FindByCode(ctx context.Context, code string) (*Code, error)
	// IncrementUsage adds one to the used count of the code.
	IncrementUsage(ctx context.Context, code string) error
}
