package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when an order does not exist or does not belong to
// the supplied email.
var ErrNotFound = errors.New("order not found")

// ValidationError reports a client-correctable problem with an order request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Precondition failures of order creation.
var (
	ErrContactRequired = &ValidationError{Message: "Either email or phone is required"}
	ErrEmptyItems      = &ValidationError{Message: "At least one item is required"}
	ErrInvalidEmail    = &ValidationError{Message: "email must be a valid email address"}
	ErrAddressRequired = &ValidationError{Message: "delivery address is incomplete"}
)

// InvalidQuantityError indicates a line with a quantity below one.
type InvalidQuantityError struct {
	MenuItemID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for menu item %s", e.MenuItemID)
}

// ItemUnavailableError indicates that requested menu items do not exist or
// are not available. The whole order is rejected.
type ItemUnavailableError struct {
	MenuItemIDs []string
}

func (e *ItemUnavailableError) Error() string {
	return "One or more menu items are not available: " + strings.Join(e.MenuItemIDs, ", ")
}

// TransitionError indicates a status change rejected by the transition policy.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

// IsValidation reports whether err is a client-correctable order error.
func IsValidation(err error) bool {
	var (
		vErr  *ValidationError
		qErr  *InvalidQuantityError
		uaErr *ItemUnavailableError
	)
	return errors.As(err, &vErr) || errors.As(err, &qErr) || errors.As(err, &uaErr)
}
