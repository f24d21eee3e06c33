package order

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an order.
type Status string

// Order statuses in their forward order. CANCELLED may follow any
// non-terminal status.
const (
	StatusPending        Status = "PENDING"
	StatusConfirmed      Status = "CONFIRMED"
	StatusPreparing      Status = "PREPARING"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

// Statuses lists every status.
var Statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

var statusRank = map[Status]int{
	StatusPending:        0,
	StatusConfirmed:      1,
	StatusPreparing:      2,
	StatusOutForDelivery: 3,
	StatusDelivered:      4,
}

// ParseStatus parses a status name, case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", &ValidationError{Message: fmt.Sprintf("unknown order status %q", s)}
	}
	return st, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// TransitionPolicy decides whether an order may move between statuses.
type TransitionPolicy interface {
	Allow(from, to Status) error
}

// PermissivePolicy allows any transition between known statuses.
type PermissivePolicy struct{}

// Allow implements TransitionPolicy.
func (PermissivePolicy) Allow(_, _ Status) error {
	return nil
}

// ForwardOnlyPolicy allows moving forward through the lifecycle and
// cancelling any order that is not yet delivered. Terminal orders are frozen.
type ForwardOnlyPolicy struct{}

// Allow implements TransitionPolicy.
func (ForwardOnlyPolicy) Allow(from, to Status) error {
	if from == to {
		return nil
	}
	if from.Terminal() {
		return &TransitionError{From: from, To: to}
	}
	if to == StatusCancelled || statusRank[to] > statusRank[from] {
		return nil
	}
	return &TransitionError{From: from, To: to}
}

// PolicyByName returns the policy registered under name: "permissive"
// (the default when empty) or "forward".
func PolicyByName(name string) (TransitionPolicy, error) {
	switch strings.ToLower(name) {
	case "", "permissive":
		return PermissivePolicy{}, nil
	case "forward":
		return ForwardOnlyPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown status policy %q", name)
	}
}
