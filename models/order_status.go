package models

import "errors"

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPreparing OrderStatus = "PREPARING"
	OrderReady     OrderStatus = "READY"
	OrderServed    OrderStatus = "SERVED"
	OrderCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPreparing, OrderReady, OrderServed, OrderCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

func (p PaymentStatus) Valid() bool {
	return p == PaymentPending || p == PaymentPaid
}

var (
	ErrIllegalTransition = errors.New("illegal order transition")
	ErrTransitionRole    = errors.New("role may not perform this transition")
)

// statusTransitions lists, per current status, the reachable statuses and
// the roles allowed to move an order there.
var statusTransitions = map[OrderStatus]map[OrderStatus][]Role{
	OrderPending: {
		OrderPreparing: {RoleChef, RoleAdmin},
		OrderCancelled: {RoleStaff, RoleAdmin},
	},
	OrderPreparing: {
		OrderReady:     {RoleChef, RoleAdmin},
		OrderCancelled: {RoleStaff, RoleAdmin},
	},
	OrderReady: {
		OrderServed:    {RoleStaff, RoleAdmin},
		OrderCancelled: {RoleStaff, RoleAdmin},
	},
}

var paymentRoles = []Role{RoleCounter, RoleAdmin}

// CheckStatusTransition returns nil when role may move an order from one
// status to the other.
func CheckStatusTransition(from, to OrderStatus, role Role) error {
	roles, ok := statusTransitions[from][to]
	if !ok {
		return ErrIllegalTransition
	}
	if !hasRole(roles, role) {
		return ErrTransitionRole
	}
	return nil
}

// CheckPaymentTransition gates PENDING -> PAID: only once the order is
// SERVED, and only at the counter.
func CheckPaymentTransition(status OrderStatus, from, to PaymentStatus, role Role) error {
	if from != PaymentPending || to != PaymentPaid || status != OrderServed {
		return ErrIllegalTransition
	}
	if !hasRole(paymentRoles, role) {
		return ErrTransitionRole
	}
	return nil
}

// NextStatuses lists where role may move an order from status; dashboards
// use it to decide which buttons to show.
func NextStatuses(status OrderStatus, role Role) []OrderStatus {
	var next []OrderStatus
	for _, to := range []OrderStatus{OrderPreparing, OrderReady, OrderServed, OrderCancelled} {
		if CheckStatusTransition(status, to, role) == nil {
			next = append(next, to)
		}
	}
	return next
}

func hasRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
