package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckStatusTransition(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		role Role
		want error
	}{
		{OrderPending, OrderPreparing, RoleChef, nil},
		{OrderPending, OrderPreparing, RoleAdmin, nil},
		{OrderPending, OrderPreparing, RoleStaff, ErrTransitionRole},
		{OrderPreparing, OrderReady, RoleChef, nil},
		{OrderPreparing, OrderReady, RoleCounter, ErrTransitionRole},
		{OrderReady, OrderServed, RoleStaff, nil},
		{OrderReady, OrderServed, RoleChef, ErrTransitionRole},
		{OrderPending, OrderCancelled, RoleStaff, nil},
		{OrderReady, OrderCancelled, RoleAdmin, nil},
		{OrderPending, OrderCancelled, RoleChef, ErrTransitionRole},
		{OrderPending, OrderReady, RoleAdmin, ErrIllegalTransition},
		{OrderServed, OrderCancelled, RoleAdmin, ErrIllegalTransition},
		{OrderCancelled, OrderPending, RoleAdmin, ErrIllegalTransition},
		{OrderReady, OrderPreparing, RoleAdmin, ErrIllegalTransition},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to)+"/"+string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, CheckStatusTransition(tt.from, tt.to, tt.role))
		})
	}
}

func TestCheckPaymentTransition(t *testing.T) {
	assert.NoError(t, CheckPaymentTransition(OrderServed, PaymentPending, PaymentPaid, RoleCounter))
	assert.NoError(t, CheckPaymentTransition(OrderServed, PaymentPending, PaymentPaid, RoleAdmin))
	assert.Equal(t, ErrTransitionRole, CheckPaymentTransition(OrderServed, PaymentPending, PaymentPaid, RoleStaff))
	assert.Equal(t, ErrIllegalTransition, CheckPaymentTransition(OrderReady, PaymentPending, PaymentPaid, RoleCounter))
	assert.Equal(t, ErrIllegalTransition, CheckPaymentTransition(OrderServed, PaymentPaid, PaymentPending, RoleAdmin))
}

func TestNextStatuses(t *testing.T) {
	assert.Equal(t, []OrderStatus{OrderPreparing}, NextStatuses(OrderPending, RoleChef))
	assert.Equal(t, []OrderStatus{OrderCancelled}, NextStatuses(OrderPending, RoleStaff))
	assert.Equal(t, []OrderStatus{OrderServed, OrderCancelled}, NextStatuses(OrderReady, RoleAdmin))
	assert.Empty(t, NextStatuses(OrderServed, RoleAdmin))
}

func TestOrderIsSettled(t *testing.T) {
	assert.True(t, (&Order{Status: OrderCancelled, PaymentStatus: PaymentPending}).IsSettled())
	assert.True(t, (&Order{Status: OrderServed, PaymentStatus: PaymentPaid}).IsSettled())
	assert.False(t, (&Order{Status: OrderServed, PaymentStatus: PaymentPending}).IsSettled())
	assert.False(t, (&Order{Status: OrderReady, PaymentStatus: PaymentPaid}).IsSettled())
}
