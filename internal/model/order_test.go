package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	statuses := []string{
		OrderPendingPayment,
		OrderPaymentSubmitted,
		OrderConfirmed,
		OrderCancelledTimeout,
		OrderCancelledManual,
	}
	legal := map[[2]string]bool{
		{OrderPendingPayment, OrderPaymentSubmitted}:   true,
		{OrderPendingPayment, OrderCancelledTimeout}:   true,
		{OrderPendingPayment, OrderCancelledManual}:    true,
		{OrderPaymentSubmitted, OrderConfirmed}:        true,
		{OrderPaymentSubmitted, OrderCancelledManual}:  true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			want := legal[[2]string{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalOrderStatus(t *testing.T) {
	assert.False(t, TerminalOrderStatus(OrderPendingPayment))
	assert.False(t, TerminalOrderStatus(OrderPaymentSubmitted))
	assert.True(t, TerminalOrderStatus(OrderConfirmed))
	assert.True(t, TerminalOrderStatus(OrderCancelledTimeout))
	assert.True(t, TerminalOrderStatus(OrderCancelledManual))
}

func TestValidPaymentMethod(t *testing.T) {
	assert.True(t, ValidPaymentMethod(PaymentBankTransfer))
	assert.True(t, ValidPaymentMethod(PaymentLinePay))
	assert.False(t, ValidPaymentMethod("credit_card"))
	assert.False(t, ValidPaymentMethod(""))
}
