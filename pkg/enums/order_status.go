package enums

import "fmt"

// OrderStatus tracks the buyer-facing lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusOnHold     OrderStatus = "on_hold"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusOnHold,
	OrderStatusProcessing,
	OrderStatusCompleted,
	OrderStatusFailed,
}

// AwaitingPaymentStatuses are the states a payment webhook may move forward.
var AwaitingPaymentStatuses = []OrderStatus{OrderStatusPending, OrderStatusOnHold}

// SettleableStatuses are the states in which the payment has been captured.
var SettleableStatuses = []OrderStatus{OrderStatusProcessing, OrderStatusCompleted}

// IsValid reports whether the value matches a known order status.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// AwaitingPayment reports whether the order still waits on the gateway.
func (s OrderStatus) AwaitingPayment() bool {
	for _, candidate := range AwaitingPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Settleable reports whether the payment behind the order was captured.
func (s OrderStatus) Settleable() bool {
	for _, candidate := range SettleableStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
