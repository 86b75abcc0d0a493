package domain

import "errors"

// OrderStatus is the fulfillment-stage axis of an order. It moves
// independently of PaymentStatus.
type OrderStatus string

const (
	OrderStatusDraft      OrderStatus = "draft"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusDraft:      {},
	OrderStatusConfirmed:  {},
	OrderStatusInProgress: {},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

// ToOrderStatus parses a raw string into an OrderStatus.
func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}
	return "", errors.New("invalid order status")
}

// PaymentStatus is the financial-settlement axis of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

var validPaymentStatuses = map[PaymentStatus]struct{}{
	PaymentStatusPending:  {},
	PaymentStatusPaid:     {},
	PaymentStatusRefunded: {},
	PaymentStatusFailed:   {},
}

// ToPaymentStatus parses a raw string into a PaymentStatus.
func ToPaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if _, ok := validPaymentStatuses[status]; ok {
		return status, nil
	}
	return "", errors.New("invalid payment status")
}

// PaymentMethod identifies how the customer settles the order total.
type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
	PaymentMethodMobilePay  PaymentMethod = "mobile_pay"
	PaymentMethodGiftCard   PaymentMethod = "gift_card"
)

var validPaymentMethods = map[PaymentMethod]struct{}{
	PaymentMethodCash:       {},
	PaymentMethodCreditCard: {},
	PaymentMethodDebitCard:  {},
	PaymentMethodMobilePay:  {},
	PaymentMethodGiftCard:   {},
}

// ToPaymentMethod parses a raw string into a PaymentMethod.
func ToPaymentMethod(s string) (PaymentMethod, error) {
	method := PaymentMethod(s)
	if _, ok := validPaymentMethods[method]; ok {
		return method, nil
	}
	return "", errors.New("invalid payment method")
}

// IsCard reports whether the method carries card details (last four digits).
func (m PaymentMethod) IsCard() bool {
	return m == PaymentMethodCreditCard || m == PaymentMethodDebitCard
}

// PaymentMethods returns every accepted payment method.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		PaymentMethodCash,
		PaymentMethodCreditCard,
		PaymentMethodDebitCard,
		PaymentMethodMobilePay,
		PaymentMethodGiftCard,
	}
}
