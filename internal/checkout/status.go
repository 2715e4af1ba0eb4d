package checkout

import "strings"

type OrderStatus string

const (
	OrderPlaced        OrderStatus = "PLACED"
	OrderStartDelivery OrderStatus = "START_DELIVERY"
	OrderInTransit     OrderStatus = "IN_TRANSIT"
	OrderDelivered     OrderStatus = "DELIVERED"
	OrderCancelled     OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentWaiting PaymentStatus = "WAITING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// WAITING satu-satunya state yang boleh settle. FAILED -> WAITING hanya lewat
// payment record baru (retry), bukan mutasi record lama.
var validPaymentNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentWaiting: {PaymentSuccess: true, PaymentFailed: true},
	PaymentSuccess: {},
	PaymentFailed:  {},
}

func CanSettlePayment(from, to PaymentStatus) bool {
	return validPaymentNext[from][to]
}

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(strings.ToUpper(s)) {
	case PaymentWaiting:
		return PaymentWaiting, true
	case PaymentSuccess:
		return PaymentSuccess, true
	case PaymentFailed:
		return PaymentFailed, true
	}
	return "", false
}

// Status delivery setelah START_DELIVERY datang dari admin; hanya dicek
// ejaannya, tanpa tabel transisi.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(strings.ToUpper(s)) {
	case OrderPlaced:
		return OrderPlaced, true
	case OrderStartDelivery:
		return OrderStartDelivery, true
	case OrderInTransit:
		return OrderInTransit, true
	case OrderDelivered:
		return OrderDelivered, true
	case OrderCancelled:
		return OrderCancelled, true
	}
	return "", false
}
