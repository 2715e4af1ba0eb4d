package checkout

import "errors"

// ErrorKind mengelompokkan error untuk mapping HTTP di layer atas.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindValidation
	KindAuthorization
	KindConflict
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrCouponNotFound   = errors.New("coupon not found")
	ErrAddressNotFound  = errors.New("address not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrLineNotFound     = errors.New("cart line not found")
	ErrCartNotFound     = errors.New("cart not found")
	ErrDeliveryNotFound = errors.New("delivery not found")

	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQty        = errors.New("quantity must be at least 1")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidCoupon     = errors.New("coupon is not valid or has expired")
	ErrInvalidStatus     = errors.New("unknown status value")

	ErrUserInactive   = errors.New("user is not active")
	ErrForeignAddress = errors.New("address does not belong to the user")
	ErrForeignOrder   = errors.New("order does not belong to the user")
	ErrAdminOnly      = errors.New("admin access required")

	ErrNegativeStock   = errors.New("stock would go negative")
	ErrRetryNotAllowed = errors.New("payment retry is only allowed for failed payments")
	ErrPaymentSettled  = errors.New("payment already settled")
)

func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, ErrCouponNotFound),
		errors.Is(err, ErrAddressNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrLineNotFound),
		errors.Is(err, ErrCartNotFound),
		errors.Is(err, ErrDeliveryNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrInvalidQty),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidCoupon),
		errors.Is(err, ErrInvalidStatus):
		return KindValidation
	case errors.Is(err, ErrUserInactive),
		errors.Is(err, ErrForeignAddress),
		errors.Is(err, ErrForeignOrder),
		errors.Is(err, ErrAdminOnly):
		return KindAuthorization
	case errors.Is(err, ErrNegativeStock),
		errors.Is(err, ErrRetryNotAllowed),
		errors.Is(err, ErrPaymentSettled):
		return KindConflict
	}
	return KindInternal
}
