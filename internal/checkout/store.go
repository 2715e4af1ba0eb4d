package checkout

import "context"

// Store menjalankan satu operasi publik sebagai satu unit atomik.
// fn return error -> rollback, nil -> commit.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx adalah akses data di dalam satu transaksi. Semua method mengembalikan
// sentinel Err*NotFound dari errors.go saat baris tidak ada.
type Tx interface {
	UserByID(ctx context.Context, id string) (User, error)

	ProductByID(ctx context.Context, id string) (Product, error)
	// ProductForUpdate mengunci baris product (FOR UPDATE) sampai commit.
	ProductForUpdate(ctx context.Context, id string) (Product, error)
	SetProductStock(ctx context.Context, id string, stock int) error

	CartByUser(ctx context.Context, userID string) (Cart, error)
	CreateCart(ctx context.Context, c Cart) error
	CartLines(ctx context.Context, cartID string) ([]CartLine, error)
	InsertCartLine(ctx context.Context, l CartLine) error
	SetCartLineQty(ctx context.Context, lineID string, qty int) error
	DeleteCartLine(ctx context.Context, lineID string) error
	DeleteCartLines(ctx context.Context, cartID string) error
	SetCartCoupon(ctx context.Context, cartID, couponID string) error

	CouponByID(ctx context.Context, id string) (Coupon, error)
	CouponByCode(ctx context.Context, code string) (Coupon, error)
	// RedeemCoupon menaikkan uses_current dengan guard uses_current < uses_max;
	// return false kalau kupon sudah habis.
	RedeemCoupon(ctx context.Context, id string) (bool, error)

	AddressByID(ctx context.Context, id string) (Address, error)
	DeliveryByID(ctx context.Context, id string) (Delivery, error)
	DeliveryByAddress(ctx context.Context, addressID string) (Delivery, error)
	CreateDelivery(ctx context.Context, d Delivery) error

	InsertOrder(ctx context.Context, o Order) error
	InsertOrderLine(ctx context.Context, l OrderLine) error
	InsertPayment(ctx context.Context, p Payment) error
	OrderByID(ctx context.Context, id string) (Order, error)
	OrderLines(ctx context.Context, orderID string) ([]OrderLine, error)
	OrdersByUser(ctx context.Context, userID string) ([]Order, error)
	AllOrders(ctx context.Context) ([]Order, error)
	PaymentByID(ctx context.Context, id string) (Payment, error)
	PaymentsByOrder(ctx context.Context, orderID string) ([]Payment, error)
	// LatestPayment: attempt terbaru by timestamp (tiebreak id).
	LatestPayment(ctx context.Context, orderID string) (Payment, error)
	SetPaymentStatus(ctx context.Context, id string, s PaymentStatus) error
	SetOrderStatus(ctx context.Context, id string, s OrderStatus) error
}
