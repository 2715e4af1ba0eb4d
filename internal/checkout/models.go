package checkout

import "time"

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

type User struct {
	ID     string
	Email  string
	Role   Role
	Active bool
}

type Product struct {
	ID         string
	Name       string
	PriceCents int
	Stock      int
	Active     bool
	CategoryID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Cart: satu per user, dibuat lazy saat akses pertama.
type Cart struct {
	ID       string
	UserID   string
	CouponID string // kosong = tanpa kupon
}

type CartLine struct {
	ID        string
	CartID    string
	ProductID string
	Qty       int
}

type Coupon struct {
	ID          string
	Code        string
	DiscountPct float64 // 0..100
	ExpiresAt   time.Time
	UsesMax     int
	UsesCurrent int
	Active      bool
}

type Address struct {
	ID     string
	UserID string
	Street string
}

// Delivery 1:1 dengan address, dipakai ulang lintas order.
type Delivery struct {
	ID        string
	AddressID string
	Provider  string
}

type Order struct {
	ID            string
	UserID        string
	Status        OrderStatus
	DiscountCents int
	CouponID      string // snapshot referensi kupon, kosong = tanpa kupon
	DeliveryID    string
	CreatedAt     time.Time
}

type OrderLine struct {
	ID         string
	OrderID    string
	ProductID  string
	Qty        int
	PriceCents int // snapshot harga saat order dibuat
}

// Payment append-only; retry membuat record baru, yang lama tidak diubah.
type Payment struct {
	ID          string
	OrderID     string
	AmountCents int
	Method      string
	Status      PaymentStatus
	TxID        string
	CreatedAt   time.Time
}
