package checkout

import (
	"context"
	"sync"
)

// memStore meniru semantik transaksional PgStore untuk test: fn error =
// seluruh mutasi dibatalkan (restore snapshot).
type memStore struct {
	mu   sync.Mutex
	data memData
}

type memData struct {
	users      map[string]User
	products   map[string]Product
	carts      map[string]Cart
	cartLines  []CartLine
	coupons    map[string]Coupon
	addresses  map[string]Address
	deliveries map[string]Delivery
	orders     map[string]Order
	orderSeq   []string
	orderLines []OrderLine
	payments   []Payment
}

func newMemStore() *memStore {
	return &memStore{data: memData{
		users:      map[string]User{},
		products:   map[string]Product{},
		carts:      map[string]Cart{},
		coupons:    map[string]Coupon{},
		addresses:  map[string]Address{},
		deliveries: map[string]Delivery{},
		orders:     map[string]Order{},
	}}
}

func (d memData) clone() memData {
	out := memData{
		users:      map[string]User{},
		products:   map[string]Product{},
		carts:      map[string]Cart{},
		coupons:    map[string]Coupon{},
		addresses:  map[string]Address{},
		deliveries: map[string]Delivery{},
		orders:     map[string]Order{},
	}
	for k, v := range d.users {
		out.users[k] = v
	}
	for k, v := range d.products {
		out.products[k] = v
	}
	for k, v := range d.carts {
		out.carts[k] = v
	}
	for k, v := range d.coupons {
		out.coupons[k] = v
	}
	for k, v := range d.addresses {
		out.addresses[k] = v
	}
	for k, v := range d.deliveries {
		out.deliveries[k] = v
	}
	for k, v := range d.orders {
		out.orders[k] = v
	}
	out.cartLines = append([]CartLine(nil), d.cartLines...)
	out.orderSeq = append([]string(nil), d.orderSeq...)
	out.orderLines = append([]OrderLine(nil), d.orderLines...)
	out.payments = append([]Payment(nil), d.payments...)
	return out
}

func (s *memStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(&memTx{d: &s.data}); err != nil {
		s.data = snapshot // rollback
		return err
	}
	return nil
}

// seed menjalankan mutasi langsung, di luar transaksi.
func (s *memStore) seed(fn func(d *memData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.data)
}

type memTx struct{ d *memData }

func (t *memTx) UserByID(_ context.Context, id string) (User, error) {
	if u, ok := t.d.users[id]; ok {
		return u, nil
	}
	return User{}, ErrUserNotFound
}

func (t *memTx) ProductByID(_ context.Context, id string) (Product, error) {
	if p, ok := t.d.products[id]; ok {
		return p, nil
	}
	return Product{}, ErrProductNotFound
}

func (t *memTx) ProductForUpdate(ctx context.Context, id string) (Product, error) {
	return t.ProductByID(ctx, id)
}

func (t *memTx) SetProductStock(_ context.Context, id string, stock int) error {
	p, ok := t.d.products[id]
	if !ok || stock < 0 {
		return ErrNegativeStock
	}
	p.Stock = stock
	t.d.products[id] = p
	return nil
}

func (t *memTx) CartByUser(_ context.Context, userID string) (Cart, error) {
	for _, c := range t.d.carts {
		if c.UserID == userID {
			return c, nil
		}
	}
	return Cart{}, ErrCartNotFound
}

func (t *memTx) CreateCart(_ context.Context, c Cart) error {
	t.d.carts[c.ID] = c
	return nil
}

func (t *memTx) CartLines(_ context.Context, cartID string) ([]CartLine, error) {
	var out []CartLine
	for _, l := range t.d.cartLines {
		if l.CartID == cartID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (t *memTx) InsertCartLine(_ context.Context, l CartLine) error {
	t.d.cartLines = append(t.d.cartLines, l)
	return nil
}

func (t *memTx) SetCartLineQty(_ context.Context, lineID string, qty int) error {
	for i, l := range t.d.cartLines {
		if l.ID == lineID {
			t.d.cartLines[i].Qty = qty
			return nil
		}
	}
	return ErrLineNotFound
}

func (t *memTx) DeleteCartLine(_ context.Context, lineID string) error {
	for i, l := range t.d.cartLines {
		if l.ID == lineID {
			t.d.cartLines = append(t.d.cartLines[:i], t.d.cartLines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (t *memTx) DeleteCartLines(_ context.Context, cartID string) error {
	kept := t.d.cartLines[:0]
	for _, l := range t.d.cartLines {
		if l.CartID != cartID {
			kept = append(kept, l)
		}
	}
	t.d.cartLines = kept
	return nil
}

func (t *memTx) SetCartCoupon(_ context.Context, cartID, couponID string) error {
	c, ok := t.d.carts[cartID]
	if !ok {
		return ErrCartNotFound
	}
	c.CouponID = couponID
	t.d.carts[cartID] = c
	return nil
}

func (t *memTx) CouponByID(_ context.Context, id string) (Coupon, error) {
	if c, ok := t.d.coupons[id]; ok {
		return c, nil
	}
	return Coupon{}, ErrCouponNotFound
}

func (t *memTx) CouponByCode(_ context.Context, code string) (Coupon, error) {
	for _, c := range t.d.coupons {
		if c.Code == code {
			return c, nil
		}
	}
	return Coupon{}, ErrCouponNotFound
}

func (t *memTx) RedeemCoupon(_ context.Context, id string) (bool, error) {
	c, ok := t.d.coupons[id]
	if !ok {
		return false, ErrCouponNotFound
	}
	if c.UsesCurrent >= c.UsesMax {
		return false, nil
	}
	c.UsesCurrent++
	t.d.coupons[id] = c
	return true, nil
}

func (t *memTx) AddressByID(_ context.Context, id string) (Address, error) {
	if a, ok := t.d.addresses[id]; ok {
		return a, nil
	}
	return Address{}, ErrAddressNotFound
}

func (t *memTx) DeliveryByID(_ context.Context, id string) (Delivery, error) {
	if d, ok := t.d.deliveries[id]; ok {
		return d, nil
	}
	return Delivery{}, ErrDeliveryNotFound
}

func (t *memTx) DeliveryByAddress(_ context.Context, addressID string) (Delivery, error) {
	for _, d := range t.d.deliveries {
		if d.AddressID == addressID {
			return d, nil
		}
	}
	return Delivery{}, ErrDeliveryNotFound
}

func (t *memTx) CreateDelivery(_ context.Context, d Delivery) error {
	t.d.deliveries[d.ID] = d
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, o Order) error {
	t.d.orders[o.ID] = o
	t.d.orderSeq = append(t.d.orderSeq, o.ID)
	return nil
}

func (t *memTx) InsertOrderLine(_ context.Context, l OrderLine) error {
	t.d.orderLines = append(t.d.orderLines, l)
	return nil
}

func (t *memTx) InsertPayment(_ context.Context, p Payment) error {
	t.d.payments = append(t.d.payments, p)
	return nil
}

func (t *memTx) OrderByID(_ context.Context, id string) (Order, error) {
	if o, ok := t.d.orders[id]; ok {
		return o, nil
	}
	return Order{}, ErrOrderNotFound
}

func (t *memTx) OrderLines(_ context.Context, orderID string) ([]OrderLine, error) {
	var out []OrderLine
	for _, l := range t.d.orderLines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (t *memTx) OrdersByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, id := range t.d.orderSeq {
		if o := t.d.orders[id]; o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (t *memTx) AllOrders(_ context.Context) ([]Order, error) {
	var out []Order
	for _, id := range t.d.orderSeq {
		out = append(out, t.d.orders[id])
	}
	return out, nil
}

func (t *memTx) PaymentByID(_ context.Context, id string) (Payment, error) {
	for _, p := range t.d.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return Payment{}, ErrPaymentNotFound
}

func (t *memTx) PaymentsByOrder(_ context.Context, orderID string) ([]Payment, error) {
	var out []Payment
	for _, p := range t.d.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *memTx) LatestPayment(_ context.Context, orderID string) (Payment, error) {
	var (
		best  Payment
		found bool
	)
	for _, p := range t.d.payments {
		if p.OrderID != orderID {
			continue
		}
		if !found || p.CreatedAt.After(best.CreatedAt) ||
			(p.CreatedAt.Equal(best.CreatedAt) && p.ID > best.ID) {
			best = p
			found = true
		}
	}
	if !found {
		return Payment{}, ErrPaymentNotFound
	}
	return best, nil
}

func (t *memTx) SetPaymentStatus(_ context.Context, id string, s PaymentStatus) error {
	for i, p := range t.d.payments {
		if p.ID == id {
			t.d.payments[i].Status = s
			return nil
		}
	}
	return ErrPaymentNotFound
}

func (t *memTx) SetOrderStatus(_ context.Context, id string, s OrderStatus) error {
	o, ok := t.d.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = s
	t.d.orders[id] = o
	return nil
}
