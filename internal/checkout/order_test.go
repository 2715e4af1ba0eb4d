package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture bersama: u1 customer aktif dengan address a1, u2 customer lain,
// adm admin, dorm user nonaktif.
func seedShop(s *memStore) {
	s.seed(func(d *memData) {
		d.users["u1"] = User{ID: "u1", Email: "ana@example.com", Role: RoleCustomer, Active: true}
		d.users["u2"] = User{ID: "u2", Email: "budi@example.com", Role: RoleCustomer, Active: true}
		d.users["adm"] = User{ID: "adm", Email: "admin@example.com", Role: RoleAdmin, Active: true}
		d.users["dorm"] = User{ID: "dorm", Email: "dorm@example.com", Role: RoleCustomer, Active: false}
		d.products["p1"] = Product{ID: "p1", Name: "Teh Botol", PriceCents: 1000, Stock: 10, Active: true}
		d.products["p2"] = Product{ID: "p2", Name: "Kopi Susu", PriceCents: 500, Stock: 3, Active: true}
		d.coupons["c20"] = Coupon{
			ID: "c20", Code: "PROMO20", DiscountPct: 20,
			ExpiresAt: testNow.Add(24 * time.Hour), UsesMax: 5, Active: true,
		}
		d.addresses["a1"] = Address{ID: "a1", UserID: "u1", Street: "Jl. Sudirman 1"}
		d.addresses["a2"] = Address{ID: "a2", UserID: "u2", Street: "Jl. Thamrin 2"}
	})
}

type shopFixture struct {
	store  *memStore
	carts  *CartService
	orders *OrderService
	now    time.Time
}

func newShop(t *testing.T) *shopFixture {
	t.Helper()
	s := newMemStore()
	seedShop(s)
	f := &shopFixture{store: s, now: testNow}
	clock := func() time.Time { return f.now }
	f.carts = &CartService{Store: s, Now: clock}
	f.orders = &OrderService{Store: s, Now: clock}
	return f
}

func (f *shopFixture) fillCart(t *testing.T, userID string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, userID, "p1", 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, userID, "p2", 1)
	require.NoError(t, err)
}

func (f *shopFixture) placeOrder(t *testing.T, userID string) OrderView {
	t.Helper()
	f.fillCart(t, userID)
	view, err := f.orders.Create(context.Background(), userID, CreateOrderInput{
		AddressID: "a1", PaymentMethod: "CARD",
	})
	require.NoError(t, err)
	return view
}

func (f *shopFixture) latestPayment(t *testing.T, orderID string) Payment {
	t.Helper()
	var p Payment
	err := f.store.WithTx(context.Background(), func(tx Tx) error {
		var err error
		p, err = tx.LatestPayment(context.Background(), orderID)
		return err
	})
	require.NoError(t, err)
	return p
}

func (f *shopFixture) productStock(id string) int {
	var stock int
	f.store.seed(func(d *memData) { stock = d.products[id].Stock })
	return stock
}

func TestOrderCreate(t *testing.T) {
	f := newShop(t)
	view := f.placeOrder(t, "u1")

	assert.Equal(t, OrderPlaced, view.Status)
	assert.Equal(t, 2500, view.TotalCents)
	assert.Len(t, view.Items, 2)

	// payment pertama WAITING dengan amount = total
	pay := f.latestPayment(t, view.ID)
	assert.Equal(t, PaymentWaiting, pay.Status)
	assert.Equal(t, 2500, pay.AmountCents)
	assert.Equal(t, "CARD", pay.Method)

	// stok belum berkurang sebelum payment SUCCESS
	assert.Equal(t, 10, f.productStock("p1"))
	assert.Equal(t, 3, f.productStock("p2"))

	// cart kosong setelah checkout
	cart, err := f.carts.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestOrderCreateWithCoupon(t *testing.T) {
	f := newShop(t)
	ctx := context.Background()
	f.fillCart(t, "u1")
	_, err := f.carts.ApplyCoupon(ctx, "u1", "PROMO20")
	require.NoError(t, err)

	view, err := f.orders.Create(ctx, "u1", CreateOrderInput{AddressID: "a1", PaymentMethod: "CARD"})
	require.NoError(t, err)
	assert.Equal(t, 2000, view.TotalCents)

	// kuota kupon terpakai sekali
	f.store.seed(func(d *memData) {
		assert.Equal(t, 1, d.coupons["c20"].UsesCurrent)
	})
}

func TestOrderCreateEmptyCart(t *testing.T) {
	f := newShop(t)
	ctx := context.Background()

	// tanpa cart sama sekali
	_, err := f.orders.Create(ctx, "u1", CreateOrderInput{AddressID: "a1", PaymentMethod: "CARD"})
	require.ErrorIs(t, err, ErrEmptyCart)

	// cart ada tapi kosong
	_, err = f.carts.Get(ctx, "u1")
	require.NoError(t, err)
	_, err = f.orders.Create(ctx, "u1", CreateOrderInput{AddressID: "a1", PaymentMethod: "CARD"})
	require.ErrorIs(t, err, ErrEmptyCart)

	// tidak ada order/payment yang tertulis
	f.store.seed(func(d *memData) {
		assert.Empty(t, d.orders)
		assert.Empty(t, d.payments)
	})
}

func TestOrderCreateInactiveUser(t *testing.T) {
	f := newShop(t)
	_, err := f.orders.Create(context.Background(), "dorm", CreateOrderInput{AddressID: "a1", PaymentMethod: "CARD"})
	require.ErrorIs(t, err, ErrUserInactive)
}

func TestOrderCreateForeignAddress(t *testing.T) {
	f := newShop(t)
	f.fillCart(t, "u1")
	_, err := f.orders.Create(context.Background(), "u1", CreateOrderInput{AddressID: "a2", PaymentMethod: "CARD"})
	require.ErrorIs(t, err, ErrForeignAddress)
	assert.Equal(t, KindAuthorization, Kind(err))

	// rollback: cart masih terisi
	cart, err := f.carts.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestOrderCreateInsufficientStock(t *testing.T) {
	f := newShop(t)
	ctx := context.Background()
	f.fillCart(t, "u1")
	// stok p2 turun setelah barang masuk cart
	f.store.seed(func(d *memData) {
		p := d.products["p2"]
		p.Stock = 0
		d.products["p2"] = p
	})

	_, err := f.orders.Create(ctx, "u1", CreateOrderInput{AddressID: "a1", PaymentMethod: "CARD"})
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestOrderCreateCouponGoneBad(t *testing.T) {
	f := newShop(t)
	ctx := context.Background()
	f.fillCart(t, "u1")
	_, err := f.carts.ApplyCoupon(ctx, "u1", "PROMO20")
	require.NoError(t, err)

	// kupon habis kuota di antara apply dan checkout
	f.store.seed(func(d *memData) {
		c := d.coupons["c20"]
		c.UsesCurrent = c.UsesMax
		d.coupons["c20"] = c
	})

	_, err = f.orders.Create(ctx, "u1", CreateOrderInput{AddressID: "a1", PaymentMethod: "CARD"})
	require.ErrorIs(t, err, ErrInvalidCoupon)

	// order batal total, kuota tidak bertambah
	f.store.seed(func(d *memData) {
		assert.Empty(t, d.orders)
		assert.Equal(t, 5, d.coupons["c20"].UsesCurrent)
	})
}

func TestOrderCreateReusesDelivery(t *testing.T) {
	f := newShop(t)
	first := f.placeOrder(t, "u1")
	second := f.placeOrder(t, "u1")

	f.store.seed(func(d *memData) {
		require.Len(t, d.deliveries, 1)
		for _, dv := range d.deliveries {
			assert.Equal(t, "Standard", dv.Provider)
			assert.Equal(t, "a1", dv.AddressID)
		}
		assert.Equal(t, d.orders[first.ID].DeliveryID, d.orders[second.ID].DeliveryID)
	})
}

func TestPaymentSuccessDecrementsStockOnce(t *testing.T) {
	f := newShop(t)
	view := f.placeOrder(t, "u1")
	pay := f.latestPayment(t, view.ID)
	ctx := context.Background()

	res, err := f.orders.UpdatePaymentStatus(ctx, pay.ID, "SUCCESS")
	require.NoError(t, err)
	assert.Equal(t, view.ID, res.OrderID)
	assert.Equal(t, PaymentSuccess, res.PaymentStatus)
	assert.Equal(t, OrderStartDelivery, res.OrderStatus)
	assert.Equal(t, 8, f.productStock("p1"))
	assert.Equal(t, 2, f.productStock("p2"))

	// notifikasi ulang status sama: no-op, stok tidak berkurang lagi
	res, err = f.orders.UpdatePaymentStatus(ctx, pay.ID, "SUCCESS")
	require.NoError(t, err)
	assert.Equal(t, OrderStartDelivery, res.OrderStatus)
	assert.Equal(t, 8, f.productStock("p1"))
	assert.Equal(t, 2, f.productStock("p2"))
}

func TestPaymentFailedKeepsOrderPlaced(t *testing.T) {
	f := newShop(t)
	view := f.placeOrder(t, "u1")
	pay := f.latestPayment(t, view.ID)

	res, err := f.orders.UpdatePaymentStatus(context.Background(), pay.ID, "FAILED")
	require.NoError(t, err)
	assert.Equal(t, PaymentFailed, res.PaymentStatus)
	assert.Equal(t, OrderPlaced, res.OrderStatus)
	assert.Equal(t, 10, f.productStock("p1"))
}

func TestPaymentSettledConflict(t *testing.T) {
	f := newShop(t)
	view := f.placeOrder(t, "u1")
	pay := f.latestPayment(t, view.ID)
	ctx := context.Background()

	_, err := f.orders.UpdatePaymentStatus(ctx, pay.ID, "FAILED")
	require.NoError(t, err)

	// payment yang sudah settle tidak boleh pindah status lain
	_, err = f.orders.UpdatePaymentStatus(ctx, pay.ID, "SUCCESS")
	require.ErrorIs(t, err, ErrPaymentSettled)
	assert.Equal(t, KindConflict, Kind(err))
	assert.Equal(t, 10, f.productStock("p1"))
}

func TestPaymentSuccessNegativeStockRollsBack(t *testing.T) {
	f := newShop(t)
	view := f.placeOrder(t, "u1")
	pay := f.latestPayment(t, view.ID)

	// stok p2 hilang setelah order dibuat (order lain, koreksi manual, dst)
	f.store.seed(func(d *memData) {
		p := d.products["p2"]
		p.Stock = 0
		d.products["p2"] = p
	})

	_, err := f.orders.UpdatePaymentStatus(context.Background(), pay.ID, "SUCCESS")
	require.ErrorIs(t, err, ErrNegativeStock)
	assert.Equal(t, KindConflict, Kind(err))

	// rollback total: p1 tidak ikut ter-decrement, order dan payment tetap
	assert.Equal(t, 10, f.productStock("p1"))
	f.store.seed(func(d *memData) {
		assert.Equal(t, OrderPlaced, d.orders[view.ID].Status)
	})
	assert.Equal(t, PaymentWaiting, f.latestPayment(t, view.ID).Status)
}

func TestPaymentUpdateBadInput(t *testing.T) {
	f := newShop(t)
	view := f.placeOrder(t, "u1")
	pay := f.latestPayment(t, view.ID)
	ctx := context.Background()

	_, err := f.orders.UpdatePaymentStatus(ctx, pay.ID, "PAID")
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.orders.UpdatePaymentStatus(ctx, "nope", "SUCCESS")
	require.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestRetryPayment(t *testing.T) {
	f := newShop(t)
	view := f.placeOrder(t, "u1")
	first := f.latestPayment(t, view.ID)
	ctx := context.Background()

	_, err := f.orders.UpdatePaymentStatus(ctx, first.ID, "FAILED")
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	retried, err := f.orders.RetryPayment(ctx, "u1", view.ID, "BANK_TRANSFER")
	require.NoError(t, err)
	assert.Equal(t, view.TotalCents, retried.TotalCents)

	// attempt baru WAITING, record lama tetap FAILED
	pays, err := f.orders.GetOrderPayments(ctx, "u1", view.ID)
	require.NoError(t, err)
	require.Len(t, pays, 2)
	assert.Equal(t, PaymentFailed, pays[0].Status)
	assert.Equal(t, PaymentWaiting, pays[1].Status)
	assert.Equal(t, "BANK_TRANSFER", pays[1].Method)
	assert.Equal(t, pays[1].ID, f.latestPayment(t, view.ID).ID)
}

func TestRetryPaymentNotAllowed(t *testing.T) {
	f := newShop(t)
	view := f.placeOrder(t, "u1")
	ctx := context.Background()

	// attempt terbaru masih WAITING
	_, err := f.orders.RetryPayment(ctx, "u1", view.ID, "CARD")
	require.ErrorIs(t, err, ErrRetryNotAllowed)

	pay := f.latestPayment(t, view.ID)
	_, err = f.orders.UpdatePaymentStatus(ctx, pay.ID, "SUCCESS")
	require.NoError(t, err)

	// attempt terbaru sudah SUCCESS
	_, err = f.orders.RetryPayment(ctx, "u1", view.ID, "CARD")
	require.ErrorIs(t, err, ErrRetryNotAllowed)
}

func TestRetryPaymentForeignOrder(t *testing.T) {
	f := newShop(t)
	view := f.placeOrder(t, "u1")

	_, err := f.orders.RetryPayment(context.Background(), "u2", view.ID, "CARD")
	require.ErrorIs(t, err, ErrForeignOrder)
}

func TestUpdateDeliveryStatus(t *testing.T) {
	f := newShop(t)
	view := f.placeOrder(t, "u1")
	ctx := context.Background()

	require.NoError(t, f.orders.UpdateDeliveryStatus(ctx, view.ID, "in_transit"))
	f.store.seed(func(d *memData) {
		assert.Equal(t, OrderInTransit, d.orders[view.ID].Status)
	})

	err := f.orders.UpdateDeliveryStatus(ctx, view.ID, "TELEPORTED")
	require.ErrorIs(t, err, ErrInvalidStatus)

	err = f.orders.UpdateDeliveryStatus(ctx, "nope", "DELIVERED")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetByIDVisibility(t *testing.T) {
	f := newShop(t)
	view := f.placeOrder(t, "u1")
	ctx := context.Background()

	got, err := f.orders.GetByID(ctx, "u1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, got.ID)

	// admin boleh lihat order siapa pun
	_, err = f.orders.GetByID(ctx, "adm", view.ID)
	require.NoError(t, err)

	// customer lain tidak
	_, err = f.orders.GetByID(ctx, "u2", view.ID)
	require.ErrorIs(t, err, ErrForeignOrder)

	_, err = f.orders.GetByID(ctx, "u1", "nope")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderPriceSnapshot(t *testing.T) {
	f := newShop(t)
	view := f.placeOrder(t, "u1")

	// harga product naik setelah order dibuat
	f.store.seed(func(d *memData) {
		p := d.products["p1"]
		p.PriceCents = 9999
		d.products["p1"] = p
	})

	got, err := f.orders.GetByID(context.Background(), "u1", view.ID)
	require.NoError(t, err)
	for _, it := range got.Items {
		if it.ProductID == "p1" {
			assert.Equal(t, 1000, it.PriceCents)
			assert.Equal(t, 2000, it.LineTotalCents)
		}
	}
	assert.Equal(t, 2500, got.TotalCents)
}

func TestGetMyOrders(t *testing.T) {
	f := newShop(t)
	first := f.placeOrder(t, "u1")
	f.now = f.now.Add(time.Minute)
	second := f.placeOrder(t, "u1")

	out, err := f.orders.GetMyOrders(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, first.ID, out[0].OrderID)
	assert.Equal(t, second.ID, out[1].OrderID)
	assert.Equal(t, "ana@example.com", out[0].UserEmail)
	assert.Equal(t, "Standard", out[0].DeliveryProvider)
	assert.Equal(t, PaymentWaiting, out[0].PaymentStatus)
	assert.Equal(t, 2500, out[0].TotalCents)

	// user lain tanpa order: list kosong
	out, err = f.orders.GetMyOrders(context.Background(), "u2")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGetAllOrdersAdminOnly(t *testing.T) {
	f := newShop(t)
	f.placeOrder(t, "u1")

	out, err := f.orders.GetAllOrders(context.Background(), "adm")
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = f.orders.GetAllOrders(context.Background(), "u1")
	require.ErrorIs(t, err, ErrAdminOnly)
	assert.Equal(t, KindAuthorization, Kind(err))
}

func TestGetOrderPaymentsVisibility(t *testing.T) {
	f := newShop(t)
	view := f.placeOrder(t, "u1")
	ctx := context.Background()

	_, err := f.orders.GetOrderPayments(ctx, "u2", view.ID)
	require.ErrorIs(t, err, ErrForeignOrder)

	pays, err := f.orders.GetOrderPayments(ctx, "adm", view.ID)
	require.NoError(t, err)
	assert.Len(t, pays, 1)
}
