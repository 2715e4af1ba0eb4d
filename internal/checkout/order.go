package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Provider default untuk delivery yang dibuat lazy per address.
const DefaultDeliveryProvider = "Standard"

type CreateOrderInput struct {
	AddressID     string `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
}

type OrderItemView struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	PriceCents     int    `json:"price_cents"`
	LineTotalCents int    `json:"line_total_cents"`
}

type OrderView struct {
	ID         string          `json:"id"`
	Status     OrderStatus     `json:"status"`
	TotalCents int             `json:"total_cents"`
	Items      []OrderItemView `json:"items"`
}

type OrderSummary struct {
	OrderID          string          `json:"order_id"`
	UserEmail        string          `json:"user_email"`
	Status           OrderStatus     `json:"status"`
	PaymentID        string          `json:"payment_id"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	PaymentMethod    string          `json:"payment_method"`
	TotalCents       int             `json:"total_cents"`
	DeliveryProvider string          `json:"delivery_provider"`
	Items            []OrderItemView `json:"items"`
	OrderedAt        time.Time       `json:"ordered_at"`
	PaidAt           time.Time       `json:"payment_at"`
}

type PaymentView struct {
	ID          string        `json:"id"`
	AmountCents int           `json:"amount_cents"`
	Method      string        `json:"method"`
	Status      PaymentStatus `json:"status"`
	TxID        string        `json:"tx_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// OrderService mengubah cart jadi order immutable + payment attempt pertama,
// lalu menggerakkan lifecycle status payment/order. Satu method = satu
// transaksi; guard stok negatif dan kuota kupon dievaluasi saat commit.
type OrderService struct {
	Store Store
	Now   func() time.Time
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *OrderService) Create(ctx context.Context, userID string, in CreateOrderInput) (OrderView, error) {
	var view OrderView
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		user, err := tx.UserByID(ctx, userID)
		if err != nil {
			return err
		}
		if !user.Active {
			return ErrUserInactive
		}

		cart, err := tx.CartByUser(ctx, userID)
		if err != nil {
			if Kind(err) == KindNotFound {
				return ErrEmptyCart
			}
			return err
		}
		lines, err := tx.CartLines(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// cek stok (tanpa decrement; decrement baru saat payment SUCCESS)
		// sambil snapshot harga per line
		subtotal := 0
		items := make([]OrderItemView, 0, len(lines))
		for _, l := range lines {
			p, err := tx.ProductByID(ctx, l.ProductID)
			if err != nil {
				return err
			}
			if l.Qty > p.Stock {
				return fmt.Errorf("%w: product %s", ErrInsufficientStock, p.Name)
			}
			items = append(items, OrderItemView{
				ProductID:      p.ID,
				Name:           p.Name,
				Qty:            l.Qty,
				PriceCents:     p.PriceCents,
				LineTotalCents: l.Qty * p.PriceCents,
			})
			subtotal += l.Qty * p.PriceCents
		}

		total := subtotal
		discount := 0
		couponID := ""
		if cart.CouponID != "" {
			// re-validasi terhadap state sekarang, bukan saat apply ke cart
			c, err := tx.CouponByID(ctx, cart.CouponID)
			if err != nil {
				if Kind(err) == KindNotFound {
					return ErrInvalidCoupon
				}
				return err
			}
			if !CouponValid(c, s.now()) {
				return ErrInvalidCoupon
			}
			discount = DiscountCents(subtotal, c.DiscountPct)
			total = subtotal - discount
			// redeem di transaksi yang sama: order gagal = kuota tidak terpakai
			ok, err := tx.RedeemCoupon(ctx, c.ID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrInvalidCoupon
			}
			couponID = c.ID
		}

		addr, err := tx.AddressByID(ctx, in.AddressID)
		if err != nil {
			return err
		}
		if addr.UserID != userID {
			return ErrForeignAddress
		}
		delivery, err := tx.DeliveryByAddress(ctx, addr.ID)
		if err != nil {
			if Kind(err) != KindNotFound {
				return err
			}
			delivery = Delivery{
				ID:        uuid.NewString(),
				AddressID: addr.ID,
				Provider:  DefaultDeliveryProvider,
			}
			if err := tx.CreateDelivery(ctx, delivery); err != nil {
				return err
			}
		}

		order := Order{
			ID:            uuid.NewString(),
			UserID:        userID,
			Status:        OrderPlaced,
			DiscountCents: discount,
			CouponID:      couponID,
			DeliveryID:    delivery.ID,
			CreatedAt:     s.now(),
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		for _, it := range items {
			if err := tx.InsertOrderLine(ctx, OrderLine{
				ID:         uuid.NewString(),
				OrderID:    order.ID,
				ProductID:  it.ProductID,
				Qty:        it.Qty,
				PriceCents: it.PriceCents,
			}); err != nil {
				return err
			}
		}
		if err := tx.InsertPayment(ctx, Payment{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			AmountCents: total,
			Method:      in.PaymentMethod,
			Status:      PaymentWaiting,
			CreatedAt:   s.now(),
		}); err != nil {
			return err
		}

		// cart dikosongkan paling akhir; step gagal di atas = rollback semua
		if err := tx.DeleteCartLines(ctx, cart.ID); err != nil {
			return err
		}
		if err := tx.SetCartCoupon(ctx, cart.ID, ""); err != nil {
			return err
		}

		view = OrderView{ID: order.ID, Status: order.Status, TotalCents: total, Items: items}
		return nil
	})
	return view, err
}

// PaymentTransition melaporkan hasil satu update status payment.
type PaymentTransition struct {
	PaymentID     string
	OrderID       string
	PaymentStatus PaymentStatus
	OrderStatus   OrderStatus
}

// UpdatePaymentStatus adalah entry point notifikasi pembayaran eksternal.
// SUCCESS: order -> START_DELIVERY + decrement stok (sekali, dengan row lock).
// FAILED: order balik ke PLACED supaya bisa retry.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, paymentID, newStatus string) (PaymentTransition, error) {
	target, ok := ParsePaymentStatus(newStatus)
	if !ok {
		return PaymentTransition{}, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}
	var out PaymentTransition
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.PaymentByID(ctx, paymentID)
		if err != nil {
			return err
		}
		out = PaymentTransition{PaymentID: p.ID, OrderID: p.OrderID, PaymentStatus: target}
		if p.Status == target {
			// notifikasi ulang: simpan apa adanya, tanpa side effect
			if err := tx.SetPaymentStatus(ctx, p.ID, target); err != nil {
				return err
			}
			order, err := tx.OrderByID(ctx, p.OrderID)
			if err != nil {
				return err
			}
			out.OrderStatus = order.Status
			return nil
		}
		if !CanSettlePayment(p.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrPaymentSettled, p.Status, target)
		}
		if err := tx.SetPaymentStatus(ctx, p.ID, target); err != nil {
			return err
		}
		// lolos guard transisi = target pasti SUCCESS atau FAILED
		if target == PaymentSuccess {
			out.OrderStatus = OrderStartDelivery
			return s.applyPaymentSuccess(ctx, tx, p.OrderID)
		}
		out.OrderStatus = OrderPlaced
		return tx.SetOrderStatus(ctx, p.OrderID, OrderPlaced)
	})
	if err != nil {
		return PaymentTransition{}, err
	}
	return out, nil
}

// applyPaymentSuccess mengunci tiap product (FOR UPDATE) lalu mengurangi stok.
// Stok yang akan negatif itu state inkonsisten: seluruh update di-rollback,
// tidak di-clamp ke nol.
func (s *OrderService) applyPaymentSuccess(ctx context.Context, tx Tx, orderID string) error {
	if err := tx.SetOrderStatus(ctx, orderID, OrderStartDelivery); err != nil {
		return err
	}
	lines, err := tx.OrderLines(ctx, orderID)
	if err != nil {
		return err
	}
	for _, l := range lines {
		p, err := tx.ProductForUpdate(ctx, l.ProductID)
		if err != nil {
			return err
		}
		rest := p.Stock - l.Qty
		if rest < 0 {
			return fmt.Errorf("%w: product %s", ErrNegativeStock, p.Name)
		}
		if err := tx.SetProductStock(ctx, p.ID, rest); err != nil {
			return err
		}
	}
	return nil
}

// UpdateDeliveryStatus menerima status kiriman dari admin; hanya ejaan yang
// divalidasi, tidak ada tabel transisi untuk state setelah START_DELIVERY.
func (s *OrderService) UpdateDeliveryStatus(ctx context.Context, orderID, newStatus string) error {
	target, ok := ParseOrderStatus(newStatus)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}
	return s.Store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.OrderByID(ctx, orderID); err != nil {
			return err
		}
		return tx.SetOrderStatus(ctx, orderID, target)
	})
}

// RetryPayment menambahkan attempt baru; record FAILED lama tidak diubah.
func (s *OrderService) RetryPayment(ctx context.Context, userID, orderID, method string) (OrderView, error) {
	var view OrderView
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		order, err := tx.OrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return ErrForeignOrder
		}
		latest, err := tx.LatestPayment(ctx, orderID)
		if err != nil {
			return err
		}
		if latest.Status != PaymentFailed {
			return ErrRetryNotAllowed
		}
		next := Payment{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			AmountCents: latest.AmountCents,
			Method:      method,
			Status:      PaymentWaiting,
			CreatedAt:   s.now(),
		}
		if err := tx.InsertPayment(ctx, next); err != nil {
			return err
		}
		view, err = orderViewTx(ctx, tx, order, next)
		return err
	})
	return view, err
}

// GetByID: owner atau admin.
func (s *OrderService) GetByID(ctx context.Context, userID, orderID string) (OrderView, error) {
	var view OrderView
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		order, err := tx.OrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		caller, err := tx.UserByID(ctx, userID)
		if err != nil {
			return err
		}
		if order.UserID != userID && caller.Role != RoleAdmin {
			return ErrForeignOrder
		}
		latest, err := tx.LatestPayment(ctx, orderID)
		if err != nil {
			return err
		}
		view, err = orderViewTx(ctx, tx, order, latest)
		return err
	})
	return view, err
}

func (s *OrderService) GetMyOrders(ctx context.Context, userID string) ([]OrderSummary, error) {
	var out []OrderSummary
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		orders, err := tx.OrdersByUser(ctx, userID)
		if err != nil {
			return err
		}
		out, err = summarize(ctx, tx, orders)
		return err
	})
	return out, err
}

func (s *OrderService) GetAllOrders(ctx context.Context, callerID string) ([]OrderSummary, error) {
	var out []OrderSummary
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		caller, err := tx.UserByID(ctx, callerID)
		if err != nil {
			return err
		}
		if caller.Role != RoleAdmin {
			return ErrAdminOnly
		}
		orders, err := tx.AllOrders(ctx)
		if err != nil {
			return err
		}
		out, err = summarize(ctx, tx, orders)
		return err
	})
	return out, err
}

// GetOrderPayments: riwayat attempt lengkap, urutan penyimpanan.
func (s *OrderService) GetOrderPayments(ctx context.Context, userID, orderID string) ([]PaymentView, error) {
	var out []PaymentView
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		order, err := tx.OrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		caller, err := tx.UserByID(ctx, userID)
		if err != nil {
			return err
		}
		if order.UserID != userID && caller.Role != RoleAdmin {
			return ErrForeignOrder
		}
		pays, err := tx.PaymentsByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		out = make([]PaymentView, 0, len(pays))
		for _, p := range pays {
			out = append(out, PaymentView{
				ID:          p.ID,
				AmountCents: p.AmountCents,
				Method:      p.Method,
				Status:      p.Status,
				TxID:        p.TxID,
				CreatedAt:   p.CreatedAt,
			})
		}
		return nil
	})
	return out, err
}

func orderViewTx(ctx context.Context, tx Tx, order Order, pay Payment) (OrderView, error) {
	items, err := orderItems(ctx, tx, order.ID)
	if err != nil {
		return OrderView{}, err
	}
	return OrderView{
		ID:         order.ID,
		Status:     order.Status,
		TotalCents: pay.AmountCents,
		Items:      items,
	}, nil
}

func orderItems(ctx context.Context, tx Tx, orderID string) ([]OrderItemView, error) {
	lines, err := tx.OrderLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items := make([]OrderItemView, 0, len(lines))
	for _, l := range lines {
		p, err := tx.ProductByID(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, OrderItemView{
			ProductID:      l.ProductID,
			Name:           p.Name,
			Qty:            l.Qty,
			PriceCents:     l.PriceCents, // harga snapshot, bukan harga product sekarang
			LineTotalCents: l.Qty * l.PriceCents,
		})
	}
	return items, nil
}

func summarize(ctx context.Context, tx Tx, orders []Order) ([]OrderSummary, error) {
	out := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		latest, err := tx.LatestPayment(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		user, err := tx.UserByID(ctx, o.UserID)
		if err != nil {
			return nil, err
		}
		delivery, err := tx.DeliveryByID(ctx, o.DeliveryID)
		if err != nil {
			return nil, err
		}
		items, err := orderItems(ctx, tx, o.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, OrderSummary{
			OrderID:          o.ID,
			UserEmail:        user.Email,
			Status:           o.Status,
			PaymentID:        latest.ID,
			PaymentStatus:    latest.Status,
			PaymentMethod:    latest.Method,
			TotalCents:       latest.AmountCents,
			DeliveryProvider: delivery.Provider,
			Items:            items,
			OrderedAt:        o.CreatedAt,
			PaidAt:           latest.CreatedAt,
		})
	}
	return out, nil
}
