package checkout

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore: implementasi Store di atas postgres. Row lock FOR UPDATE +
// guard di UPDATE memastikan stok dan kuota kupon tidak pernah minus
// walau checkout bersamaan.
type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

func notFound(err error, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}

func (t *pgTx) UserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := t.tx.QueryRow(ctx, `SELECT id, email, role, active FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email, &u.Role, &u.Active)
	return u, notFound(err, ErrUserNotFound)
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.Active, &p.CategoryID,
		&p.CreatedAt, &p.UpdatedAt)
	return p, notFound(err, ErrProductNotFound)
}

func (t *pgTx) ProductByID(ctx context.Context, id string) (Product, error) {
	return scanProduct(t.tx.QueryRow(ctx, `
		SELECT id, name, price_cents, stock, active, category_id, created_at, updated_at
		FROM products WHERE id=$1`, id))
}

func (t *pgTx) ProductForUpdate(ctx context.Context, id string) (Product, error) {
	return scanProduct(t.tx.QueryRow(ctx, `
		SELECT id, name, price_cents, stock, active, category_id, created_at, updated_at
		FROM products WHERE id=$1 FOR UPDATE`, id))
}

func (t *pgTx) SetProductStock(ctx context.Context, id string, stock int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock=$2, updated_at=now() WHERE id=$1 AND $2 >= 0`, id, stock)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNegativeStock
	}
	return nil
}

func (t *pgTx) CartByUser(ctx context.Context, userID string) (Cart, error) {
	var (
		c        Cart
		couponID *string
	)
	err := t.tx.QueryRow(ctx, `SELECT id, user_id, coupon_id FROM carts WHERE user_id=$1`, userID).
		Scan(&c.ID, &c.UserID, &couponID)
	if err != nil {
		return c, notFound(err, ErrCartNotFound)
	}
	if couponID != nil {
		c.CouponID = *couponID
	}
	return c, nil
}

func (t *pgTx) CreateCart(ctx context.Context, c Cart) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO carts(id, user_id) VALUES ($1,$2)`, c.ID, c.UserID)
	return err
}

func (t *pgTx) CartLines(ctx context.Context, cartID string) ([]CartLine, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, cart_id, product_id, qty FROM cart_lines
		WHERE cart_id=$1 ORDER BY id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ID, &l.CartID, &l.ProductID, &l.Qty); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertCartLine(ctx context.Context, l CartLine) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO cart_lines(id, cart_id, product_id, qty)
		VALUES ($1,$2,$3,$4)`, l.ID, l.CartID, l.ProductID, l.Qty)
	return err
}

func (t *pgTx) SetCartLineQty(ctx context.Context, lineID string, qty int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE cart_lines SET qty=$2 WHERE id=$1`, lineID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrLineNotFound
	}
	return nil
}

func (t *pgTx) DeleteCartLine(ctx context.Context, lineID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_lines WHERE id=$1`, lineID)
	return err
}

func (t *pgTx) DeleteCartLines(ctx context.Context, cartID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id=$1`, cartID)
	return err
}

func (t *pgTx) SetCartCoupon(ctx context.Context, cartID, couponID string) error {
	var v *string
	if couponID != "" {
		v = &couponID
	}
	_, err := t.tx.Exec(ctx, `UPDATE carts SET coupon_id=$2 WHERE id=$1`, cartID, v)
	return err
}

func scanCoupon(row pgx.Row) (Coupon, error) {
	var c Coupon
	err := row.Scan(&c.ID, &c.Code, &c.DiscountPct, &c.ExpiresAt, &c.UsesMax,
		&c.UsesCurrent, &c.Active)
	return c, notFound(err, ErrCouponNotFound)
}

func (t *pgTx) CouponByID(ctx context.Context, id string) (Coupon, error) {
	return scanCoupon(t.tx.QueryRow(ctx, `
		SELECT id, code, discount_pct, expires_at, uses_max, uses_current, active
		FROM coupons WHERE id=$1`, id))
}

func (t *pgTx) CouponByCode(ctx context.Context, code string) (Coupon, error) {
	return scanCoupon(t.tx.QueryRow(ctx, `
		SELECT id, code, discount_pct, expires_at, uses_max, uses_current, active
		FROM coupons WHERE code=$1`, code))
}

// RedeemCoupon: guard kuota di WHERE; yang kalah race dapat false.
func (t *pgTx) RedeemCoupon(ctx context.Context, id string) (bool, error) {
	ct, err := t.tx.Exec(ctx, `
		UPDATE coupons SET uses_current = uses_current + 1
		WHERE id=$1 AND uses_current < uses_max`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (t *pgTx) AddressByID(ctx context.Context, id string) (Address, error) {
	var a Address
	err := t.tx.QueryRow(ctx, `SELECT id, user_id, street FROM addresses WHERE id=$1`, id).
		Scan(&a.ID, &a.UserID, &a.Street)
	return a, notFound(err, ErrAddressNotFound)
}

func (t *pgTx) DeliveryByID(ctx context.Context, id string) (Delivery, error) {
	var d Delivery
	err := t.tx.QueryRow(ctx, `SELECT id, address_id, provider FROM deliveries WHERE id=$1`, id).
		Scan(&d.ID, &d.AddressID, &d.Provider)
	return d, notFound(err, ErrDeliveryNotFound)
}

func (t *pgTx) DeliveryByAddress(ctx context.Context, addressID string) (Delivery, error) {
	var d Delivery
	err := t.tx.QueryRow(ctx, `SELECT id, address_id, provider FROM deliveries WHERE address_id=$1`, addressID).
		Scan(&d.ID, &d.AddressID, &d.Provider)
	return d, notFound(err, ErrDeliveryNotFound)
}

func (t *pgTx) CreateDelivery(ctx context.Context, d Delivery) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO deliveries(id, address_id, provider) VALUES ($1,$2,$3)`,
		d.ID, d.AddressID, d.Provider)
	return err
}

func (t *pgTx) InsertOrder(ctx context.Context, o Order) error {
	var couponID *string
	if o.CouponID != "" {
		couponID = &o.CouponID
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, discount_cents, coupon_id, delivery_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, o.UserID, o.Status, o.DiscountCents, couponID, o.DeliveryID, o.CreatedAt)
	return err
}

func (t *pgTx) InsertOrderLine(ctx context.Context, l OrderLine) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_lines(id, order_id, product_id, qty, price_cents)
		VALUES ($1,$2,$3,$4,$5)`, l.ID, l.OrderID, l.ProductID, l.Qty, l.PriceCents)
	return err
}

func (t *pgTx) InsertPayment(ctx context.Context, p Payment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO payments(id, order_id, amount_cents, method, status, tx_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.OrderID, p.AmountCents, p.Method, p.Status, p.TxID, p.CreatedAt)
	return err
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o        Order
		couponID *string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.DiscountCents, &couponID,
		&o.DeliveryID, &o.CreatedAt)
	if err != nil {
		return o, notFound(err, ErrOrderNotFound)
	}
	if couponID != nil {
		o.CouponID = *couponID
	}
	return o, nil
}

const orderCols = `id, user_id, status, discount_cents, coupon_id, delivery_id, created_at`

func (t *pgTx) OrderByID(ctx context.Context, id string) (Order, error) {
	return scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
}

func (t *pgTx) ordersQuery(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := t.tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var (
			o        Order
			couponID *string
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.DiscountCents, &couponID,
			&o.DeliveryID, &o.CreatedAt); err != nil {
			return nil, err
		}
		if couponID != nil {
			o.CouponID = *couponID
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (t *pgTx) OrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	return t.ordersQuery(ctx, `SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (t *pgTx) AllOrders(ctx context.Context) ([]Order, error) {
	return t.ordersQuery(ctx, `SELECT `+orderCols+` FROM orders ORDER BY created_at DESC`)
}

func (t *pgTx) OrderLines(ctx context.Context, orderID string) ([]OrderLine, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, product_id, qty, price_cents FROM order_lines
		WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Qty, &l.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

const paymentCols = `id, order_id, amount_cents, method, status, tx_id, created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.AmountCents, &p.Method, &p.Status, &p.TxID, &p.CreatedAt)
	return p, notFound(err, ErrPaymentNotFound)
}

func (t *pgTx) PaymentByID(ctx context.Context, id string) (Payment, error) {
	return scanPayment(t.tx.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id=$1`, id))
}

func (t *pgTx) PaymentsByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+paymentCols+` FROM payments WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.AmountCents, &p.Method, &p.Status, &p.TxID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTx) LatestPayment(ctx context.Context, orderID string) (Payment, error) {
	return scanPayment(t.tx.QueryRow(ctx, `
		SELECT `+paymentCols+` FROM payments WHERE order_id=$1
		ORDER BY created_at DESC, id DESC LIMIT 1`, orderID))
}

func (t *pgTx) SetPaymentStatus(ctx context.Context, id string, s PaymentStatus) error {
	ct, err := t.tx.Exec(ctx, `UPDATE payments SET status=$2 WHERE id=$1`, id, s)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrPaymentNotFound
	}
	return nil
}

func (t *pgTx) SetOrderStatus(ctx context.Context, id string, s OrderStatus) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, s)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrOrderNotFound
	}
	return nil
}
