package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CartItemView struct {
	LineID         string `json:"line_id"`
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	PriceCents     int    `json:"price_cents"`
	LineTotalCents int    `json:"line_total_cents"`
}

type CartView struct {
	ID            string         `json:"id"`
	Items         []CartItemView `json:"items"`
	SubtotalCents int            `json:"subtotal_cents"`
	DiscountCents int            `json:"discount_cents"`
	TotalCents    int            `json:"total_cents"`
	CouponCode    string         `json:"coupon_code,omitempty"`
}

// CartService: satu cart per user, dibuat lazy. Setiap method satu transaksi.
type CartService struct {
	Store Store
	Now   func() time.Time
}

func (s *CartService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *CartService) Get(ctx context.Context, userID string) (CartView, error) {
	var view CartView
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		cart, err := getOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		view, err = cartView(ctx, tx, cart)
		return err
	})
	return view, err
}

func (s *CartService) AddItem(ctx context.Context, userID, productID string, qty int) (CartView, error) {
	if qty < 1 {
		return CartView{}, ErrInvalidQty
	}
	var view CartView
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		cart, err := getOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		p, err := tx.ProductByID(ctx, productID)
		if err != nil {
			return err
		}
		if p.Stock < qty {
			return fmt.Errorf("%w: product %s", ErrInsufficientStock, p.Name)
		}

		// kalau product sudah ada di cart, jumlahkan qty, jangan bikin line baru
		lines, err := tx.CartLines(ctx, cart.ID)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if l.ProductID == productID {
				if err := tx.SetCartLineQty(ctx, l.ID, l.Qty+qty); err != nil {
					return err
				}
				view, err = cartView(ctx, tx, cart)
				return err
			}
		}
		if err := tx.InsertCartLine(ctx, CartLine{
			ID:        uuid.NewString(),
			CartID:    cart.ID,
			ProductID: productID,
			Qty:       qty,
		}); err != nil {
			return err
		}
		view, err = cartView(ctx, tx, cart)
		return err
	})
	return view, err
}

func (s *CartService) UpdateItem(ctx context.Context, userID, lineID string, qty int) (CartView, error) {
	// qty 0 artinya hapus
	if qty == 0 {
		return s.RemoveItem(ctx, userID, lineID)
	}
	if qty < 0 {
		return CartView{}, ErrInvalidQty
	}
	var view CartView
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		cart, err := getOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		line, err := findCartLine(ctx, tx, cart.ID, lineID)
		if err != nil {
			return err
		}
		p, err := tx.ProductByID(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if p.Stock < qty {
			return fmt.Errorf("%w: product %s", ErrInsufficientStock, p.Name)
		}
		if err := tx.SetCartLineQty(ctx, line.ID, qty); err != nil {
			return err
		}
		view, err = cartView(ctx, tx, cart)
		return err
	})
	return view, err
}

// RemoveItem idempotent: line yang sudah tidak ada bukan error.
func (s *CartService) RemoveItem(ctx context.Context, userID, lineID string) (CartView, error) {
	var view CartView
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		cart, err := getOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		if line, err := findCartLine(ctx, tx, cart.ID, lineID); err == nil {
			if err := tx.DeleteCartLine(ctx, line.ID); err != nil {
				return err
			}
		}
		view, err = cartView(ctx, tx, cart)
		return err
	})
	return view, err
}

func (s *CartService) Clear(ctx context.Context, userID string) (CartView, error) {
	var view CartView
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		cart, err := getOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := tx.DeleteCartLines(ctx, cart.ID); err != nil {
			return err
		}
		view, err = cartView(ctx, tx, cart)
		return err
	})
	return view, err
}

// ApplyCoupon dengan kode kosong menghapus kupon yang terpasang (bukan error).
func (s *CartService) ApplyCoupon(ctx context.Context, userID, code string) (CartView, error) {
	var view CartView
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		cart, err := getOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		if code == "" {
			if err := tx.SetCartCoupon(ctx, cart.ID, ""); err != nil {
				return err
			}
			cart.CouponID = ""
			view, err = cartView(ctx, tx, cart)
			return err
		}
		c, ok, err := validateTx(ctx, tx, code, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidCoupon
		}
		if err := tx.SetCartCoupon(ctx, cart.ID, c.ID); err != nil {
			return err
		}
		cart.CouponID = c.ID
		view, err = cartView(ctx, tx, cart)
		return err
	})
	return view, err
}

func (s *CartService) RemoveCoupon(ctx context.Context, userID string) (CartView, error) {
	return s.ApplyCoupon(ctx, userID, "")
}

func getOrCreateCart(ctx context.Context, tx Tx, userID string) (Cart, error) {
	cart, err := tx.CartByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if Kind(err) != KindNotFound {
		return Cart{}, err
	}
	cart = Cart{ID: uuid.NewString(), UserID: userID}
	if err := tx.CreateCart(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

func findCartLine(ctx context.Context, tx Tx, cartID, lineID string) (CartLine, error) {
	lines, err := tx.CartLines(ctx, cartID)
	if err != nil {
		return CartLine{}, err
	}
	for _, l := range lines {
		if l.ID == lineID {
			return l, nil
		}
	}
	return CartLine{}, ErrLineNotFound
}

// cartView menghitung respons: lineTotal per baris, subtotal, diskon, total.
// Cart kosong valid: items kosong, semua angka 0.
func cartView(ctx context.Context, tx Tx, cart Cart) (CartView, error) {
	lines, err := tx.CartLines(ctx, cart.ID)
	if err != nil {
		return CartView{}, err
	}
	view := CartView{ID: cart.ID, Items: []CartItemView{}}
	for _, l := range lines {
		p, err := tx.ProductByID(ctx, l.ProductID)
		if err != nil {
			return CartView{}, err
		}
		lineTotal := l.Qty * p.PriceCents
		view.Items = append(view.Items, CartItemView{
			LineID:         l.ID,
			ProductID:      p.ID,
			Name:           p.Name,
			Qty:            l.Qty,
			PriceCents:     p.PriceCents,
			LineTotalCents: lineTotal,
		})
		view.SubtotalCents += lineTotal
	}
	view.TotalCents = view.SubtotalCents
	if cart.CouponID != "" {
		c, err := tx.CouponByID(ctx, cart.CouponID)
		if err != nil {
			return CartView{}, err
		}
		view.DiscountCents = DiscountCents(view.SubtotalCents, c.DiscountPct)
		view.TotalCents = view.SubtotalCents - view.DiscountCents
		view.CouponCode = c.Code
	}
	return view, nil
}
