package checkout

import (
	"context"
	"math"
	"time"
)

// CouponValid: aktif, belum expired, masih ada sisa kuota.
func CouponValid(c Coupon, now time.Time) bool {
	return c.Active && c.ExpiresAt.After(now) && c.UsesCurrent < c.UsesMax
}

// DiscountCents = subtotal * pct / 100, dibulatkan ke cent terdekat.
func DiscountCents(subtotalCents int, pct float64) int {
	return int(math.Round(float64(subtotalCents) * pct / 100))
}

// CouponValidator memvalidasi kode kupon terhadap state saat ini.
// Kupon tidak valid bukan error internal: found=false adalah sinyal normal.
type CouponValidator struct {
	Store Store
	Now   func() time.Time
}

func (v *CouponValidator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *CouponValidator) Validate(ctx context.Context, code string) (Coupon, bool, error) {
	var (
		out   Coupon
		found bool
	)
	err := v.Store.WithTx(ctx, func(tx Tx) error {
		c, ok, err := validateTx(ctx, tx, code, v.now())
		if err != nil {
			return err
		}
		out, found = c, ok
		return nil
	})
	return out, found, err
}

// validateTx dipakai di dalam transaksi yang lebih besar (apply ke cart,
// re-check saat create order).
func validateTx(ctx context.Context, tx Tx, code string, now time.Time) (Coupon, bool, error) {
	c, err := tx.CouponByCode(ctx, code)
	if err != nil {
		if Kind(err) == KindNotFound {
			return Coupon{}, false, nil
		}
		return Coupon{}, false, err
	}
	if !CouponValid(c, now) {
		return Coupon{}, false, nil
	}
	return c, true, nil
}
