package cart

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xenking/rosecart/internal/api"
)

// NormalizeCouponCode canonicalizes user input before any coupon call:
// trimmed and uppercased.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ApplyCoupon applies a coupon to the effective cart through the summary-sync
// endpoint, which applies the code and returns refreshed totals in one round
// trip. The applied code and discount in the resulting view are the server's
// decision; the client never computes them.
func (e *Engine) ApplyCoupon(ctx context.Context, code string) error {
	code = NormalizeCouponCode(code)

	if e.auth.Authenticated() {
		cv, err := e.backend.SyncMyCartSummary(ctx, api.SetCoupon(code))
		if err != nil {
			return err
		}
		e.commitView(cv, StateUser)
		return nil
	}

	id, err := e.ResolveEffectiveCartID(ctx)
	if err != nil {
		return err
	}
	cv, err := e.backend.SyncCartSummary(ctx, id, api.SetCoupon(code))
	if err != nil {
		return err
	}
	e.commitView(cv, StateGuest)
	return nil
}

// RemoveCoupon clears the applied coupon. The dedicated DELETE endpoint is
// preferred; when it fails, the summary sync with an explicit null-code
// sentinel is the fallback. After success the view's applied code is nil and
// the discount is zero, both server-reported.
func (e *Engine) RemoveCoupon(ctx context.Context) error {
	if e.auth.Authenticated() {
		cv, err := e.backend.RemoveMyCartCoupon(ctx)
		if err != nil {
			e.lg.Debug("coupon delete endpoint failed, falling back to summary sync", zap.Error(err))
			cv, err = e.backend.SyncMyCartSummary(ctx, api.ClearCoupon())
			if err != nil {
				return err
			}
		}
		e.commitView(cv, StateUser)
		return nil
	}

	id, err := e.ResolveEffectiveCartID(ctx)
	if err != nil {
		return err
	}
	cv, err := e.backend.RemoveCartCoupon(ctx, id)
	if err != nil {
		e.lg.Debug("coupon delete endpoint failed, falling back to summary sync", zap.Error(err))
		cv, err = e.backend.SyncCartSummary(ctx, id, api.ClearCoupon())
		if err != nil {
			return err
		}
	}
	e.commitView(cv, StateGuest)
	return nil
}

// PreviewCoupon validates a code against the current cart without mutating
// anything, returning the backend's estimate. Eligibility can change between
// preview and apply, so this never substitutes for ApplyCoupon.
func (e *Engine) PreviewCoupon(ctx context.Context, code string) (*api.CouponValidation, error) {
	code = NormalizeCouponCode(code)

	vctx := api.CouponContext{CustomerID: e.auth.UserID()}
	if cv := e.snapshotView(); cv != nil {
		for _, it := range cv.Items {
			vctx.ProductIDs = append(vctx.ProductIDs, it.ProductID)
		}
		vctx.Subtotal = cv.Subtotal.String()
	}
	return e.backend.ValidateCoupon(ctx, code, vctx)
}
