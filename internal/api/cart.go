package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
)

// CouponArg selects how a summary-sync request treats the coupon field.
// Exactly one of the three intents applies: leave the coupon untouched,
// set a code, or clear the applied coupon with an explicit null sentinel.
type CouponArg struct {
	set  bool
	code *string
}

// KeepCoupon leaves the applied coupon untouched; the summary sync only
// refreshes totals.
func KeepCoupon() CouponArg { return CouponArg{} }

// SetCoupon applies the given code during the summary sync.
func SetCoupon(code string) CouponArg { return CouponArg{set: true, code: &code} }

// ClearCoupon sends an explicit null code, clearing the applied coupon.
func ClearCoupon() CouponArg { return CouponArg{set: true} }

func (a CouponArg) body() any {
	if !a.set {
		return nil
	}
	return map[string]*string{"code": a.code}
}

// CreateGuestCart provisions a new guest cart and returns its id. Some
// backend versions report the id in meta instead of data, so both are
// checked.
func (c *Client) CreateGuestCart(ctx context.Context) (string, error) {
	var data struct {
		CartID string `json:"cartId"`
	}
	meta, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/carts",
		noAuth: true,
	}, &data)
	if err != nil {
		return "", err
	}
	if data.CartID == "" && len(meta) > 0 {
		var m struct {
			CartID string `json:"cartId"`
		}
		if err := unmarshalMeta(meta, &m); err == nil {
			data.CartID = m.CartID
		}
	}
	if data.CartID == "" {
		return "", errors.New("create guest cart: empty cart id")
	}
	return data.CartID, nil
}

// GetCart fetches a guest cart by id.
func (c *Client) GetCart(ctx context.Context, cartID string) (*CartView, error) {
	var cv CartView
	_, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/api/carts/" + url.PathEscape(cartID),
		noAuth: true,
	}, &cv)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// GetMyCart fetches the authenticated user's cart, creating it server-side if
// absent.
func (c *Client) GetMyCart(ctx context.Context) (*CartView, error) {
	var cv CartView
	if err := c.get(ctx, "/api/me/cart", nil, &cv); err != nil {
		return nil, err
	}
	return &cv, nil
}

// AddCartItem adds quantity units of a product to a guest cart.
func (c *Client) AddCartItem(ctx context.Context, cartID, productID string, quantity int) (*CartView, error) {
	var cv CartView
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/carts/" + url.PathEscape(cartID) + "/items",
		body: map[string]any{
			"productId": productID,
			"quantity":  quantity,
		},
		noAuth: true,
	}, &cv)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// UpdateCartItem sets the quantity of a product line in a guest cart.
func (c *Client) UpdateCartItem(ctx context.Context, cartID, productID string, quantity int) (*CartView, error) {
	var cv CartView
	_, err := c.call(ctx, request{
		method: http.MethodPatch,
		path:   "/api/carts/" + url.PathEscape(cartID) + "/items/" + url.PathEscape(productID),
		body:   map[string]int{"quantity": quantity},
		noAuth: true,
	}, &cv)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// RemoveCartItem deletes a product line from a guest cart.
func (c *Client) RemoveCartItem(ctx context.Context, cartID, productID string) (*CartView, error) {
	var cv CartView
	_, err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   "/api/carts/" + url.PathEscape(cartID) + "/items/" + url.PathEscape(productID),
		noAuth: true,
	}, &cv)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// ClearCart deletes every line of a guest cart.
func (c *Client) ClearCart(ctx context.Context, cartID string) (*CartView, error) {
	var cv CartView
	_, err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   "/api/carts/" + url.PathEscape(cartID),
		noAuth: true,
	}, &cv)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// RemoveCartCoupon clears the applied coupon on a guest cart via the
// dedicated DELETE endpoint.
func (c *Client) RemoveCartCoupon(ctx context.Context, cartID string) (*CartView, error) {
	var cv CartView
	_, err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   "/api/carts/" + url.PathEscape(cartID) + "/coupon",
		noAuth: true,
	}, &cv)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// SyncCartSummary runs the combined coupon-and-totals sync on a guest cart
// and returns the refreshed view.
func (c *Client) SyncCartSummary(ctx context.Context, cartID string, coupon CouponArg) (*CartView, error) {
	var cv CartView
	_, err := c.call(ctx, request{
		method: http.MethodPatch,
		path:   "/api/carts/" + url.PathEscape(cartID) + "/summary",
		body:   coupon.body(),
		noAuth: true,
	}, &cv)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// RemoveMyCartCoupon clears the applied coupon on the authenticated cart.
func (c *Client) RemoveMyCartCoupon(ctx context.Context) (*CartView, error) {
	var cv CartView
	_, err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   "/api/me/cart/coupon",
	}, &cv)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// SyncMyCartSummary runs the combined coupon-and-totals sync on the
// authenticated cart.
func (c *Client) SyncMyCartSummary(ctx context.Context, coupon CouponArg) (*CartView, error) {
	var cv CartView
	_, err := c.call(ctx, request{
		method: http.MethodPatch,
		path:   "/api/me/cart/summary",
		body:   coupon.body(),
	}, &cv)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// MergeStrategy selects how overlapping products combine during a
// guest-to-user cart merge. Only MergeSum is guaranteed by the backend.
type MergeStrategy string

const (
	// MergeSum adds quantities of overlapping products together.
	MergeSum MergeStrategy = "sum"
	// MergeReplace exists in the backend interface but is not relied on.
	MergeReplace MergeStrategy = "replace"
)

// MergeMyCart merges a guest cart into the authenticated user's cart.
func (c *Client) MergeMyCart(ctx context.Context, guestCartID string, strategy MergeStrategy) (*CartView, error) {
	var cv CartView
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/me/cart/merge",
		body: map[string]string{
			"guestCartId": guestCartID,
			"strategy":    string(strategy),
		},
	}, &cv)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// CouponContext carries the preview context for coupon validation.
type CouponContext struct {
	CustomerID  string
	ProductIDs  []string
	CategoryIDs []string
	Subtotal    string
}

// ValidateCoupon previews a coupon without mutating any cart. Eligibility can
// change before the authoritative apply, so the result is advisory only.
func (c *Client) ValidateCoupon(ctx context.Context, code string, vctx CouponContext) (*CouponValidation, error) {
	q := url.Values{}
	if vctx.CustomerID != "" {
		q.Set("customerId", vctx.CustomerID)
	}
	if vctx.Subtotal != "" {
		q.Set("subtotal", vctx.Subtotal)
	}
	for _, id := range vctx.ProductIDs {
		q.Add("productIds", id)
	}
	for _, id := range vctx.CategoryIDs {
		q.Add("categoryIds", id)
	}
	var v CouponValidation
	_, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/api/coupons/" + url.PathEscape(code) + "/validate",
		query:  q,
		noAuth: true,
	}, &v)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
