package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType is the kind of discount a coupon grants.
type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountFixed   DiscountType = "FIXED"
)

// CouponTargetKind discriminates the coupon targeting union.
type CouponTargetKind int

const (
	// TargetGlobal applies the coupon to every product.
	TargetGlobal CouponTargetKind = iota
	// TargetProduct restricts the coupon to one product.
	TargetProduct
	// TargetCategory restricts the coupon to one category.
	TargetCategory
	// TargetCustomer restricts the coupon to one customer.
	TargetCustomer
)

// CouponTarget is the targeting of a coupon. A coupon targets at most one of
// global, product, category, or customer; the backend treats combined
// targeting arrays as undefined behavior, so the union makes the exclusivity
// structural instead of conventional.
type CouponTarget struct {
	kind CouponTargetKind
	id   string
}

// GlobalTarget targets all products.
func GlobalTarget() CouponTarget { return CouponTarget{kind: TargetGlobal} }

// ProductTarget targets a single product.
func ProductTarget(id string) CouponTarget { return CouponTarget{kind: TargetProduct, id: id} }

// CategoryTarget targets a single category.
func CategoryTarget(id string) CouponTarget { return CouponTarget{kind: TargetCategory, id: id} }

// CustomerTarget targets a single customer.
func CustomerTarget(id string) CouponTarget { return CouponTarget{kind: TargetCustomer, id: id} }

// Kind returns the targeting discriminant.
func (t CouponTarget) Kind() CouponTargetKind { return t.kind }

// ID returns the targeted id; empty for global targets.
func (t CouponTarget) ID() string { return t.id }

// apply fills exactly one targeting array on the wire payload.
func (t CouponTarget) apply(payload map[string]any) {
	switch t.kind {
	case TargetProduct:
		payload["productIds"] = []string{t.id}
	case TargetCategory:
		payload["categoryIds"] = []string{t.id}
	case TargetCustomer:
		payload["customerIds"] = []string{t.id}
	case TargetGlobal:
		// No targeting array means global.
	}
}

// TargetFromIDs reconstructs the union from the backend's array form,
// picking the first populated array.
func TargetFromIDs(productIDs, categoryIDs, customerIDs []string) CouponTarget {
	switch {
	case len(productIDs) > 0:
		return ProductTarget(productIDs[0])
	case len(categoryIDs) > 0:
		return CategoryTarget(categoryIDs[0])
	case len(customerIDs) > 0:
		return CustomerTarget(customerIDs[0])
	default:
		return GlobalTarget()
	}
}

// AdminCoupon is a coupon as reported by the backend.
type AdminCoupon struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	DiscountType DiscountType    `json:"discountType"`
	Discount     decimal.Decimal `json:"discount"`
	ExpiryDate   *time.Time      `json:"expiryDate,omitempty"`
	MaxUses      *int            `json:"maxUses,omitempty"`
	UsedCount    int             `json:"usedCount"`
	Active       bool            `json:"active"`
	ProductIDs   []string        `json:"productIds"`
	CategoryIDs  []string        `json:"categoryIds"`
	CustomerIDs  []string        `json:"customerIds"`
	CreatedAt    *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time      `json:"updatedAt,omitempty"`
}

// Target returns the coupon's targeting as the union form.
func (c AdminCoupon) Target() CouponTarget {
	return TargetFromIDs(c.ProductIDs, c.CategoryIDs, c.CustomerIDs)
}

// CouponInput is the coupon creation payload. Target carries the single
// allowed targeting dimension.
type CouponInput struct {
	Code         string
	DiscountType DiscountType
	Discount     decimal.Decimal
	ExpiryDate   *time.Time
	MaxUses      *int
	Active       *bool
	Target       CouponTarget
}

// MarshalJSON renders the input in the backend's wire shape with exactly one
// targeting array.
func (in CouponInput) MarshalJSON() ([]byte, error) {
	payload := map[string]any{
		"code":         in.Code,
		"discountType": in.DiscountType,
		"discount":     in.Discount,
	}
	if in.ExpiryDate != nil {
		payload["expiryDate"] = in.ExpiryDate.UTC().Format(time.RFC3339)
	}
	if in.MaxUses != nil {
		payload["maxUses"] = *in.MaxUses
	}
	if in.Active != nil {
		payload["active"] = *in.Active
	}
	in.Target.apply(payload)
	return json.Marshal(payload)
}

// CouponSummary is the admin coupon overview counters.
type CouponSummary struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
}

// AdminCouponSummary fetches coupon counters for the admin console.
func (c *Client) AdminCouponSummary(ctx context.Context) (*CouponSummary, error) {
	var out CouponSummary
	if err := c.get(ctx, "/api/admin/coupons/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminCouponQuery filters the admin coupon listing.
type AdminCouponQuery struct {
	Search string
	Limit  *int
	Sort   []SortOrder
}

// AdminListCoupons lists coupons for the admin console.
func (c *Client) AdminListCoupons(ctx context.Context, q AdminCouponQuery) ([]AdminCoupon, error) {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Limit != nil {
		v.Set("limit", strconv.Itoa(*q.Limit))
	}
	for _, s := range q.Sort {
		v.Add("sort", s.String())
	}
	var out []AdminCoupon
	if err := c.get(ctx, "/api/admin/coupons", v, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminGetCoupon fetches one coupon.
func (c *Client) AdminGetCoupon(ctx context.Context, id string) (*AdminCoupon, error) {
	var out AdminCoupon
	if err := c.get(ctx, "/api/admin/coupons/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminCreateCoupon creates a coupon. The request shape is pinned; there is
// no fallback chain of alternative payload spellings.
func (c *Client) AdminCreateCoupon(ctx context.Context, in CouponInput) (*AdminCoupon, error) {
	var out AdminCoupon
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/admin/coupons",
		body:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CouponPatch is a partial coupon update. Target, when non-nil, replaces the
// targeting with its single dimension.
type CouponPatch struct {
	Code         *string
	DiscountType *DiscountType
	Discount     *decimal.Decimal
	ExpiryDate   *time.Time
	MaxUses      *int
	Active       *bool
	Target       *CouponTarget
}

// MarshalJSON renders only the set fields.
func (p CouponPatch) MarshalJSON() ([]byte, error) {
	payload := map[string]any{}
	if p.Code != nil {
		payload["code"] = *p.Code
	}
	if p.DiscountType != nil {
		payload["discountType"] = *p.DiscountType
	}
	if p.Discount != nil {
		payload["discount"] = *p.Discount
	}
	if p.ExpiryDate != nil {
		payload["expiryDate"] = p.ExpiryDate.UTC().Format(time.RFC3339)
	}
	if p.MaxUses != nil {
		payload["maxUses"] = *p.MaxUses
	}
	if p.Active != nil {
		payload["active"] = *p.Active
	}
	if p.Target != nil {
		p.Target.apply(payload)
		if p.Target.kind == TargetGlobal {
			payload["global"] = true
		}
	}
	return json.Marshal(payload)
}

// AdminPatchCoupon applies a partial update to a coupon.
func (c *Client) AdminPatchCoupon(ctx context.Context, id string, patch CouponPatch) (*AdminCoupon, error) {
	var out AdminCoupon
	_, err := c.call(ctx, request{
		method: http.MethodPatch,
		path:   "/api/admin/coupons/" + url.PathEscape(id),
		body:   patch,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminDeleteCoupon deletes a coupon.
func (c *Client) AdminDeleteCoupon(ctx context.Context, id string) error {
	_, err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   "/api/admin/coupons/" + url.PathEscape(id),
	}, nil)
	return err
}
