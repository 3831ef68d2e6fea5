package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one line of a cart as reported by the backend. LineTotal is
// server-computed; the cart engine recomputes it only for optimistic display
// and discards the guess on the next authoritative fetch.
type CartItem struct {
	ID              string           `json:"id,omitempty"`
	ProductID       string           `json:"productId"`
	Name            string           `json:"name,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	Stock           int              `json:"stock,omitempty"`
	Quantity        int              `json:"quantity"`
	LineTotal       decimal.Decimal  `json:"lineTotal"`
}

// EffectivePrice is the unit price used for totals: the discounted price when
// present, the regular price otherwise.
func (it CartItem) EffectivePrice() decimal.Decimal {
	if it.DiscountedPrice != nil {
		return *it.DiscountedPrice
	}
	return it.Price
}

// CartView is the authoritative snapshot of a cart. Totals and the applied
// coupon are computed server-side; stale copies must not be trusted after a
// mutation.
type CartView struct {
	ID                string          `json:"id"`
	UserID            *string         `json:"userId,omitempty"`
	Items             []CartItem      `json:"items"`
	TotalQuantity     int             `json:"totalQuantity"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	AppliedCouponCode *string         `json:"appliedCouponCode,omitempty"`
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
	Total             decimal.Decimal `json:"total"`
	UpdatedAt         *time.Time      `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy, so optimistic edits never alias the snapshot a
// caller already holds.
func (cv *CartView) Clone() *CartView {
	if cv == nil {
		return nil
	}
	dup := *cv
	dup.Items = make([]CartItem, len(cv.Items))
	copy(dup.Items, cv.Items)
	return &dup
}

// ProductSummary is a catalog listing entry.
type ProductSummary struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	CategoryID      string           `json:"categoryId"`
	CategoryName    string           `json:"categoryName"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	Stock           int              `json:"stock"`
	PrimaryImageURL string           `json:"primaryImageUrl,omitempty"`
}

// ProductDetail extends ProductSummary with the full image set.
type ProductDetail struct {
	ProductSummary
	Images []string `json:"images,omitempty"`
}

// Category is a catalog category.
type Category struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	ProductsCount int    `json:"productsCount,omitempty"`
}

// PublicSettings is the store-facing settings blob (branding, SEO, currency).
type PublicSettings struct {
	StoreName        string `json:"storeName"`
	StoreDescription string `json:"storeDescription,omitempty"`
	StoreEmail       string `json:"storeEmail,omitempty"`
	StorePhone       string `json:"storePhone,omitempty"`
	StoreAddress     string `json:"storeAddress,omitempty"`
	MetaTitle        string `json:"metaTitle,omitempty"`
	MetaDescription  string `json:"metaDescription,omitempty"`
	MetaKeywords     string `json:"metaKeywords,omitempty"`
	OGImageURL       string `json:"ogImageUrl,omitempty"`
	DefaultCurrency  string `json:"defaultCurrency,omitempty"`
}

// Role is a user role as reported by the backend.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

// User is an account as reported by the backend.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Role            Role       `json:"role"`
	Banned          bool       `json:"banned,omitempty"`
	ProfileImageURL string     `json:"profileImageUrl,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Address         string     `json:"address,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

// OrderItem is one line of a placed order.
type OrderItem struct {
	ProductID       string           `json:"productId"`
	Name            string           `json:"name,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	Quantity        int              `json:"quantity"`
	LineTotal       decimal.Decimal  `json:"lineTotal"`
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderInProcess OrderStatus = "IN_PROCESS"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// OrderView is an order as reported by the backend.
type OrderView struct {
	ID                   string          `json:"id"`
	UserID               *string         `json:"userId,omitempty"`
	OrderNumber          string          `json:"orderNumber,omitempty"`
	OrderNumberFormatted string          `json:"orderNumberFormatted,omitempty"`
	Items                []OrderItem     `json:"items"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	DiscountAmount       decimal.Decimal `json:"discountAmount"`
	Total                decimal.Decimal `json:"total"`
	CouponCode           *string         `json:"couponCode,omitempty"`
	PaymentMethod        string          `json:"paymentMethod,omitempty"`
	Status               OrderStatus     `json:"status,omitempty"`
	ShippingAddress      string          `json:"shippingAddress,omitempty"`
	CreatedAt            *time.Time      `json:"createdAt,omitempty"`
}

// OrderStats summarizes an account's order history.
type OrderStats struct {
	TotalOrders     int             `json:"totalOrders"`
	CompletedOrders int             `json:"completedOrders"`
	TotalSpent      decimal.Decimal `json:"totalSpent"`
}

// CouponValidation is the read-only preview result for a coupon code. It is
// an estimate only: eligibility can change between preview and the
// authoritative apply, so it must never stand in for the apply step.
type CouponValidation struct {
	Valid          bool             `json:"valid"`
	Code           string           `json:"code,omitempty"`
	DiscountType   string           `json:"discountType,omitempty"`
	Discount       *decimal.Decimal `json:"discount,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discountAmount,omitempty"`
	Message        string           `json:"message,omitempty"`
}
