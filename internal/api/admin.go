package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// SortOrder is one sort criterion for admin searches, rendered as
// "field,dir" query parameters.
type SortOrder struct {
	Field string
	Desc  bool
}

func (s SortOrder) String() string {
	dir := "asc"
	if s.Desc {
		dir = "desc"
	}
	return s.Field + "," + dir
}

// AdminListProducts lists every product, including inactive ones.
func (c *Client) AdminListProducts(ctx context.Context) ([]ProductSummary, error) {
	var out []ProductSummary
	if err := c.get(ctx, "/api/admin/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminProductQuery filters the admin product search.
type AdminProductQuery struct {
	Search      string
	CategoryID  string
	InStockOnly bool
	Sort        []SortOrder
	Page        *int
	Size        *int
	Limit       *int
}

// AdminSearchProducts searches products for the admin console.
func (c *Client) AdminSearchProducts(ctx context.Context, q AdminProductQuery) ([]ProductSummary, error) {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.CategoryID != "" {
		v.Set("categoryId", q.CategoryID)
	}
	if q.InStockOnly {
		v.Set("inStockOnly", "true")
	}
	if q.Page != nil {
		v.Set("page", strconv.Itoa(*q.Page))
	}
	if q.Size != nil {
		v.Set("size", strconv.Itoa(*q.Size))
	}
	if q.Limit != nil {
		v.Set("limit", strconv.Itoa(*q.Limit))
	}
	for _, s := range q.Sort {
		v.Add("sort", s.String())
	}
	var out []ProductSummary
	if err := c.get(ctx, "/api/admin/products/search", v, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductInput is the full product payload for create and replace.
type ProductInput struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	CategoryID      string           `json:"categoryId"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	Stock           int              `json:"stock"`
	PrimaryImageURL string           `json:"primaryImageUrl,omitempty"`
	Images          []string         `json:"images,omitempty"`
	Active          *bool            `json:"active,omitempty"`
}

// ProductPatch is a partial product update; nil fields are left unchanged.
type ProductPatch struct {
	Name            *string          `json:"name,omitempty"`
	Description     *string          `json:"description,omitempty"`
	CategoryID      *string          `json:"categoryId,omitempty"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	Stock           *int             `json:"stock,omitempty"`
	PrimaryImageURL *string          `json:"primaryImageUrl,omitempty"`
	Images          []string         `json:"images,omitempty"`
	Active          *bool            `json:"active,omitempty"`
}

// AdminCreateProduct creates a product.
func (c *Client) AdminCreateProduct(ctx context.Context, in ProductInput) (*ProductDetail, error) {
	var out ProductDetail
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/admin/products",
		body:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminReplaceProduct replaces a product wholesale. PUT replaces image arrays
// server-side, which PATCH does not guarantee.
func (c *Client) AdminReplaceProduct(ctx context.Context, id string, in ProductInput) (*ProductDetail, error) {
	var out ProductDetail
	_, err := c.call(ctx, request{
		method: http.MethodPut,
		path:   "/api/admin/products/" + url.PathEscape(id),
		body:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUpdateProduct applies a partial update to a product.
func (c *Client) AdminUpdateProduct(ctx context.Context, id string, patch ProductPatch) (*ProductDetail, error) {
	var out ProductDetail
	_, err := c.call(ctx, request{
		method: http.MethodPatch,
		path:   "/api/admin/products/" + url.PathEscape(id),
		body:   patch,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUpdateProductStock sets only the stock level of a product.
func (c *Client) AdminUpdateProductStock(ctx context.Context, id string, stock int) error {
	_, err := c.call(ctx, request{
		method: http.MethodPatch,
		path:   "/api/admin/products/" + url.PathEscape(id) + "/stock",
		body:   map[string]int{"stock": stock},
	}, nil)
	return err
}

// AdminDeleteProduct deletes a product.
func (c *Client) AdminDeleteProduct(ctx context.Context, id string) error {
	_, err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   "/api/admin/products/" + url.PathEscape(id),
	}, nil)
	return err
}

// AdminListCategories lists categories for the admin console.
func (c *Client) AdminListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.get(ctx, "/api/admin/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminCreateCategory creates a category from a name; the backend derives
// the slug.
func (c *Client) AdminCreateCategory(ctx context.Context, name string) (*Category, error) {
	var out Category
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/admin/categories",
		body:   map[string]string{"name": name},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CategoryPatch is a partial category update.
type CategoryPatch struct {
	Name *string `json:"name,omitempty"`
	Slug *string `json:"slug,omitempty"`
}

// AdminUpdateCategory applies a partial update to a category.
func (c *Client) AdminUpdateCategory(ctx context.Context, id string, patch CategoryPatch) (*Category, error) {
	var out Category
	_, err := c.call(ctx, request{
		method: http.MethodPatch,
		path:   "/api/admin/categories/" + url.PathEscape(id),
		body:   patch,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminDeleteCategory deletes a category.
func (c *Client) AdminDeleteCategory(ctx context.Context, id string) error {
	_, err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   "/api/admin/categories/" + url.PathEscape(id),
	}, nil)
	return err
}

// AdminUserQuery filters the admin user search.
type AdminUserQuery struct {
	Role   Role
	Search string
	Limit  *int
	Sort   []SortOrder
}

// AdminSearchUsers searches accounts for the admin console.
func (c *Client) AdminSearchUsers(ctx context.Context, q AdminUserQuery) ([]User, error) {
	v := url.Values{}
	if q.Role != "" {
		v.Set("role", string(q.Role))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Limit != nil {
		v.Set("limit", strconv.Itoa(*q.Limit))
	}
	for _, s := range q.Sort {
		v.Add("sort", s.String())
	}
	var out []User
	if err := c.get(ctx, "/api/admin/users", v, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminGetUser fetches one account.
func (c *Client) AdminGetUser(ctx context.Context, id string) (*User, error) {
	var out User
	if err := c.get(ctx, "/api/admin/users/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CustomerInput is the payload for creating a customer account from the
// admin console.
type CustomerInput struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	Phone           string `json:"phone,omitempty"`
	Address         string `json:"address,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// AdminCreateCustomer creates a customer account.
func (c *Client) AdminCreateCustomer(ctx context.Context, in CustomerInput) (*User, error) {
	var out User
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/admin/users",
		body:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UserPatch is a partial account update from the admin console.
type UserPatch struct {
	Name            *string `json:"name,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Address         *string `json:"address,omitempty"`
	ProfileImageURL *string `json:"profileImageUrl,omitempty"`
	Banned          *bool   `json:"banned,omitempty"`
	Role            *Role   `json:"role,omitempty"`
}

// AdminPatchUser applies a partial update to an account.
func (c *Client) AdminPatchUser(ctx context.Context, id string, patch UserPatch) (*User, error) {
	var out User
	_, err := c.call(ctx, request{
		method: http.MethodPatch,
		path:   "/api/admin/users/" + url.PathEscape(id),
		body:   patch,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminPromoteUser grants the admin role to an account.
func (c *Client) AdminPromoteUser(ctx context.Context, id string) error {
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/admin/users/" + url.PathEscape(id) + "/promote",
	}, nil)
	return err
}

// AdminBanUser bans an account.
func (c *Client) AdminBanUser(ctx context.Context, id string) error {
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/admin/users/" + url.PathEscape(id) + "/ban",
	}, nil)
	return err
}

// AdminUnbanUser lifts a ban.
func (c *Client) AdminUnbanUser(ctx context.Context, id string) error {
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/admin/users/" + url.PathEscape(id) + "/unban",
	}, nil)
	return err
}

// AdminOrderQuery filters the admin order search.
type AdminOrderQuery struct {
	Status   OrderStatus
	Search   string
	MinTotal *decimal.Decimal
	MaxTotal *decimal.Decimal
	Page     *int
	Size     *int
	Sort     string
}

// PageMeta is the pagination block from the envelope meta.
type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalPages int `json:"totalPages"`
}

// AdminSearchOrders searches orders and returns the page plus its meta.
func (c *Client) AdminSearchOrders(ctx context.Context, q AdminOrderQuery) ([]OrderView, PageMeta, error) {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.MinTotal != nil {
		v.Set("minTotal", q.MinTotal.String())
	}
	if q.MaxTotal != nil {
		v.Set("maxTotal", q.MaxTotal.String())
	}
	if q.Page != nil {
		v.Set("page", strconv.Itoa(*q.Page))
	}
	if q.Size != nil {
		v.Set("size", strconv.Itoa(*q.Size))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	var out []OrderView
	meta, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/api/admin/orders",
		query:  v,
	}, &out)
	if err != nil {
		return nil, PageMeta{}, err
	}
	var pm PageMeta
	if len(meta) > 0 {
		_ = unmarshalMeta(meta, &pm)
	}
	return out, pm, nil
}

// AdminGetOrder fetches one order.
func (c *Client) AdminGetOrder(ctx context.Context, id string) (*OrderView, error) {
	var out OrderView
	if err := c.get(ctx, "/api/admin/orders/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUpdateOrderStatus transitions an order's lifecycle state.
func (c *Client) AdminUpdateOrderStatus(ctx context.Context, id string, status OrderStatus) error {
	_, err := c.call(ctx, request{
		method: http.MethodPatch,
		path:   "/api/admin/orders/" + url.PathEscape(id) + "/status",
		body:   map[string]OrderStatus{"status": status},
	}, nil)
	return err
}

// AdminDeleteOrder deletes an order.
func (c *Client) AdminDeleteOrder(ctx context.Context, id string) error {
	_, err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   "/api/admin/orders/" + url.PathEscape(id),
	}, nil)
	return err
}

// DashboardMetrics is the admin dashboard aggregate.
type DashboardMetrics struct {
	TotalRevenue       decimal.Decimal     `json:"totalRevenue"`
	TotalOrders        int                 `json:"totalOrders"`
	TotalCustomers     int                 `json:"totalCustomers"`
	TotalProducts      int                 `json:"totalProducts"`
	StatusDistribution map[OrderStatus]int `json:"statusDistribution"`
	RevenueTrend       []RevenuePoint      `json:"revenueTrend"`
	QuickStats         QuickStats          `json:"quickStats"`
	RecentOrders       []OrderView         `json:"recentOrders"`
}

// RevenuePoint is one month of the revenue trend.
type RevenuePoint struct {
	Year  int             `json:"year"`
	Month int             `json:"month"`
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

// QuickStats is the dashboard quick-stats block.
type QuickStats struct {
	CompletedOrders  int `json:"completedOrders"`
	PendingOrders    int `json:"pendingOrders"`
	ActiveCoupons    int `json:"activeCoupons"`
	LowStockProducts int `json:"lowStockProducts"`
}

// AdminDashboard fetches the dashboard metrics. lowStockThreshold <= 0 uses
// the backend default.
func (c *Client) AdminDashboard(ctx context.Context, lowStockThreshold int) (*DashboardMetrics, error) {
	v := url.Values{}
	if lowStockThreshold > 0 {
		v.Set("lowStockThreshold", strconv.Itoa(lowStockThreshold))
	}
	var out DashboardMetrics
	if err := c.get(ctx, "/api/admin/dashboard", v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StoreSettings is the admin store-information settings block.
type StoreSettings struct {
	StoreName        string `json:"storeName"`
	StoreDescription string `json:"storeDescription,omitempty"`
	StoreEmail       string `json:"storeEmail"`
	StorePhone       string `json:"storePhone"`
	StoreAddress     string `json:"storeAddress"`
}

// SeoSettings is the admin SEO settings block.
type SeoSettings struct {
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription,omitempty"`
	MetaKeywords    string `json:"metaKeywords,omitempty"`
	OGImageURL      string `json:"ogImageUrl,omitempty"`
}

// CurrencySettings is the admin currency settings block.
type CurrencySettings struct {
	DefaultCurrency string `json:"defaultCurrency"`
}

// AdminStoreSettings fetches the store settings block.
func (c *Client) AdminStoreSettings(ctx context.Context) (*StoreSettings, error) {
	var out StoreSettings
	if err := c.get(ctx, "/api/admin/settings/store", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUpdateStoreSettings replaces the store settings block.
func (c *Client) AdminUpdateStoreSettings(ctx context.Context, in StoreSettings) (*StoreSettings, error) {
	var out StoreSettings
	_, err := c.call(ctx, request{
		method: http.MethodPut,
		path:   "/api/admin/settings/store",
		body:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminSeoSettings fetches the SEO settings block.
func (c *Client) AdminSeoSettings(ctx context.Context) (*SeoSettings, error) {
	var out SeoSettings
	if err := c.get(ctx, "/api/admin/settings/seo", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUpdateSeoSettings replaces the SEO settings block.
func (c *Client) AdminUpdateSeoSettings(ctx context.Context, in SeoSettings) (*SeoSettings, error) {
	var out SeoSettings
	_, err := c.call(ctx, request{
		method: http.MethodPut,
		path:   "/api/admin/settings/seo",
		body:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminCurrencySettings fetches the currency settings block.
func (c *Client) AdminCurrencySettings(ctx context.Context) (*CurrencySettings, error) {
	var out CurrencySettings
	if err := c.get(ctx, "/api/admin/settings/currency", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUpdateCurrencySettings replaces the currency settings block.
func (c *Client) AdminUpdateCurrencySettings(ctx context.Context, in CurrencySettings) (*CurrencySettings, error) {
	var out CurrencySettings
	_, err := c.call(ctx, request{
		method: http.MethodPut,
		path:   "/api/admin/settings/currency",
		body:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
