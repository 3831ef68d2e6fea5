package api

import (
	"context"
	"net/http"
	"net/url"
)

// ProductQuery filters a catalog product listing.
type ProductQuery struct {
	Search      string
	CategoryID  string
	InStockOnly bool
}

func (q ProductQuery) values() url.Values {
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
	return v
}

// Products lists catalog products. Anonymous endpoint.
func (c *Client) Products(ctx context.Context, q ProductQuery) ([]ProductSummary, error) {
	var out []ProductSummary
	_, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/api/products",
		query:  q.values(),
		noAuth: true,
	}, &out)
	return out, err
}

// Product fetches a single product with its full image set.
func (c *Client) Product(ctx context.Context, id string) (*ProductDetail, error) {
	var out ProductDetail
	if err := c.get(ctx, "/api/products/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Categories lists catalog categories. Anonymous endpoint.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	_, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/api/categories",
		noAuth: true,
	}, &out)
	return out, err
}

// ProductsByCategoryID lists products in a category by category id.
func (c *Client) ProductsByCategoryID(ctx context.Context, categoryID string, q ProductQuery) ([]ProductSummary, error) {
	var out []ProductSummary
	_, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/api/categories/" + url.PathEscape(categoryID) + "/products",
		query:  q.values(),
		noAuth: true,
	}, &out)
	return out, err
}

// ProductsByCategorySlug lists products in a category by slug.
func (c *Client) ProductsByCategorySlug(ctx context.Context, slug string, q ProductQuery) ([]ProductSummary, error) {
	var out []ProductSummary
	_, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/api/categories/slug/" + url.PathEscape(slug) + "/products",
		query:  q.values(),
		noAuth: true,
	}, &out)
	return out, err
}

// Settings fetches the public store settings. Anonymous endpoint.
func (c *Client) Settings(ctx context.Context) (*PublicSettings, error) {
	var out PublicSettings
	_, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/api/settings",
		noAuth: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
