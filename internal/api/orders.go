package api

import (
	"context"
	"net/http"
	"net/url"
)

// CardDetails is the nested card payload required when paying by card.
type CardDetails struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
}

// OrderRequest is the order placement payload. CartID is required for guest
// orders and ignored for authenticated ones, where the backend resolves the
// cart from the session.
type OrderRequest struct {
	CartID        string       `json:"cartId,omitempty"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone,omitempty"`
	Address       string       `json:"address"`
	City          string       `json:"city"`
	PostalCode    string       `json:"postalCode"`
	PaymentMethod string       `json:"paymentMethod"`
	Card          *CardDetails `json:"card,omitempty"`
}

// CreateGuestOrder places an order against a guest cart.
func (c *Client) CreateGuestOrder(ctx context.Context, req OrderRequest) (*OrderView, error) {
	var out OrderView
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/orders",
		body:   req,
		noAuth: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateMyOrder places an order against the authenticated user's cart.
func (c *Client) CreateMyOrder(ctx context.Context, req OrderRequest) (*OrderView, error) {
	var out OrderView
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/me/orders",
		body:   req,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Order fetches an order by id.
func (c *Client) Order(ctx context.Context, id string) (*OrderView, error) {
	var out OrderView
	if err := c.get(ctx, "/api/orders/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OrderByNumber fetches an order by its formatted order number.
func (c *Client) OrderByNumber(ctx context.Context, number string) (*OrderView, error) {
	var out OrderView
	if err := c.get(ctx, "/api/orders/number/"+url.PathEscape(number), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyOrders lists the authenticated user's orders.
func (c *Client) MyOrders(ctx context.Context) ([]OrderView, error) {
	var out []OrderView
	if err := c.get(ctx, "/api/me/orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelMyOrder cancels one of the authenticated user's orders.
func (c *Client) CancelMyOrder(ctx context.Context, id string) (*OrderView, error) {
	var out OrderView
	_, err := c.call(ctx, request{
		method: http.MethodPatch,
		path:   "/api/me/orders/" + url.PathEscape(id) + "/cancel",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MyOrderStats fetches the authenticated user's order statistics.
func (c *Client) MyOrderStats(ctx context.Context) (*OrderStats, error) {
	var out OrderStats
	if err := c.get(ctx, "/api/me/orders/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
