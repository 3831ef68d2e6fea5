package api

import (
	"context"
	"net/http"
)

// AuthResult is a successful login or registration: the account plus the
// token pair for subsequent authenticated calls.
type AuthResult struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   map[string]string{"email": email, "password": password},
		noAuth: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and logs it in.
func (c *Client) Register(ctx context.Context, email, name, password string) (*AuthResult, error) {
	var out AuthResult
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/register",
		body:   map[string]string{"email": email, "name": name, "password": password},
		noAuth: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the server-side session. Token disposal on the client is
// the session's job, not the API client's.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/logout",
		noAuth: true,
	}, nil)
	return err
}

// ChangePassword rotates a password given the old one.
func (c *Client) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/forgot-password",
		body: map[string]string{
			"email":       email,
			"oldPassword": oldPassword,
			"newPassword": newPassword,
		},
		noAuth: true,
	}, nil)
	return err
}

// ResetPassword sets a new password with only the email as proof.
func (c *Client) ResetPassword(ctx context.Context, email, newPassword, confirmPassword string) error {
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/reset-password",
		body: map[string]string{
			"email":           email,
			"newPassword":     newPassword,
			"confirmPassword": confirmPassword,
		},
		noAuth: true,
	}, nil)
	return err
}

// Me fetches the authenticated account's details.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.get(ctx, "/api/user-details", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserUpdate is a partial update of the authenticated account.
type UserUpdate struct {
	Name            *string `json:"name,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Address         *string `json:"address,omitempty"`
	ProfileImageURL *string `json:"profileImageUrl,omitempty"`
}

// UpdateMe applies a partial update to the authenticated account.
func (c *Client) UpdateMe(ctx context.Context, upd UserUpdate) (*User, error) {
	var out User
	_, err := c.call(ctx, request{
		method: http.MethodPut,
		path:   "/api/user-details",
		body:   upd,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
