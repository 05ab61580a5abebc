package api

import (
	"context"
	"errors"
	"net/http"
)

// Login exchanges an identifier (email, phone or account number) and
// password for a token pair.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/login/",
		body:   LoginRequest{Identifier: identifier, Password: password},
		public: true,
	}, &out)
	if err != nil {
		return nil, authError(err, "Login failed")
	}
	return &out, nil
}

// Register creates an account. The email doubles as the username.
func (c *Client) Register(ctx context.Context, r Registration) (*RegisterResponse, error) {
	var out RegisterResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/register/",
		body: registerRequest{
			Username:        r.Email,
			Email:           r.Email,
			Password:        r.Password,
			PasswordConfirm: r.Password,
			FirstName:       r.FirstName,
			LastName:        r.LastName,
			Phone:           r.Phone,
			Country:         r.Country,
			Address:         r.ResidentialAddress,
		},
		public: true,
	}, &out)
	if err != nil {
		return nil, authError(err, "Registration failed")
	}
	return &out, nil
}

// RefreshToken trades a refresh token for a new access token. It never
// goes through the 401 handling itself.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (*RefreshResponse, error) {
	var out RefreshResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/token/refresh/",
		body:   map[string]string{"refresh": refresh},
		public: true,
	}, &out)
	if err != nil {
		return nil, authError(err, "Token refresh failed")
	}
	if out.Access == "" {
		return nil, &AuthError{Message: "Token refresh returned no access token"}
	}
	return &out, nil
}

// Profile fetches the current identity, balance included.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, call{method: http.MethodGet, path: "/user/profile/"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, u ProfileUpdate) (*User, error) {
	var out User
	if err := c.do(ctx, call{method: http.MethodPut, path: "/user/profile/", body: u}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the backend the session ended. Local credentials are the
// caller's to clear.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/auth/logout/"}, nil)
}

// ChangePIN sets a new 4-digit transfer PIN. currentPIN may be empty when
// no PIN has been set yet.
func (c *Client) ChangePIN(ctx context.Context, currentPIN, newPIN string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/user/change-pin/",
		body:   map[string]string{"current_pin": currentPIN, "new_pin": newPIN},
	}, nil)
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.do(ctx, call{
		method: http.MethodPut,
		path:   "/user/change-password/",
		body:   map[string]string{"current_password": current, "new_password": next},
	}, nil)
}

func authError(err error, fallback string) error {
	var he *HTTPError
	if errors.As(err, &he) {
		return &AuthError{Message: ErrorMessage(he.Payload, fallback), Err: err}
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return err
	}
	return &AuthError{Message: fallback, Err: err}
}
