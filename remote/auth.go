package remote

import (
	"context"
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login posts credentials and returns the issued token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Signup registers an account and returns the issued token.
func (c *Client) Signup(ctx context.Context, name, email, password string) (string, error) {
	var resp tokenResponse
	req := signupRequest{Name: name, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/signup", req, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Logout asks the API to clear the session cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Validate returns the token carried by the session cookie. An empty token
// means the API does not consider the client signed in.
func (c *Client) Validate(ctx context.Context) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodGet, "/auth/validate", nil, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}
