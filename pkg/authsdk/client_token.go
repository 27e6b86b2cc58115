package authsdk

import (
	"context"
	"net/url"
)

// LoginRequest carries the password grant parameters.
type LoginRequest struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	// OTPCode is required for principals enrolled in TOTP.
	OTPCode string
}

// Login exchanges principal credentials for a token pair.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {req.ClientID},
		"client_secret": {req.ClientSecret},
		"username":      {req.Username},
		"password":      {req.Password},
	}
	if req.OTPCode != "" {
		form.Set("otp_code", req.OTPCode)
	}

	var tokens TokenResponse
	if err := c.postForm(ctx, "/v1/oauth2/token", form, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	var tokens TokenResponse
	if err := c.postForm(ctx, "/v1/oauth2/token", form, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}
