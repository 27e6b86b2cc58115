/*
Package authsdk is the client side of the tollgate token service.

# Overview

A Client talks to the token service over HTTP. It is what gateways and
backend services use to obtain tokens and to verify access tokens remotely:

	client := authsdk.NewClient("http://tollgate:8080", 2*time.Second)

	pair, err := client.Login(ctx, authsdk.LoginRequest{
		ClientID:     "acme",
		ClientSecret: secret,
		Username:     "alice",
		Password:     password,
	})

	identity, err := client.Verify(ctx, pair.AccessToken)

# Errors

Every non-2xx response is returned as an *OAuth2Error. Its Unwrap method
yields the matching sentinel from the shared failure taxonomy, so callers
branch with errors.Is on either side of the network:

	_, err := client.Verify(ctx, token)
	switch {
	case errors.Is(err, tokenx.ErrTokenExpired):
		// refresh and retry
	case errors.Is(err, tokenx.ErrUpstreamTimeout):
		// transient, safe to retry with backoff
	}

Client side timeouts (the HTTP client timeout or a context deadline) are
reported as tokenx.ErrUpstreamTimeout as well. Plain cancellation is not.

# Status codes

StatusForError is the single table that maps the taxonomy to HTTP status
codes. An expired token uses 419 so that callers can tell "refresh" apart
from "reject".
*/
package authsdk
