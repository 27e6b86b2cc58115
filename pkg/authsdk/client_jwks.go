package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// GetJWKS retrieves the public verification key of an asymmetric client.
func (c *Client) GetJWKS(ctx context.Context, clientID string) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/clients/"+url.PathEscape(clientID)+"/jwks.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}

	return &jwks, nil
}
