package authsdk

import (
	"context"
	"net/url"

	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
)

// Verify asks the token service to verify an access token. Rejections come
// back as errors that unwrap to the taxonomy sentinel.
func (c *Client) Verify(ctx context.Context, token string) (tokenx.VerifiedIdentity, error) {
	var resp VerifyResponse
	if err := c.postForm(ctx, "/v1/oauth2/verify", url.Values{"token": {token}}, &resp); err != nil {
		return tokenx.VerifiedIdentity{}, err
	}
	return resp.Identity(), nil
}
