package jwtx_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestClaimsCustomKey(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := jwtx.NewClaims(exampleIssuer, "bob", "globex", jwtx.TypeRefresh,
		map[string]any{"authorities": []string{"ROLE_ADMIN"}, "tenant": "globex"},
		"perms", now, time.Hour)

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	require.Equal(t, "bob", fields["sub"])
	require.Equal(t, "globex", fields["cid"])
	require.Equal(t, "refresh", fields["typ"])
	require.EqualValues(t, 1_700_000_000, fields["iat"])
	require.EqualValues(t, 1_700_003_600, fields["exp"])
	require.Contains(t, fields, "perms")
	require.NotContains(t, fields, "roles")

	decoded := &jwtx.Claims{CustomKey: "perms"}
	require.NoError(t, json.Unmarshal(raw, decoded))
	require.Equal(t, "bob", decoded.Subject)
	require.Equal(t, "globex", decoded.Custom["tenant"])
	require.Equal(t, []string{"ROLE_ADMIN"}, decoded.Authorities("authorities"))

	// Reading with the wrong key yields no custom claims.
	other := &jwtx.Claims{}
	require.NoError(t, json.Unmarshal(raw, other))
	require.Nil(t, other.Custom)
}

func TestClaimsTruncateToSeconds(t *testing.T) {
	now := time.Unix(1_700_000_000, 999_000_000)
	c := jwtx.NewClaims("", "s", "c", jwtx.TypeAccess, nil, "", now, 300*time.Second)

	require.Equal(t, time.Unix(1_700_000_000, 0).UTC(), c.IssuedAt.Time.UTC())
	require.Equal(t, 300*time.Second, c.ExpiresAt.Sub(c.IssuedAt.Time))
	require.NotEmpty(t, c.ID)
}

func TestValidateClaimsKey(t *testing.T) {
	require.NoError(t, jwtx.ValidateClaimsKey("roles"))
	require.NoError(t, jwtx.ValidateClaimsKey("authz"))
	require.Error(t, jwtx.ValidateClaimsKey(""))
	require.Error(t, jwtx.ValidateClaimsKey("sub"))
	require.Error(t, jwtx.ValidateClaimsKey("cid"))
}
