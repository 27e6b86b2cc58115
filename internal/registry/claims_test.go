package registry_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/tollgate/internal/domain"
	"github.com/aussiebroadwan/tollgate/internal/registry"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
	"github.com/stretchr/testify/require"
)

func TestNewClaimsRegistryUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := registry.NewClaimsRegistry(map[string]string{
		"acme":  registry.ProviderAuthorities,
		"other": "ldap-groups",
	})
	require.ErrorIs(t, err, registry.ErrUnknownProvider)
	require.ErrorContains(t, err, "ldap-groups")
}

func TestProviderForMissingBinding(t *testing.T) {
	t.Parallel()

	r, err := registry.NewClaimsRegistry(map[string]string{"acme": registry.ProviderAuthorities})
	require.NoError(t, err)

	_, err = r.ProviderFor("late-client")
	require.ErrorIs(t, err, tokenx.ErrClaimsProductionFailed)
	require.False(t, r.Bound("late-client"))
}

func TestProviderVariants(t *testing.T) {
	t.Parallel()

	alice := domain.Principal{
		Username:    "alice",
		Authorities: []string{"write", "read", "read", " "},
		Enabled:     true,
	}

	r, err := registry.NewClaimsRegistry(map[string]string{
		"plain":   registry.ProviderAuthorities,
		"spring":  registry.ProviderSpringRoles,
		"profile": registry.ProviderProfile,
	})
	require.NoError(t, err)

	tests := []struct {
		client string
		want   map[string]any
	}{
		{
			client: "plain",
			want:   map[string]any{"authorities": []string{"read", "write"}},
		},
		{
			client: "spring",
			want:   map[string]any{"authorities": []string{"ROLE_READ", "ROLE_WRITE"}},
		},
		{
			client: "profile",
			want: map[string]any{
				"authorities": []string{"read", "write"},
				"username":    "alice",
				"account":     map[string]any{"enabled": true, "locked": false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.client, func(t *testing.T) {
			t.Parallel()

			p, err := r.ProviderFor(tt.client)
			require.NoError(t, err)

			got, err := p.ProduceClaims(context.Background(), alice)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSpringRolesPrefixAddedOnce(t *testing.T) {
	t.Parallel()

	r, err := registry.NewClaimsRegistry(map[string]string{"spring": registry.ProviderSpringRoles})
	require.NoError(t, err)
	p, err := r.ProviderFor("spring")
	require.NoError(t, err)

	got, err := p.ProduceClaims(context.Background(), domain.Principal{
		Username:    "bob",
		Authorities: []string{"ROLE_ADMIN", "admin", "role_user"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"ROLE_ADMIN", "ROLE_USER"}, got["authorities"])

	_, err = p.ProduceClaims(context.Background(), domain.Principal{Username: "nobody"})
	require.Error(t, err)
}

func TestValidateClients(t *testing.T) {
	t.Parallel()

	claims, err := registry.NewClaimsRegistry(map[string]string{"acme": registry.ProviderAuthorities})
	require.NoError(t, err)

	require.NoError(t, registry.ValidateClients([]domain.ClientConfig{hsClient("acme")}, claims))

	unbound := hsClient("unbound")
	badAlg := hsClient("acme")
	badAlg.SignatureAlgorithm = "HS1"

	err = registry.ValidateClients([]domain.ClientConfig{unbound, badAlg}, claims)
	require.ErrorContains(t, err, "unbound: no claims provider binding")
	require.ErrorContains(t, err, "HS1")
}

func TestProvidersSorted(t *testing.T) {
	t.Parallel()
	require.Equal(t, []string{"authorities", "profile", "spring-roles"}, registry.Providers())
}
