package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/domain"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
)

// ClaimsProvider produces the custom claims map embedded in a client's
// tokens. Every provider emits tokenx.AuthoritiesClaim.
type ClaimsProvider interface {
	ProduceClaims(ctx context.Context, p domain.Principal) (map[string]any, error)
}

type ClaimsProviderFunc func(ctx context.Context, p domain.Principal) (map[string]any, error)

func (f ClaimsProviderFunc) ProduceClaims(ctx context.Context, p domain.Principal) (map[string]any, error) {
	return f(ctx, p)
}

// Provider ids a client can be bound to.
const (
	ProviderAuthorities = "authorities"
	ProviderSpringRoles = "spring-roles"
	ProviderProfile     = "profile"
)

const rolePrefix = "ROLE_"

var ErrUnknownProvider = errors.New("registry: unknown claims provider")

var providers = map[string]ClaimsProvider{
	ProviderAuthorities: ClaimsProviderFunc(authoritiesClaims),
	ProviderSpringRoles: ClaimsProviderFunc(springRoleClaims),
	ProviderProfile:     ClaimsProviderFunc(profileClaims),
}

// Providers lists the known provider ids in sorted order.
func Providers() []string {
	ids := make([]string, 0, len(providers))
	for id := range providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func authoritiesClaims(_ context.Context, p domain.Principal) (map[string]any, error) {
	return map[string]any{tokenx.AuthoritiesClaim: normalize(p.Authorities)}, nil
}

func springRoleClaims(_ context.Context, p domain.Principal) (map[string]any, error) {
	if len(p.Authorities) == 0 {
		return nil, fmt.Errorf("%s: principal %q has no authorities", ProviderSpringRoles, p.Username)
	}

	roles := make([]string, 0, len(p.Authorities))
	for _, a := range p.Authorities {
		r := strings.ToUpper(strings.TrimSpace(a))
		if r == "" {
			continue
		}
		if !strings.HasPrefix(r, rolePrefix) {
			r = rolePrefix + r
		}
		roles = append(roles, r)
	}
	return map[string]any{tokenx.AuthoritiesClaim: normalize(roles)}, nil
}

func profileClaims(_ context.Context, p domain.Principal) (map[string]any, error) {
	return map[string]any{
		tokenx.AuthoritiesClaim: normalize(p.Authorities),
		"username":              p.Username,
		"account": map[string]any{
			"enabled": p.Enabled,
			"locked":  p.Locked,
		},
	}, nil
}

// normalize returns a sorted copy of in without blanks or duplicates.
func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ClaimsRegistry is the fixed client to provider table built at startup.
type ClaimsRegistry struct {
	byClient map[string]ClaimsProvider
}

// NewClaimsRegistry resolves every binding (client id to provider id)
// against the known providers. An unknown provider id is an error.
func NewClaimsRegistry(bindings map[string]string) (*ClaimsRegistry, error) {
	r := &ClaimsRegistry{byClient: make(map[string]ClaimsProvider, len(bindings))}

	var errs []error
	for clientID, providerID := range bindings {
		p, ok := providers[providerID]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q bound to client %s", ErrUnknownProvider, providerID, clientID))
			continue
		}
		r.byClient[clientID] = p
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// ProviderFor returns the provider bound to clientID, or
// tokenx.ErrClaimsProductionFailed when there is none.
func (r *ClaimsRegistry) ProviderFor(clientID string) (ClaimsProvider, error) {
	p, ok := r.byClient[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: no claims provider bound to %s", tokenx.ErrClaimsProductionFailed, clientID)
	}
	return p, nil
}

func (r *ClaimsRegistry) Bound(clientID string) bool {
	_, ok := r.byClient[clientID]
	return ok
}

// ValidateClients checks at startup that every client has a claims binding
// and a supported signature algorithm. All problems are reported together.
func ValidateClients(clients []domain.ClientConfig, claims *ClaimsRegistry) error {
	var errs []error
	for _, c := range clients {
		if !claims.Bound(c.ClientID) {
			errs = append(errs, fmt.Errorf("client %s: no claims provider binding", c.ClientID))
		}
		if _, err := jwtx.ParseAlgorithm(c.SignatureAlgorithm); err != nil {
			errs = append(errs, fmt.Errorf("client %s: %w", c.ClientID, err))
		}
	}
	return errors.Join(errs...)
}
