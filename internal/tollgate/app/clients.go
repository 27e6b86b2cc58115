package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/domain"
	"github.com/aussiebroadwan/tollgate/internal/store"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"gopkg.in/yaml.v3"
)

// ClientsFile is the YAML document that provisions clients and principals
// and binds each client to its claims provider.
type ClientsFile struct {
	Clients    []ClientEntry    `yaml:"clients"`
	Principals []PrincipalEntry `yaml:"principals"`
}

type ClientEntry struct {
	ClientID string `yaml:"client_id"`

	// ClientSecret is plaintext and hashed on seed. Empty makes a public
	// client.
	ClientSecret string `yaml:"client_secret"`

	// SignatureSecret and EncryptionSecret are stored as written, so
	// "{cipher}" values stay encrypted at rest.
	SignatureSecret    string `yaml:"signature_secret"`
	SignatureAlgorithm string `yaml:"signature_algorithm"`
	EncryptionSecret   string `yaml:"encryption_secret"`
	UseEncryption      bool   `yaml:"use_encryption"`

	ClaimsProvider string `yaml:"claims_provider"`
	TokenType      string `yaml:"token_type"`

	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

type PrincipalEntry struct {
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	Authorities []string `yaml:"authorities"`
	Disabled    bool     `yaml:"disabled"`
	Locked      bool     `yaml:"locked"`
	MFASecret   string   `yaml:"mfa_secret"`
}

// ReadClientsFile parses path. A missing file yields an empty document and
// ok=false.
func ReadClientsFile(path string) (*ClientsFile, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ClientsFile{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read clients file: %w", err)
	}

	var f ClientsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, false, fmt.Errorf("parse clients file %s: %w", path, err)
	}
	return &f, true, nil
}

// Bindings maps each client in the file to its claims provider id.
func (f *ClientsFile) Bindings() map[string]string {
	out := make(map[string]string, len(f.Clients))
	for _, c := range f.Clients {
		out[c.ClientID] = c.ClaimsProvider
	}
	return out
}

func (c ClientEntry) config() (domain.ClientConfig, error) {
	cfg := domain.ClientConfig{
		ClientID:               strings.TrimSpace(c.ClientID),
		SignatureSecret:        c.SignatureSecret,
		SignatureAlgorithm:     c.SignatureAlgorithm,
		EncryptionSecret:       c.EncryptionSecret,
		UseEncryption:          c.UseEncryption,
		ClaimsProviderID:       c.ClaimsProvider,
		TokenType:              c.TokenType,
		AccessTokenTTLSeconds:  int64(c.AccessTokenTTL / time.Second),
		RefreshTokenTTLSeconds: int64(c.RefreshTokenTTL / time.Second),
	}
	if c.ClientSecret != "" {
		hash, err := cryptox.HashPassword(c.ClientSecret)
		if err != nil {
			return domain.ClientConfig{}, fmt.Errorf("hash secret of %s: %w", cfg.ClientID, err)
		}
		cfg.ClientSecretHash = hash
	}
	return cfg, cfg.Validate()
}

func (p PrincipalEntry) principal() (domain.Principal, error) {
	username := strings.TrimSpace(p.Username)
	if username == "" {
		return domain.Principal{}, errors.New("principal with empty username")
	}
	if p.Password == "" {
		return domain.Principal{}, fmt.Errorf("principal %s: empty password", username)
	}
	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("hash password of %s: %w", username, err)
	}
	return domain.Principal{
		Username:     username,
		PasswordHash: hash,
		Authorities:  p.Authorities,
		Enabled:      !p.Disabled,
		Locked:       p.Locked,
		MFASecret:    p.MFASecret,
	}, nil
}

// SeedResult counts the records written by Seed.
type SeedResult struct {
	Clients    int
	Principals int
}

// Seed upserts every client and principal of f in one transaction. Nothing
// is written when any entry is invalid.
func Seed(ctx context.Context, st store.Store, f *ClientsFile) (SeedResult, error) {
	clients := make([]domain.ClientConfig, 0, len(f.Clients))
	for _, c := range f.Clients {
		cfg, err := c.config()
		if err != nil {
			return SeedResult{}, err
		}
		clients = append(clients, cfg)
	}
	principals := make([]domain.Principal, 0, len(f.Principals))
	for _, p := range f.Principals {
		pr, err := p.principal()
		if err != nil {
			return SeedResult{}, err
		}
		principals = append(principals, pr)
	}

	err := st.WithTx(ctx, func(tx store.Tx) error {
		for _, c := range clients {
			if err := tx.Clients().UpsertClient(ctx, c); err != nil {
				return fmt.Errorf("upsert client %s: %w", c.ClientID, err)
			}
		}
		for _, p := range principals {
			if err := tx.Principals().UpsertPrincipal(ctx, p); err != nil {
				return fmt.Errorf("upsert principal %s: %w", p.Username, err)
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return SeedResult{Clients: len(clients), Principals: len(principals)}, nil
}
