// File: internal/directory/directory.go
// Brief: Directory-service lookups used to validate stack owners.

// Package directory resolves an owner email to a user id in the identity
// provider. Both providers treat "no such user" as an empty id rather than an
// error, so callers can tell a missing owner apart from a failed lookup.
package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/stackguard/internal/check"
)

const (
	ProviderHTTP   = "http"
	ProviderWorkOS = "workos"
)

// KeySource yields the API key right before a lookup.
type KeySource func(ctx context.Context) (string, error)

// StaticKey returns a KeySource for an already known key.
func StaticKey(key string) KeySource {
	return func(context.Context) (string, error) { return key, nil }
}

// Config selects and tunes a provider.
type Config struct {
	Provider   string `mapstructure:"provider"`
	URL        string `mapstructure:"url"`
	EmailParam string `mapstructure:"emailParam"`
	IDField    string `mapstructure:"idField"`
	AuthScheme string `mapstructure:"authScheme"`
	// APIKey is a secret reference (secret://...) or a literal key.
	APIKey string `mapstructure:"apiKey"`
}

// DefaultConfig returns the stock provider settings.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderHTTP,
		EmailParam: "email",
		IDField:    "id",
		AuthScheme: "Bearer",
	}
}

// Validate reports configuration that would make every lookup fail.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case ProviderHTTP, "":
		if strings.TrimSpace(c.URL) == "" {
			return fmt.Errorf("directory.url is required for the http provider")
		}
	case ProviderWorkOS:
	default:
		return fmt.Errorf("directory provider %q is not supported (expected %s or %s)", c.Provider, ProviderHTTP, ProviderWorkOS)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("directory.apiKey is required")
	}
	return nil
}

// New builds the configured provider. keys is consulted on every lookup.
func New(cfg Config, keys KeySource) (check.Directory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderWorkOS:
		return NewWorkOS(keys, ""), nil
	default:
		return NewHTTP(cfg, keys, nil), nil
	}
}
