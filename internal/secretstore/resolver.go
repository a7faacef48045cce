package secretstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Provider resolves secret paths.
type Provider interface {
	Resolve(ctx context.Context, path string) (string, error)
}

// ResolverOptions customize resolver behavior.
type ResolverOptions struct {
	DefaultProvider string
	// BaseDir anchors relative file provider paths.
	BaseDir string
}

// Resolver dispatches secret references to named providers and caches the
// values it has already fetched during this run.
type Resolver struct {
	providers       map[string]Provider
	defaultProvider string
	cache           map[string]string
}

// NewResolver builds a resolver from config and options. Providers are
// constructed eagerly so configuration errors surface before any lookup.
func NewResolver(ctx context.Context, cfg Config, opts ResolverOptions) (*Resolver, error) {
	providers := make(map[string]Provider, len(cfg.Providers))
	for name, pcfg := range cfg.Providers {
		providerName := strings.TrimSpace(name)
		if providerName == "" {
			return nil, fmt.Errorf("secret provider name cannot be empty")
		}
		provider, err := newProvider(ctx, pcfg, opts)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", providerName, err)
		}
		providers[providerName] = provider
	}
	defaultProvider := strings.TrimSpace(opts.DefaultProvider)
	if defaultProvider == "" {
		defaultProvider = strings.TrimSpace(cfg.DefaultProvider)
	}
	return NewResolverWithProviders(providers, defaultProvider), nil
}

// NewResolverWithProviders builds a resolver from already constructed providers.
func NewResolverWithProviders(providers map[string]Provider, defaultProvider string) *Resolver {
	copied := make(map[string]Provider, len(providers))
	for name, p := range providers {
		copied[name] = p
	}
	return &Resolver{
		providers:       copied,
		defaultProvider: strings.TrimSpace(defaultProvider),
		cache:           map[string]string{},
	}
}

func newProvider(ctx context.Context, pcfg ProviderConfig, opts ResolverOptions) (Provider, error) {
	switch providerType := strings.ToLower(strings.TrimSpace(pcfg.Type)); providerType {
	case "ssm":
		return newSSMProvider(ctx, pcfg)
	case "vault":
		return newVaultProvider(pcfg)
	case "file":
		return newFileProvider(pcfg.Path, opts.BaseDir)
	case "env":
		return newEnvProvider(pcfg.Prefix), nil
	case "":
		return nil, fmt.Errorf("missing type")
	default:
		return nil, fmt.Errorf("unsupported type %q", providerType)
	}
}

// ProviderNames lists configured provider names.
func (r *Resolver) ProviderNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the secret behind value when it is a secret:// reference,
// and value itself otherwise.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	defaultProvider := ""
	if r != nil {
		defaultProvider = r.defaultProvider
	}
	ref, ok, err := ParseRef(value, defaultProvider)
	if err != nil {
		return "", err
	}
	if !ok {
		return value, nil
	}
	if r == nil {
		return "", fmt.Errorf("secret resolver is not configured")
	}
	key := ref.Provider + "|" + ref.Path
	if cached, ok := r.cache[key]; ok {
		return cached, nil
	}
	provider := r.providers[ref.Provider]
	if provider == nil {
		return "", fmt.Errorf("secret provider %q is not configured", ref.Provider)
	}
	val, err := provider.Resolve(ctx, ref.Path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", ref.Reference(), err)
	}
	r.cache[key] = val
	return val, nil
}

// Ref captures a parsed secret reference.
type Ref struct {
	Provider string
	Path     string
	Raw      string
}

// Reference returns the canonical secret reference string.
func (r Ref) Reference() string {
	if r.Provider == "" {
		return "secret:///" + r.Path
	}
	return "secret://" + r.Provider + "/" + r.Path
}

// ParseRef detects and parses secret:// references. Returns ok=false when value is not a reference.
//
//	secret://ssm/directory/api-key   provider "ssm", path "directory/api-key"
//	secret:///directory/api-key      default provider
func ParseRef(value string, defaultProvider string) (Ref, bool, error) {
	const prefix = "secret://"
	if !strings.HasPrefix(value, prefix) {
		return Ref{}, false, nil
	}
	rest := strings.TrimSpace(strings.TrimPrefix(value, prefix))
	if rest == "" {
		return Ref{}, true, fmt.Errorf("secret reference is missing provider/path")
	}
	defaultProvider = strings.TrimSpace(defaultProvider)
	if strings.HasPrefix(rest, "/") {
		rest = strings.TrimPrefix(rest, "/")
		if rest == "" {
			return Ref{}, true, fmt.Errorf("secret reference is missing path")
		}
		if defaultProvider == "" {
			return Ref{}, true, fmt.Errorf("secret reference %q requires a default provider", value)
		}
		return Ref{Provider: defaultProvider, Path: rest, Raw: value}, true, nil
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 1 {
		return Ref{}, true, fmt.Errorf("secret reference %q is missing path", value)
	}
	provider := strings.TrimSpace(parts[0])
	path := strings.TrimSpace(parts[1])
	if path == "" {
		return Ref{}, true, fmt.Errorf("secret reference %q is missing path", value)
	}
	return Ref{Provider: provider, Path: path, Raw: value}, true, nil
}
