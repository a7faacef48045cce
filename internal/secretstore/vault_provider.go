package secretstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"
)

type vaultProvider struct {
	client    *vault.Client
	mount     string
	kvVersion int
	key       string
	auth      vaultAuthConfig
	authOnce  sync.Once
	authErr   error
}

func newVaultProvider(cfg ProviderConfig) (*vaultProvider, error) {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		return nil, fmt.Errorf("vault address is required")
	}
	authCfg, err := buildVaultAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	apiCfg := vault.DefaultConfig()
	apiCfg.Address = address
	client, err := vault.NewClient(apiCfg)
	if err != nil {
		return nil, err
	}
	if ns := strings.TrimSpace(cfg.Namespace); ns != "" {
		client.SetNamespace(ns)
	}
	if authCfg.method == vaultAuthToken {
		client.SetToken(authCfg.token)
	}
	mount := strings.Trim(strings.TrimSpace(cfg.Mount), "/")
	if mount == "" {
		mount = "secret"
	}
	kvVersion := cfg.KVVersion
	if kvVersion == 0 {
		kvVersion = 2
	}
	if kvVersion != 1 && kvVersion != 2 {
		return nil, fmt.Errorf("vault kvVersion must be 1 or 2")
	}
	return &vaultProvider{
		client:    client,
		mount:     mount,
		kvVersion: kvVersion,
		key:       strings.TrimSpace(cfg.Key),
		auth:      authCfg,
	}, nil
}

// Resolve reads "path#key" from the KV mount. Without a key it falls back to
// the provider key, then "value", then the only field of the secret.
func (p *vaultProvider) Resolve(ctx context.Context, secretPath string) (string, error) {
	if p == nil {
		return "", fmt.Errorf("vault provider is not initialized")
	}
	path, key := splitVaultPath(secretPath)
	if path == "" {
		return "", fmt.Errorf("vault secret path is required")
	}
	if err := p.ensureAuth(ctx); err != nil {
		return "", err
	}
	data, err := p.read(ctx, path)
	if err != nil {
		return "", err
	}
	if key == "" {
		key = p.key
	}
	return selectSecretValue(data, key, "value")
}

func (p *vaultProvider) read(ctx context.Context, path string) (map[string]interface{}, error) {
	var data map[string]interface{}
	switch p.kvVersion {
	case 1:
		secret, err := p.client.Logical().ReadWithContext(ctx, p.mount+"/"+path)
		if err != nil {
			return nil, err
		}
		if secret != nil {
			data = secret.Data
		}
	default:
		secret, err := p.client.KVv2(p.mount).Get(ctx, path)
		if err != nil {
			return nil, err
		}
		if secret != nil {
			data = secret.Data
		}
	}
	if data == nil {
		return nil, fmt.Errorf("vault secret %s/%s not found", p.mount, path)
	}
	return data, nil
}

func splitVaultPath(raw string) (string, string) {
	path, key, _ := strings.Cut(strings.TrimSpace(raw), "#")
	return strings.Trim(strings.TrimSpace(path), "/"), strings.TrimSpace(key)
}

func selectSecretValue(data map[string]interface{}, key string, fallback string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("secret data is empty")
	}
	for _, candidate := range []string{key, fallback} {
		if candidate == "" {
			continue
		}
		if val, ok := data[candidate]; ok {
			return coerceStringValue(val)
		}
	}
	if len(data) == 1 {
		for _, val := range data {
			return coerceStringValue(val)
		}
	}
	if key == "" {
		return "", fmt.Errorf("secret value is ambiguous; specify a key")
	}
	return "", fmt.Errorf("secret key %q not found", key)
}
