package secretstore

import (
	"context"
	"fmt"
	"os"
	"strings"
)

type envProvider struct {
	prefix string
}

func newEnvProvider(prefix string) *envProvider {
	return &envProvider{prefix: strings.TrimSpace(prefix)}
}

// Resolve maps "directory/api-key" to DIRECTORY_API_KEY (after the prefix).
func (p *envProvider) Resolve(_ context.Context, secretPath string) (string, error) {
	name := envName(p.prefix, secretPath)
	if name == "" {
		return "", fmt.Errorf("environment variable name is required")
	}
	val, ok := os.LookupEnv(name)
	if !ok || val == "" {
		return "", fmt.Errorf("environment variable %s is not set", name)
	}
	return val, nil
}

func envName(prefix, secretPath string) string {
	secretPath = strings.Trim(strings.TrimSpace(secretPath), "/")
	if secretPath == "" {
		return ""
	}
	name := strings.ToUpper(strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(secretPath))
	return prefix + name
}
