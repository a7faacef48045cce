package secretstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

// fileProvider serves secrets from a nested YAML document; lookups walk the
// document one path segment at a time.
type fileProvider struct {
	path string
	data map[string]interface{}
}

func newFileProvider(path string, baseDir string) (*fileProvider, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("file provider path is required")
	}
	if baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	path = filepath.Clean(path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secrets file %q: %w", path, err)
	}
	data := make(map[string]interface{})
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse secrets file %q: %w", path, err)
	}
	return &fileProvider{path: path, data: data}, nil
}

func (p *fileProvider) Resolve(_ context.Context, secretPath string) (string, error) {
	secretPath = strings.TrimSpace(secretPath)
	if secretPath == "" {
		return "", fmt.Errorf("secret path is required")
	}
	var current interface{} = p.data
	for _, part := range strings.Split(strings.Trim(secretPath, "/"), "/") {
		if part == "" {
			continue
		}
		node, ok := current.(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("secret path %q does not resolve to a value in %s", secretPath, p.path)
		}
		current, ok = node[part]
		if !ok {
			return "", fmt.Errorf("secret path %q not found in %s", secretPath, p.path)
		}
	}
	return coerceStringValue(current)
}

func coerceStringValue(val interface{}) (string, error) {
	switch typed := val.(type) {
	case string:
		return typed, nil
	case []byte:
		return string(typed), nil
	case nil:
		return "", fmt.Errorf("secret value is empty")
	default:
		return "", fmt.Errorf("secret value must be a string")
	}
}
