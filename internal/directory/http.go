package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// HTTP queries a REST user endpoint: GET <url>?<emailParam>=<email>.
type HTTP struct {
	endpoint   string
	emailParam string
	idField    string
	authScheme string
	keys       KeySource
	client     *http.Client
}

// NewHTTP returns an HTTP directory. A nil client gets a 30s timeout client.
func NewHTTP(cfg Config, keys KeySource, client *http.Client) *HTTP {
	defaults := DefaultConfig()
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return strings.TrimSpace(v)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{
		endpoint:   strings.TrimSpace(cfg.URL),
		emailParam: pick(cfg.EmailParam, defaults.EmailParam),
		idField:    pick(cfg.IDField, defaults.IDField),
		authScheme: pick(cfg.AuthScheme, defaults.AuthScheme),
		keys:       keys,
		client:     client,
	}
}

func (d *HTTP) LookupUserID(ctx context.Context, email string) (string, error) {
	endpoint, err := url.Parse(d.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse directory url: %w", err)
	}
	query := endpoint.Query()
	query.Set(d.emailParam, email)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if d.keys != nil {
		key, err := d.keys(ctx)
		if err != nil {
			return "", fmt.Errorf("directory api key: %w", err)
		}
		if key != "" {
			req.Header.Set("Authorization", d.authScheme+" "+key)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read directory response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("directory returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return extractID(body, d.idField)
}

// extractID reads idField from a JSON object or from the first element of a
// JSON array. Empty bodies, empty arrays, and null mean no match.
func extractID(body []byte, idField string) (string, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}
	var objects []map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if strings.HasPrefix(trimmed, "[") {
		if err := dec.Decode(&objects); err != nil {
			return "", fmt.Errorf("decode directory response: %w", err)
		}
	} else {
		var object map[string]interface{}
		if err := dec.Decode(&object); err != nil {
			return "", fmt.Errorf("decode directory response: %w", err)
		}
		objects = append(objects, object)
	}
	for _, object := range objects {
		switch id := object[idField].(type) {
		case string:
			if id != "" {
				return id, nil
			}
		case json.Number:
			return id.String(), nil
		}
	}
	return "", nil
}
