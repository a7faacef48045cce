package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/workos/workos-go/v6/pkg/usermanagement"
)

// WorkOS looks users up through WorkOS User Management.
type WorkOS struct {
	keys     KeySource
	endpoint string
}

// NewWorkOS returns a WorkOS directory. An empty endpoint uses the SDK default.
func NewWorkOS(keys KeySource, endpoint string) *WorkOS {
	return &WorkOS{keys: keys, endpoint: strings.TrimSpace(endpoint)}
}

func (d *WorkOS) LookupUserID(ctx context.Context, email string) (string, error) {
	if d.keys == nil {
		return "", fmt.Errorf("workos api key source is not configured")
	}
	key, err := d.keys(ctx)
	if err != nil {
		return "", fmt.Errorf("directory api key: %w", err)
	}
	client := usermanagement.NewClient(key)
	if d.endpoint != "" {
		client.Endpoint = d.endpoint
	}
	resp, err := client.ListUsers(ctx, usermanagement.ListUsersOpts{Email: email, Limit: 1})
	if err != nil {
		return "", fmt.Errorf("workos list users: %w", err)
	}
	for _, user := range resp.Data {
		if strings.EqualFold(user.Email, email) && user.ID != "" {
			return user.ID, nil
		}
	}
	return "", nil
}
