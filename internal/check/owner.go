// File: internal/check/owner.go
// Brief: Owner identity check against a directory service.

package check

import (
	"context"
	"fmt"
	"strings"
)

// Directory looks up users by email. An empty id with a nil error means no
// user matched.
type Directory interface {
	LookupUserID(ctx context.Context, email string) (string, error)
}

// Owner fails with UnknownOwnerError when the directory has no user for email.
func Owner(ctx context.Context, email string, dir Directory) error {
	if dir == nil {
		return fmt.Errorf("directory service is not configured")
	}
	id, err := dir.LookupUserID(ctx, email)
	if err != nil {
		return fmt.Errorf("look up owner %q: %w", email, err)
	}
	if strings.TrimSpace(id) == "" {
		return &UnknownOwnerError{Email: email}
	}
	return nil
}
