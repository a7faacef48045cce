// File: internal/check/errors.go
// Brief: Error kinds reported by the stack validators.

package check

import (
	"fmt"
	"strings"
)

// UsageError reports bad or missing command-line arguments.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	if e.Reason == "" {
		return "invalid usage"
	}
	return e.Reason
}

// InvalidNameError reports a stack name that violates the naming constraint.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("stack name %q is invalid: it must start with a letter and contain only letters, digits, and hyphens", e.Name)
}

// DuplicateNameError reports a stack name that already exists.
type DuplicateNameError struct {
	Name   string
	Source string
}

func (e *DuplicateNameError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("stack name %q already exists", e.Name)
	}
	return fmt.Sprintf("stack name %q already exists in %s", e.Name, e.Source)
}

// InvalidFileTypeError reports a configuration file with a disallowed extension.
type InvalidFileTypeError struct {
	Path    string
	Allowed []string
}

func (e *InvalidFileTypeError) Error() string {
	return fmt.Sprintf("file %q has an unsupported extension (allowed: %s)", e.Path, strings.Join(e.Allowed, ", "))
}

// UnknownOwnerError reports an owner email with no matching directory user.
type UnknownOwnerError struct {
	Email string
}

func (e *UnknownOwnerError) Error() string {
	return fmt.Sprintf("owner %q is not a known directory user", e.Email)
}
