// File: internal/check/filetype.go
// Brief: Extension whitelist for files under the configuration directory.

package check

import (
	"path"
	"path/filepath"
	"strings"
)

// DefaultAllowedExtensions are the template formats accepted under the
// configuration directory.
var DefaultAllowedExtensions = []string{".yaml", ".json", ".j2"}

// FileTypes fails with InvalidFileTypeError on the first path that lies under
// dir and does not end in one of allowed. dir matches whole path segments
// anywhere in the path, so "config" covers "config/x" and "stacks/config/x"
// but not "docs/configuration.md". Paths outside dir are not checked.
func FileTypes(paths []string, dir string, allowed []string) error {
	dir = strings.Trim(filepath.ToSlash(strings.TrimSpace(dir)), "/")
	if dir == "" {
		return nil
	}
	segment := "/" + dir + "/"
	if len(allowed) == 0 {
		allowed = DefaultAllowedExtensions
	}
	for _, p := range paths {
		normalized := filepath.ToSlash(p)
		if !strings.Contains("/"+strings.TrimPrefix(normalized, "/"), segment) {
			continue
		}
		if !hasAllowedExtension(normalized, allowed) {
			return &InvalidFileTypeError{Path: p, Allowed: append([]string(nil), allowed...)}
		}
	}
	return nil
}

func hasAllowedExtension(p string, allowed []string) bool {
	ext := path.Ext(p)
	if ext == "" {
		return false
	}
	for _, candidate := range allowed {
		if ext == candidate {
			return true
		}
	}
	return false
}
