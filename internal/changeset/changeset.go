// File: internal/changeset/changeset.go
// Brief: Candidate extraction from the added lines of a unified diff.

// Package changeset pulls the stack declarations a commit introduces out of
// its unified diff. Only added lines are considered; context and removed lines
// never produce candidates.
package changeset

import "strings"

const (
	DefaultStackNameKey  = "stack_name"
	DefaultOwnerEmailKey = "OwnerEmail"
)

// Keys names the declaration keys to look for.
type Keys struct {
	StackName  string
	OwnerEmail string
}

// DefaultKeys returns the stock declaration keys.
func DefaultKeys() Keys {
	return Keys{StackName: DefaultStackNameKey, OwnerEmail: DefaultOwnerEmailKey}
}

func (k Keys) withDefaults() Keys {
	if strings.TrimSpace(k.StackName) == "" {
		k.StackName = DefaultStackNameKey
	}
	if strings.TrimSpace(k.OwnerEmail) == "" {
		k.OwnerEmail = DefaultOwnerEmailKey
	}
	return k
}

// Candidates are the values a change introduces. Zero values mean absent.
type Candidates struct {
	StackNames []string
	OwnerEmail string
}

// HasStackNames reports whether the change adds any stack name.
func (c Candidates) HasStackNames() bool {
	return len(c.StackNames) > 0
}

// HasOwner reports whether the change adds an owner email.
func (c Candidates) HasOwner() bool {
	return c.OwnerEmail != ""
}

// Extract scans the added lines of diff for stack name and owner declarations.
func Extract(diff string, keys Keys) Candidates {
	keys = keys.withDefaults()
	namePrefix := keys.StackName + ":"
	ownerKey := keys.OwnerEmail + ":"

	var out Candidates
	seen := map[string]struct{}{}
	for _, line := range AddedLines(diff) {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, namePrefix) {
			if name := TrimValue(strings.TrimPrefix(trimmed, namePrefix)); name != "" {
				if _, dup := seen[name]; !dup {
					seen[name] = struct{}{}
					out.StackNames = append(out.StackNames, name)
				}
			}
		}
		if out.OwnerEmail == "" {
			if idx := strings.Index(line, ownerKey); idx >= 0 {
				out.OwnerEmail = TrimValue(line[idx+len(ownerKey):])
			}
		}
	}
	return out
}

// AddedLines returns the content of every added line in diff, without the
// leading '+'. File headers ("+++ b/path") are skipped. Lines of any length
// are kept.
func AddedLines(diff string) []string {
	var out []string
	for _, line := range strings.Split(diff, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, "+") || strings.HasPrefix(line, "+++") {
			continue
		}
		out = append(out, strings.TrimPrefix(line, "+"))
	}
	return out
}

// TrimValue strips surrounding whitespace and quote characters from a
// declaration value.
func TrimValue(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), `"' `+"\t\r")
}
