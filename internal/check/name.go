// File: internal/check/name.go
// Brief: Stack name constraint and uniqueness checks.

// Package check holds the validation predicates applied to a change set:
// stack name syntax, name uniqueness, configuration file types, and owner
// identity. Every predicate returns one of the typed errors in errors.go.
package check

import (
	"regexp"
	"sort"
)

// No length cap is enforced; CloudFormation allows 128 characters but the
// pattern has never checked it.
var stackNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

// StackName validates a candidate stack name.
func StackName(name string) error {
	if !stackNamePattern.MatchString(name) {
		return &InvalidNameError{Name: name}
	}
	return nil
}

// NameSet is a set of existing stack names. Lookups are case-sensitive.
type NameSet struct {
	names map[string]struct{}
}

// NewNameSet returns a set containing names.
func NewNameSet(names ...string) NameSet {
	s := NameSet{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		s.Add(name)
	}
	return s
}

// Add inserts name into the set. Empty names are ignored.
func (s *NameSet) Add(name string) {
	if name == "" {
		return
	}
	if s.names == nil {
		s.names = map[string]struct{}{}
	}
	s.names[name] = struct{}{}
}

// Has reports whether name is in the set.
func (s NameSet) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of names in the set.
func (s NameSet) Len() int {
	return len(s.names)
}

// Sorted returns the names in lexical order.
func (s NameSet) Sorted() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Unique fails with DuplicateNameError when name is already in existing.
// source describes where existing came from and is only used in the message.
func Unique(name string, existing NameSet, source string) error {
	if existing.Has(name) {
		return &DuplicateNameError{Name: name, Source: source}
	}
	return nil
}
