// File: internal/guard/guard.go
// Brief: Remote and local validation pipelines over a single commit.

// Package guard runs the change-set checks in a fixed order and stops at the
// first failure. All collaborators are passed in explicitly; the runner keeps
// no state between calls.
package guard

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/example/stackguard/internal/changeset"
	"github.com/example/stackguard/internal/check"
	"github.com/example/stackguard/internal/inventory"
	"github.com/example/stackguard/internal/vcs"
	"github.com/go-logr/logr"
)

// Source exposes the commit under review.
type Source interface {
	ParentDiff(ctx context.Context) (string, error)
	ChangedFiles(ctx context.Context) ([]string, error)
	WithParentCheckout(ctx context.Context, fn func() error) error
}

// Scanner collects the stack names declared under root.
type Scanner func(ctx context.Context, root string) (check.NameSet, error)

// Rules are the configurable parts of the checks.
type Rules struct {
	Keys              changeset.Keys
	ConfigDir         string
	AllowedExtensions []string
}

// Runner wires collaborators for one invocation.
type Runner struct {
	Source    Source
	Inventory inventory.Lister
	Directory check.Directory
	Scan      Scanner
	Rules     Rules
	Log       logr.Logger
}

// Report summarizes a successful run.
type Report struct {
	Mode         string
	StackNames   []string
	OwnerEmail   string
	FilesChecked int
	Existing     int
	Skipped      []string
}

func (r *Report) skip(reason string) {
	r.Skipped = append(r.Skipped, reason)
}

// Remote validates new stack names against the live inventory and the new
// owner against the directory.
func (r *Runner) Remote(ctx context.Context) (Report, error) {
	report := Report{Mode: "remote"}
	candidates, err := r.candidates(ctx)
	if err != nil {
		return report, err
	}
	report.StackNames = candidates.StackNames
	report.OwnerEmail = candidates.OwnerEmail

	if candidates.HasStackNames() {
		if err := validateNames(candidates.StackNames); err != nil {
			return report, err
		}
		if r.Inventory == nil {
			return report, fmt.Errorf("stack inventory is not configured")
		}
		existing, err := r.Inventory.StackNames(ctx)
		if err != nil {
			return report, err
		}
		report.Existing = existing.Len()
		r.Log.V(1).Info("loaded stack inventory", "stacks", existing.Len())
		if err := checkUnique(candidates.StackNames, existing, "the cloud stack inventory"); err != nil {
			return report, err
		}
	} else {
		report.skip("no new stack name")
	}

	if candidates.HasOwner() {
		r.Log.V(1).Info("validating owner", "email", candidates.OwnerEmail)
		if err := check.Owner(ctx, candidates.OwnerEmail, r.Directory); err != nil {
			return report, err
		}
	} else {
		report.skip("no new owner email")
	}
	return report, nil
}

// Local validates changed file types and checks new stack names against the
// declarations under root as they were at the parent commit. root is
// absolute or relative to the process working directory.
func (r *Runner) Local(ctx context.Context, root string) (Report, error) {
	report := Report{Mode: "local"}
	candidates, err := r.candidates(ctx)
	if err != nil {
		return report, err
	}
	report.StackNames = candidates.StackNames
	report.OwnerEmail = candidates.OwnerEmail

	files, err := r.Source.ChangedFiles(ctx)
	if err != nil {
		return report, err
	}
	report.FilesChecked = len(files)
	if err := check.FileTypes(files, r.Rules.ConfigDir, r.Rules.AllowedExtensions); err != nil {
		return report, err
	}

	if !candidates.HasStackNames() {
		report.skip("no new stack name")
		return report, nil
	}
	if err := validateNames(candidates.StackNames); err != nil {
		return report, err
	}
	if r.Scan == nil {
		return report, fmt.Errorf("declaration scanner is not configured")
	}
	var existing check.NameSet
	err = r.Source.WithParentCheckout(ctx, func() error {
		var scanErr error
		existing, scanErr = r.Scan(ctx, root)
		return scanErr
	})
	switch {
	case errors.Is(err, vcs.ErrNoParent):
		r.Log.V(1).Info("HEAD is a root commit; no earlier declarations to compare")
		existing = check.NewNameSet()
	case err != nil:
		return report, err
	}
	report.Existing = existing.Len()
	r.Log.V(1).Info("scanned parent declarations", "root", root, "stacks", existing.Len())
	if err := checkUnique(candidates.StackNames, existing, filepath.Clean(root)); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) candidates(ctx context.Context) (changeset.Candidates, error) {
	if r.Source == nil {
		return changeset.Candidates{}, fmt.Errorf("version control source is not configured")
	}
	diff, err := r.Source.ParentDiff(ctx)
	if err != nil {
		return changeset.Candidates{}, err
	}
	candidates := changeset.Extract(diff, r.Rules.Keys)
	r.Log.V(1).Info("extracted candidates", "stackNames", candidates.StackNames, "ownerEmail", candidates.OwnerEmail)
	return candidates, nil
}

func validateNames(names []string) error {
	for _, name := range names {
		if err := check.StackName(name); err != nil {
			return err
		}
	}
	return nil
}

func checkUnique(names []string, existing check.NameSet, source string) error {
	for _, name := range names {
		if err := check.Unique(name, existing, source); err != nil {
			return err
		}
	}
	return nil
}
