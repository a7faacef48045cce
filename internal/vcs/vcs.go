// File: internal/vcs/vcs.go
// Brief: Git access for the commit under review and its first parent.

// Package vcs reads the change introduced by HEAD relative to its first parent
// and provides a scoped checkout of that parent. It uses go-git so no git
// binary is required on the runner.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	// ErrNoParent is returned when HEAD is a root commit.
	ErrNoParent = errors.New("HEAD has no parent commit")
	// ErrDirtyWorktree is returned when tracked files have local changes.
	ErrDirtyWorktree = errors.New("worktree has uncommitted changes")
)

// Repo wraps an opened repository and its worktree root.
type Repo struct {
	repo *git.Repository
	root string
}

// Open finds the repository containing path, walking up to the .git directory.
func Open(path string) (*Repo, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository at %s: %w", abs, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	return &Repo{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root returns the worktree root directory.
func (r *Repo) Root() string {
	return r.root
}

// ParentDiff renders the unified diff from HEAD's first parent to HEAD. For a
// root commit every file of HEAD shows up as added.
func (r *Repo) ParentDiff(ctx context.Context) (string, error) {
	headTree, parentTree, err := r.trees()
	if err != nil {
		return "", err
	}
	patch, err := parentTree.PatchContext(ctx, headTree)
	if err != nil {
		return "", fmt.Errorf("diff HEAD^..HEAD: %w", err)
	}
	return patch.String(), nil
}

// ChangedFiles lists slash-separated paths touched between HEAD's first
// parent and HEAD, including deletions and both sides of a rename.
func (r *Repo) ChangedFiles(ctx context.Context) ([]string, error) {
	headTree, parentTree, err := r.trees()
	if err != nil {
		return nil, err
	}
	changes, err := parentTree.DiffContext(ctx, headTree)
	if err != nil {
		return nil, fmt.Errorf("diff HEAD^..HEAD: %w", err)
	}
	seen := map[string]struct{}{}
	for _, change := range changes {
		for _, name := range []string{change.From.Name, change.To.Name} {
			if name != "" {
				seen[name] = struct{}{}
			}
		}
	}
	files := make([]string, 0, len(seen))
	for name := range seen {
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

// trees returns the tree of HEAD and of its first parent. A root commit is
// compared against an empty tree.
func (r *Repo) trees() (*object.Tree, *object.Tree, error) {
	head, err := r.headCommit()
	if err != nil {
		return nil, nil, err
	}
	headTree, err := head.Tree()
	if err != nil {
		return nil, nil, fmt.Errorf("read HEAD tree: %w", err)
	}
	if head.NumParents() == 0 {
		return headTree, &object.Tree{}, nil
	}
	parent, err := head.Parent(0)
	if err != nil {
		return nil, nil, fmt.Errorf("read parent commit: %w", err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, nil, fmt.Errorf("read parent tree: %w", err)
	}
	return headTree, parentTree, nil
}

func (r *Repo) headCommit() (*object.Commit, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit %s: %w", ref.Hash(), err)
	}
	return commit, nil
}

// WithParentCheckout checks out HEAD's first parent, runs fn, and restores the
// original HEAD (branch or detached commit) on every exit path, including a
// panic in fn. Restore failures are joined onto fn's error. Local changes to
// tracked files make it fail with ErrDirtyWorktree before HEAD is touched;
// untracked files are left alone.
func (r *Repo) WithParentCheckout(ctx context.Context, fn func() error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	original, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	head, err := r.repo.CommitObject(original.Hash())
	if err != nil {
		return fmt.Errorf("read HEAD commit %s: %w", original.Hash(), err)
	}
	if head.NumParents() == 0 {
		return ErrNoParent
	}
	parent := head.ParentHashes[0]
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := ensureClean(wt); err != nil {
		return err
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: parent}); err != nil {
		// go-git moves HEAD before updating the worktree, so a failed
		// checkout can leave HEAD detached at the parent.
		if resetErr := r.repo.Storer.SetReference(headReference(original)); resetErr != nil {
			err = errors.Join(err, fmt.Errorf("reset HEAD to %s: %w", describeRef(original), resetErr))
		}
		return fmt.Errorf("checkout parent %s: %w", parent, err)
	}
	defer func() {
		if restoreErr := wt.Checkout(restoreOptions(original)); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("restore %s: %w", describeRef(original), restoreErr))
		}
	}()
	return fn()
}

func ensureClean(wt *git.Worktree) error {
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("worktree status: %w", err)
	}
	var dirty []string
	for path, st := range status {
		if st.Worktree == git.Untracked && st.Staging == git.Untracked {
			continue
		}
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		dirty = append(dirty, path)
	}
	if len(dirty) == 0 {
		return nil
	}
	sort.Strings(dirty)
	return fmt.Errorf("%w: %s", ErrDirtyWorktree, strings.Join(dirty, ", "))
}

// headReference is the HEAD entry that points back at ref: symbolic for a
// branch, a bare hash when detached.
func headReference(ref *plumbing.Reference) *plumbing.Reference {
	if ref.Name().IsBranch() {
		return plumbing.NewSymbolicReference(plumbing.HEAD, ref.Name())
	}
	return plumbing.NewHashReference(plumbing.HEAD, ref.Hash())
}

func restoreOptions(ref *plumbing.Reference) *git.CheckoutOptions {
	if ref.Name().IsBranch() {
		return &git.CheckoutOptions{Branch: ref.Name()}
	}
	return &git.CheckoutOptions{Hash: ref.Hash()}
}

func describeRef(ref *plumbing.Reference) string {
	if ref.Name().IsBranch() {
		return ref.Name().Short()
	}
	return ref.Hash().String()
}
