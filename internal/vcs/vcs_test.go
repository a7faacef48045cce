package vcs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	return &testRepo{t: t, dir: dir, repo: repo}
}

func (r *testRepo) write(rel, content string) {
	r.t.Helper()
	path := filepath.Join(r.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", rel, err)
	}
}

func (r *testRepo) remove(rel string) {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Remove(rel); err != nil {
		r.t.Fatalf("remove %s: %v", rel, err)
	}
}

func (r *testRepo) commit(msg string) {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		r.t.Fatalf("add: %v", err)
	}
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "ci", Email: "ci@example.com", When: time.Unix(1700000000, 0)},
	})
	if err != nil {
		r.t.Fatalf("commit: %v", err)
	}
}

func (r *testRepo) read(rel string) string {
	r.t.Helper()
	raw, err := os.ReadFile(filepath.Join(r.dir, rel))
	if err != nil {
		r.t.Fatalf("read %s: %v", rel, err)
	}
	return string(raw)
}

func seededRepo(t *testing.T) *testRepo {
	r := newTestRepo(t)
	r.write("stacks/app.yaml", "stack_name: old-stack\n")
	r.write("config/keep.json", "{}\n")
	r.commit("first")
	r.write("stacks/app.yaml", "stack_name: new-stack\nOwnerEmail: a@b.com\n")
	r.write("config/new.j2", "{{ x }}\n")
	r.remove("config/keep.json")
	r.commit("second")
	return r
}

func TestParentDiffShowsAddedLines(t *testing.T) {
	r := seededRepo(t)
	repo, err := Open(filepath.Join(r.dir, "stacks"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	diff, err := repo.ParentDiff(context.Background())
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	for _, want := range []string{"+stack_name: new-stack", "-stack_name: old-stack", "+OwnerEmail: a@b.com"} {
		if !strings.Contains(diff, want) {
			t.Fatalf("diff missing %q:\n%s", want, diff)
		}
	}
}

func TestChangedFilesIncludesDeletions(t *testing.T) {
	r := seededRepo(t)
	repo, err := Open(r.dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	files, err := repo.ChangedFiles(context.Background())
	if err != nil {
		t.Fatalf("changed files: %v", err)
	}
	want := []string{"config/keep.json", "config/new.j2", "stacks/app.yaml"}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("files=%v, want %v", files, want)
	}
}

func TestRootCommitDiffsAgainstEmptyTree(t *testing.T) {
	r := newTestRepo(t)
	r.write("app.yaml", "stack_name: first\n")
	r.commit("root")
	repo, err := Open(r.dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	diff, err := repo.ParentDiff(context.Background())
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if !strings.Contains(diff, "+stack_name: first") {
		t.Fatalf("expected root file as addition:\n%s", diff)
	}
	err = repo.WithParentCheckout(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrNoParent) {
		t.Fatalf("expected ErrNoParent, got %v", err)
	}
}

func TestWithParentCheckoutRestoresBranch(t *testing.T) {
	r := seededRepo(t)
	repo, err := Open(r.dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	before, err := r.repo.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	var during string
	err = repo.WithParentCheckout(context.Background(), func() error {
		during = r.read("stacks/app.yaml")
		return nil
	})
	if err != nil {
		t.Fatalf("checkout scope: %v", err)
	}
	if during != "stack_name: old-stack\n" {
		t.Fatalf("parent content=%q", during)
	}
	after, err := r.repo.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if after.Name() != before.Name() || after.Hash() != before.Hash() {
		t.Fatalf("HEAD moved: before=%s after=%s", before, after)
	}
	if got := r.read("stacks/app.yaml"); !strings.Contains(got, "new-stack") {
		t.Fatalf("worktree not restored: %q", got)
	}
}

func TestWithParentCheckoutRestoresOnFailure(t *testing.T) {
	r := seededRepo(t)
	repo, err := Open(r.dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	before, _ := r.repo.Head()
	boom := errors.New("scan failed")
	err = repo.WithParentCheckout(context.Background(), func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected scan error, got %v", err)
	}
	after, _ := r.repo.Head()
	if after.Name() != before.Name() || after.Hash() != before.Hash() {
		t.Fatalf("HEAD moved after failure: before=%s after=%s", before, after)
	}
	if got := r.read("config/new.j2"); got != "{{ x }}\n" {
		t.Fatalf("worktree not restored: %q", got)
	}
}

func TestWithParentCheckoutRestoresOnPanic(t *testing.T) {
	r := seededRepo(t)
	repo, err := Open(r.dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	before, _ := r.repo.Head()
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = repo.WithParentCheckout(context.Background(), func() error { panic("boom") })
	}()
	after, _ := r.repo.Head()
	if after.Name() != before.Name() || after.Hash() != before.Hash() {
		t.Fatalf("HEAD moved after panic: before=%s after=%s", before, after)
	}
}

func TestWithParentCheckoutRefusesDirtyWorktree(t *testing.T) {
	r := seededRepo(t)
	repo, err := Open(r.dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	before, _ := r.repo.Head()
	r.write("stacks/app.yaml", "stack_name: uncommitted\n")
	called := false
	err = repo.WithParentCheckout(context.Background(), func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrDirtyWorktree) {
		t.Fatalf("expected ErrDirtyWorktree, got %v", err)
	}
	after, _ := r.repo.Head()
	if after.Name() != before.Name() || after.Hash() != before.Hash() {
		t.Fatalf("HEAD moved on refused checkout: before=%s after=%s", before, after)
	}
	if called {
		t.Fatalf("scope body must not run when checkout fails")
	}
	if got := r.read("stacks/app.yaml"); got != "stack_name: uncommitted\n" {
		t.Fatalf("local edits were clobbered: %q", got)
	}
}

func TestWithParentCheckoutRefusesStagedChanges(t *testing.T) {
	r := seededRepo(t)
	repo, err := Open(r.dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	before, _ := r.repo.Head()
	r.write("stacks/staged.yaml", "stack_name: staged\n")
	wt, err := r.repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Add("stacks/staged.yaml"); err != nil {
		t.Fatalf("add: %v", err)
	}
	err = repo.WithParentCheckout(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrDirtyWorktree) || !strings.Contains(err.Error(), "stacks/staged.yaml") {
		t.Fatalf("expected ErrDirtyWorktree naming the file, got %v", err)
	}
	after, _ := r.repo.Head()
	if after.Name() != before.Name() || after.Hash() != before.Hash() {
		t.Fatalf("HEAD moved: before=%s after=%s", before, after)
	}
}

func TestWithParentCheckoutAllowsUntrackedFiles(t *testing.T) {
	r := seededRepo(t)
	repo, err := Open(r.dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	r.write("scratch.txt", "notes\n")
	called := false
	if err := repo.WithParentCheckout(context.Background(), func() error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !called {
		t.Fatalf("scope body did not run")
	}
	if got := r.read("scratch.txt"); got != "notes\n" {
		t.Fatalf("untracked file changed: %q", got)
	}
}

func TestHeadReference(t *testing.T) {
	hash := plumbing.NewHash("1a100f82c0ffee00000000000000000000000000")
	branch := headReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), hash))
	if branch.Type() != plumbing.SymbolicReference || branch.Target() != "refs/heads/main" || branch.Name() != plumbing.HEAD {
		t.Fatalf("branch HEAD=%s", branch)
	}
	detached := headReference(plumbing.NewHashReference(plumbing.HEAD, hash))
	if detached.Type() != plumbing.HashReference || detached.Hash() != hash {
		t.Fatalf("detached HEAD=%s", detached)
	}
}

func TestWithParentCheckoutHonorsCanceledContext(t *testing.T) {
	r := seededRepo(t)
	repo, err := Open(r.dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := repo.WithParentCheckout(ctx, func() error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
