// File: cmd/stackguard/checks.go
// Brief: Wires configuration and collaborators into the guard pipeline.

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/example/stackguard/internal/awsenv"
	"github.com/example/stackguard/internal/check"
	"github.com/example/stackguard/internal/config"
	"github.com/example/stackguard/internal/declarations"
	"github.com/example/stackguard/internal/directory"
	"github.com/example/stackguard/internal/guard"
	"github.com/example/stackguard/internal/inventory"
	"github.com/example/stackguard/internal/logging"
	"github.com/example/stackguard/internal/secretstore"
	"github.com/example/stackguard/internal/vcs"
	"github.com/mitchellh/go-homedir"
)

const (
	modeRemote = "remote"
	modeLocal  = "local"
)

// repository is what the pipeline needs from version control plus the
// worktree root used to anchor relative paths.
type repository interface {
	guard.Source
	Root() string
}

// deps builds external collaborators; tests swap them for fakes.
type deps struct {
	openRepo     func(path string) (repository, error)
	newInventory func(ctx context.Context, cfg config.Config) (inventory.Lister, error)
	newDirectory func(ctx context.Context, cfg config.Config, baseDir string) (check.Directory, error)
}

func defaultDeps() deps {
	return deps{
		openRepo: func(path string) (repository, error) {
			return vcs.Open(path)
		},
		newInventory: func(ctx context.Context, cfg config.Config) (inventory.Lister, error) {
			return inventory.NewCloudFormationFromEnv(ctx, awsenv.Options{Region: cfg.AWS.Region, Profile: cfg.AWS.Profile})
		},
		newDirectory: newSecretBackedDirectory,
	}
}

// newSecretBackedDirectory resolves the directory API key through the secret
// store on each lookup so the key never sits in configuration.
func newSecretBackedDirectory(ctx context.Context, cfg config.Config, baseDir string) (check.Directory, error) {
	resolver, err := secretstore.NewResolver(ctx, cfg.Secrets, secretstore.ResolverOptions{BaseDir: baseDir})
	if err != nil {
		return nil, fmt.Errorf("configure secrets: %w", err)
	}
	keys := func(ctx context.Context) (string, error) {
		return resolver.Resolve(ctx, cfg.Directory.APIKey)
	}
	return directory.New(cfg.Directory, keys)
}

func runChecks(ctx context.Context, state *cliState, mode string) error {
	opts := state.opts
	logger, err := logging.New(opts.logLevel, state.stderr)
	if err != nil {
		return &check.UsageError{Reason: err.Error()}
	}
	repo, err := state.deps.openRepo(opts.repoPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(state.viper, opts.configPath, repo.Root())
	if err != nil {
		return err
	}
	if cfg.Source != "" {
		logger.V(1).Info("loaded config", "path", cfg.Source)
	}

	runner := &guard.Runner{
		Source: repo,
		Rules: guard.Rules{
			Keys:              cfg.ChangesetKeys(),
			ConfigDir:         cfg.Files.ConfigDir,
			AllowedExtensions: cfg.Files.AllowedExtensions,
		},
		Log: logger,
	}

	var report guard.Report
	switch mode {
	case modeRemote:
		runner.Inventory = &lazyInventory{build: func(ctx context.Context) (inventory.Lister, error) {
			return state.deps.newInventory(ctx, cfg)
		}}
		runner.Directory = &lazyDirectory{build: func(ctx context.Context) (check.Directory, error) {
			return state.deps.newDirectory(ctx, cfg, repo.Root())
		}}
		report, err = runner.Remote(ctx)
	case modeLocal:
		root, rootErr := resolveScanRoot(opts.local, repo.Root())
		if rootErr != nil {
			return rootErr
		}
		runner.Scan = func(ctx context.Context, root string) (check.NameSet, error) {
			return declarations.Scan(ctx, root, declarations.Options{Key: cfg.Keys.StackName, Exclude: cfg.Scan.Exclude})
		}
		report, err = runner.Local(ctx, root)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return err
	}
	summary, notes := describe(report)
	state.printer.Success(summary, notes...)
	return nil
}

// resolveScanRoot expands "~" and anchors relative paths at the repository root.
func resolveScanRoot(path, repoRoot string) (string, error) {
	expanded, err := homedir.Expand(strings.TrimSpace(path))
	if err != nil {
		return "", &check.UsageError{Reason: fmt.Sprintf("invalid -l path %q: %v", path, err)}
	}
	if !filepath.IsAbs(expanded) && repoRoot != "" {
		expanded = filepath.Join(repoRoot, expanded)
	}
	return filepath.Clean(expanded), nil
}

func describe(report guard.Report) (string, []string) {
	var parts []string
	switch n := len(report.StackNames); {
	case n == 1:
		parts = append(parts, fmt.Sprintf("stack name %q is valid and unique (%d existing)", report.StackNames[0], report.Existing))
	case n > 1:
		parts = append(parts, fmt.Sprintf("%d stack names are valid and unique (%d existing)", n, report.Existing))
	}
	if report.Mode == modeRemote && report.OwnerEmail != "" {
		parts = append(parts, fmt.Sprintf("owner %s is a known user", report.OwnerEmail))
	}
	if report.Mode == modeLocal {
		parts = append(parts, fmt.Sprintf("%d changed file(s) checked", report.FilesChecked))
	}
	summary := report.Mode + " checks passed"
	if len(parts) > 0 {
		summary += ": " + strings.Join(parts, "; ")
	}
	notes := make([]string, 0, len(report.Skipped))
	for _, reason := range report.Skipped {
		notes = append(notes, "skipped: "+reason)
	}
	return summary, notes
}

// lazyInventory defers AWS client construction until a name needs checking.
type lazyInventory struct {
	build func(ctx context.Context) (inventory.Lister, error)
	once  sync.Once
	inner inventory.Lister
	err   error
}

func (l *lazyInventory) StackNames(ctx context.Context) (check.NameSet, error) {
	l.once.Do(func() { l.inner, l.err = l.build(ctx) })
	if l.err != nil {
		return check.NameSet{}, l.err
	}
	return l.inner.StackNames(ctx)
}

// lazyDirectory defers directory and secret-store setup until an owner needs
// checking, so runs without a new owner need no directory configuration.
type lazyDirectory struct {
	build func(ctx context.Context) (check.Directory, error)
	once  sync.Once
	inner check.Directory
	err   error
}

func (l *lazyDirectory) LookupUserID(ctx context.Context, email string) (string, error) {
	l.once.Do(func() { l.inner, l.err = l.build(ctx) })
	if l.err != nil {
		return "", l.err
	}
	return l.inner.LookupUserID(ctx, email)
}

