// main.go bootstraps stackguard: it builds the root Cobra command, binds
// environment overrides, and executes with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/example/stackguard/internal/check"
	"github.com/example/stackguard/internal/config"
	"github.com/example/stackguard/internal/ui"
	"github.com/example/stackguard/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	cancel()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, deps deps) int {
	state := &cliState{stdout: stdout, stderr: stderr, deps: deps}
	cmd := newRootCommand(state)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	return handleError(cmd, state, err)
}

type rootOptions struct {
	remote     bool
	local      string
	configPath string
	logLevel   string
	colorMode  string
	repoPath   string
}

type cliState struct {
	opts    rootOptions
	stdout  io.Writer
	stderr  io.Writer
	deps    deps
	viper   *viper.Viper
	printer *ui.Printer
}

func newRootCommand(state *cliState) *cobra.Command {
	opts := &state.opts
	opts.logLevel = "info"
	opts.colorMode = "auto"
	cmd := &cobra.Command{
		Use:   "stackguard (-r | -l PATH)",
		Short: "Validate stack declarations introduced by the latest commit",
		Long: `stackguard checks the commit at HEAD against its parent before merge.

Remote mode (-r) verifies new stack names against the live CloudFormation
inventory and new owners against the directory service. Local mode (-l PATH)
verifies new stack names against the declarations under PATH at the parent
commit and checks the extensions of changed configuration files.`,
		Version:       version.Get().Version,
		Args:          usageArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			state.viper = config.NewViper()
			if err := bindEnv(state.viper, cmd.Flags(), envBoundFlags...); err != nil {
				return err
			}
			colorize, err := ui.ColorEnabled(opts.colorMode, state.stdout)
			if err != nil {
				return &check.UsageError{Reason: err.Error()}
			}
			state.printer = ui.NewPrinter(state.stdout, colorize)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := opts.mode()
			if err != nil {
				return err
			}
			return runChecks(cmd.Context(), state, mode)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &check.UsageError{Reason: err.Error()}
	})
	fs := cmd.Flags()
	fs.BoolVarP(&opts.remote, "remote", "r", false, "Check new stack names against the cloud inventory and new owners against the directory")
	fs.StringVarP(&opts.local, "local", "l", "", "Check new stack names against declaration files under PATH and validate changed file types")
	fs.StringVar(&opts.configPath, "config", "", "Path to a stackguard config file (env STACKGUARD_CONFIG)")
	fs.StringVar(&opts.logLevel, "log-level", opts.logLevel, "Log level for diagnostics on stderr (debug, info, warn, error)")
	fs.StringVar(&opts.colorMode, "color", opts.colorMode, "Colorize results: auto, always, or never")
	fs.StringVar(&opts.repoPath, "repo", "", "Repository to inspect (defaults to the repository containing the working directory)")
	cmd.SetVersionTemplate(versionTemplate())
	return cmd
}

// Flags that may also come from STACKGUARD_* environment variables.
var envBoundFlags = []string{"config", "log-level", "color", "repo"}

func usageArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &check.UsageError{Reason: fmt.Sprintf("unexpected argument %q", args[0])}
	}
	return nil
}

func (o rootOptions) mode() (string, error) {
	local := strings.TrimSpace(o.local)
	switch {
	case o.remote && local != "":
		return "", &check.UsageError{Reason: "-r and -l are mutually exclusive"}
	case o.remote:
		return modeRemote, nil
	case local != "":
		return modeLocal, nil
	default:
		return "", &check.UsageError{Reason: "one of -r or -l PATH is required"}
	}
}

// bindEnv fills unchanged flags from the environment, like the config file
// binding in Viper but limited to the named flags.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet, names ...string) error {
	for _, name := range names {
		flag := fs.Lookup(name)
		if flag == nil || flag.Changed {
			continue
		}
		if err := v.BindEnv(name); err != nil {
			return err
		}
		if !v.IsSet(name) {
			continue
		}
		if val := fmt.Sprintf("%v", v.Get(name)); val != "" {
			if err := flag.Value.Set(val); err != nil {
				return &check.UsageError{Reason: fmt.Sprintf("invalid %s from environment: %v", name, err)}
			}
		}
	}
	return nil
}

func handleError(cmd *cobra.Command, state *cliState, err error) int {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	printer := state.printer
	if printer == nil {
		colorize, _ := ui.ColorEnabled("auto", state.stdout)
		printer = ui.NewPrinter(state.stdout, colorize)
	}
	printer.Error(err)
	var usage *check.UsageError
	if errors.As(err, &usage) {
		fmt.Fprint(state.stdout, cmd.UsageString())
	}
	return 1
}

func versionTemplate() string {
	return version.Get().String() + "\n"
}
