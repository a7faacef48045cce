// File: internal/version/version.go
// Brief: Build metadata stamped into the stackguard binary.

package version

import (
	"fmt"
	"runtime"
)

// Overridden at build time, e.g.
// -ldflags "-X github.com/example/stackguard/internal/version.Version=v1.2.0".
var (
	Version      = "dev"
	GitCommit    = "unknown"
	GitTreeState = "unknown" // clean|dirty|unknown
	BuildDate    = "unknown" // RFC3339 UTC preferred
)

type Info struct {
	Version      string
	GitCommit    string
	GitTreeState string
	BuildDate    string
	GoVersion    string
	Platform     string
}

func Get() Info {
	return Info{
		Version:      Version,
		GitCommit:    GitCommit,
		GitTreeState: GitTreeState,
		BuildDate:    BuildDate,
		GoVersion:    runtime.Version(),
		Platform:     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders the one-line form printed by --version.
func (i Info) String() string {
	return fmt.Sprintf("stackguard %s (commit %s, tree %s, built %s, %s %s)",
		i.Version, i.GitCommit, i.GitTreeState, i.BuildDate, i.GoVersion, i.Platform)
}
