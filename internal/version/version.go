// Package version carries build metadata injected with -ldflags, e.g.
// -X github.com/MeKo-Tech/datpeek/internal/version.Version=v1.2.0.
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String renders the one-line banner printed by --version.
func String() string {
	return fmt.Sprintf("datpeek %s (commit %s, built %s, %s)", Version, GitCommit, BuildDate, runtime.Version())
}
