// Package version holds build metadata injected via ldflags.
package version

import (
	"fmt"
	"runtime"
)

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String is the one-line build summary printed by `reposearch version`.
func String() string {
	return fmt.Sprintf("reposearch %s (commit %s, built %s, %s)", Version, Commit, Date, runtime.Version())
}
