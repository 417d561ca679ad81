// Package version holds build metadata injected with ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/foliobuilder/internal/version.Version=v1.0.0"
package version

import "fmt"

// Version is the release version.
var Version = "dev"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("foliobuilder %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
