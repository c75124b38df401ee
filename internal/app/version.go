package app

import "fmt"

// Build metadata, overridden via ldflags:
//
//	go build -ldflags "-X github.com/taskmaster-io/backend/internal/app.Version=1.2.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildVersion renders the build metadata for startup logs and the health
// endpoint.
func BuildVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime)
}
